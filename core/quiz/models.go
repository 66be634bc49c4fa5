package quiz

import (
	"fmt"
	"time"

	"github.com/nexora/backend/core"
)

// Categories are the fixed environmental topics shared with tasks.
var Categories = []string{
	"recycling", "energy", "water", "biodiversity", "climate", "waste", "transport", "other",
}

const categoriesOneOf = "recycling energy water biodiversity climate waste transport other"

type Question struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Attempt is one student's single scored submission of a quiz.
type Attempt struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student"`
	Answers       []int     `json:"answers"`
	Score         int       `json:"score"` // percentage, rounded to nearest integer
	PointsAwarded int       `json:"pointsAwarded"`
	CompletedAt   time.Time `json:"completedAt"` // UTC
}

type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Questions   []Question `json:"questions"`
	Points      int        `json:"points"`
	TimeLimit   int        `json:"timeLimit"` // minutes
	CreatedBy   string     `json:"createdBy"`
	IsActive    bool       `json:"isActive"`
	Attempts    []Attempt  `json:"attempts,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"` // UTC
	UpdatedAt   time.Time  `json:"updatedAt"` // UTC
}

func (q Quiz) OwnerID() string { return q.CreatedBy }

// AttemptByStudent returns the student's attempt, or nil.
func (q Quiz) AttemptByStudent(studentID string) *Attempt {
	for i := range q.Attempts {
		if q.Attempts[i].StudentID == studentID {
			return &q.Attempts[i]
		}
	}
	return nil
}

type NewQuestion struct {
	Text          string   `json:"question" validate:"required,min=10,max=500"`
	Options       []string `json:"options" validate:"required,min=2,max=4,dive,required,max=200"`
	CorrectAnswer int      `json:"correctAnswer" validate:"min=0,max=3"`
	Explanation   string   `json:"explanation" validate:"omitempty,max=300"`
}

// NewQuiz contains information needed to create a new Quiz.
type NewQuiz struct {
	Title       string        `json:"title" validate:"required,min=5,max=100"`
	Description string        `json:"description" validate:"required,min=10,max=500"`
	Category    string        `json:"category" validate:"required,oneof=recycling energy water biodiversity climate waste transport other"`
	Points      int           `json:"points" validate:"required,min=1,max=50"`
	TimeLimit   int           `json:"timeLimit" validate:"omitempty,min=1,max=60"`
	Questions   []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

func (nq *NewQuiz) Validate() error {
	nq.Title = core.CleanString(nq.Title)
	nq.Description = core.CleanString(nq.Description)
	nq.Category = core.CleanString(nq.Category, true /* lower */)
	for i := range nq.Questions {
		nq.Questions[i].Text = core.CleanString(nq.Questions[i].Text)
	}

	if err := core.Validate.Struct(nq); err != nil {
		return err
	}
	// the answer index must point at an existing option
	for i, q := range nq.Questions {
		if q.CorrectAnswer >= len(q.Options) {
			return core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("questions[%d].correctAnswer", i),
				Error: "correct answer index is out of range",
			})
		}
	}
	return nil
}

// UpdateQuiz defines what information may be provided to modify an existing Quiz.
// Zero-valued fields are left unchanged.
type UpdateQuiz struct {
	Title       string        `json:"title" validate:"omitempty,min=5,max=100"`
	Description string        `json:"description" validate:"omitempty,min=10,max=500"`
	Category    string        `json:"category" validate:"omitempty,oneof=recycling energy water biodiversity climate waste transport other"`
	Points      int           `json:"points" validate:"omitempty,min=1,max=50"`
	TimeLimit   int           `json:"timeLimit" validate:"omitempty,min=1,max=60"`
	Questions   []NewQuestion `json:"questions" validate:"omitempty,min=1,dive"`
}

func (uq *UpdateQuiz) Validate() error {
	uq.Title = core.CleanString(uq.Title)
	uq.Description = core.CleanString(uq.Description)
	uq.Category = core.CleanString(uq.Category, true /* lower */)

	if err := core.Validate.Struct(uq); err != nil {
		return err
	}
	for i, q := range uq.Questions {
		if q.CorrectAnswer >= len(q.Options) {
			return core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("questions[%d].correctAnswer", i),
				Error: "correct answer index is out of range",
			})
		}
	}
	return nil
}

type QueryFilter struct {
	Category  string `query:"category"`
	CreatedBy string `query:"-"`
	IsActive  *bool  `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Category = core.CleanString(qf.Category, true /* lower */)
}
