package task

import (
	"time"

	"github.com/nexora/backend/core"
)

// Difficulties
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Submission statuses. A submission starts pending and moves exactly once,
// to approved or rejected.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// File is metadata for an uploaded deliverable; storage of the actual bytes
// is handled outside the core.
type File struct {
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	UploadedAt time.Time `json:"uploadedAt"` // UTC
}

// Submission is one student's single deliverable for a task.
type Submission struct {
	ID            string     `json:"id"`
	StudentID     string     `json:"student"`
	Description   string     `json:"description"`
	Files         []File     `json:"files,omitempty"`
	Status        string     `json:"status"`
	ReviewedBy    string     `json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"` // UTC
	Feedback      string     `json:"feedback,omitempty"`
	PointsAwarded int        `json:"pointsAwarded"` // 0 until approved
	SubmittedAt   time.Time  `json:"submittedAt"`   // UTC
}

type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Points      int          `json:"points"`
	Difficulty  string       `json:"difficulty"`
	DueDate     time.Time    `json:"dueDate"` // UTC
	CreatedBy   string       `json:"createdBy"`
	AssignedTo  []string     `json:"assignedTo"`
	IsActive    bool         `json:"isActive"`
	Submissions []Submission `json:"submissions,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"` // UTC
	UpdatedAt   time.Time    `json:"updatedAt"` // UTC
}

func (t Task) OwnerID() string { return t.CreatedBy }

func (t Task) IsAssignedTo(studentID string) bool {
	for _, id := range t.AssignedTo {
		if id == studentID {
			return true
		}
	}
	return false
}

// SubmissionByID returns the submission with the given id, or nil.
func (t Task) SubmissionByID(id string) *Submission {
	for i := range t.Submissions {
		if t.Submissions[i].ID == id {
			return &t.Submissions[i]
		}
	}
	return nil
}

// SubmissionByStudent returns the student's submission, or nil.
func (t Task) SubmissionByStudent(studentID string) *Submission {
	for i := range t.Submissions {
		if t.Submissions[i].StudentID == studentID {
			return &t.Submissions[i]
		}
	}
	return nil
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	Title       string    `json:"title" validate:"required,min=5,max=100"`
	Description string    `json:"description" validate:"required,min=10,max=1000"`
	Category    string    `json:"category" validate:"required,oneof=recycling energy water biodiversity climate waste transport other"`
	Points      int       `json:"points" validate:"required,min=1,max=100"`
	Difficulty  string    `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
	AssignedTo  []string  `json:"assignedTo"`
}

func (nt *NewTask) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	nt.Category = core.CleanString(nt.Category, true /* lower */)
	nt.Difficulty = core.CleanString(nt.Difficulty, true /* lower */)
	return core.Validate.Struct(nt)
}

// UpdateTask defines what information may be provided to modify an existing
// Task. Zero-valued fields are left unchanged.
type UpdateTask struct {
	Title       string    `json:"title" validate:"omitempty,min=5,max=100"`
	Description string    `json:"description" validate:"omitempty,min=10,max=1000"`
	Category    string    `json:"category" validate:"omitempty,oneof=recycling energy water biodiversity climate waste transport other"`
	Points      int       `json:"points" validate:"omitempty,min=1,max=100"`
	Difficulty  string    `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	DueDate     time.Time `json:"dueDate"`
	AssignedTo  []string  `json:"assignedTo"`
}

func (ut *UpdateTask) Validate() error {
	ut.Title = core.CleanString(ut.Title)
	ut.Description = core.CleanString(ut.Description)
	ut.Category = core.CleanString(ut.Category, true /* lower */)
	ut.Difficulty = core.CleanString(ut.Difficulty, true /* lower */)
	return core.Validate.Struct(ut)
}

type NewFile struct {
	Filename string `json:"filename" validate:"required"`
	Path     string `json:"path" validate:"required"`
}

// NewSubmission contains a student's deliverable for a task.
type NewSubmission struct {
	Description string    `json:"description" validate:"required,min=10,max=500"`
	Files       []NewFile `json:"files" validate:"omitempty,dive"`
}

func (ns *NewSubmission) Validate() error {
	ns.Description = core.CleanString(ns.Description)
	return core.Validate.Struct(ns)
}

// ReviewSubmission is a teacher's verdict on a submission.
type ReviewSubmission struct {
	SubmissionID  string `json:"submissionId" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=approved rejected"`
	Feedback      string `json:"feedback" validate:"omitempty,max=300"`
	PointsAwarded int    `json:"pointsAwarded" validate:"min=0"`
}

func (rs *ReviewSubmission) Validate() error {
	rs.Status = core.CleanString(rs.Status, true /* lower */)
	rs.Feedback = core.CleanString(rs.Feedback)
	return core.Validate.Struct(rs)
}

type QueryFilter struct {
	Category   string `query:"category"`
	Difficulty string `query:"difficulty"`
	CreatedBy  string `query:"-"`
	AssignedTo string `query:"-"`
	IsActive   *bool  `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Difficulty = core.CleanString(qf.Difficulty, true /* lower */)
}
