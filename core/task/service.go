package task

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/policy"
	"github.com/nexora/backend/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("task not found")
	ErrSubmissionNotFound = core.NewNotFoundError("submission not found")
	ErrAlreadySubmitted   = core.NewConflictError("you have already submitted this task")
	ErrNotAssigned        = core.NewAuthorizationError("you are not assigned to this task")
	ErrAlreadyReviewed    = core.NewConflictError("this submission has already been reviewed")
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t Task) (Task, error)
		// GetTaskByID loads the task with its assignments and submissions.
		GetTaskByID(ctx context.Context, id string) (Task, error)
		FilterTasks(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Task, error)
		UpdateTask(ctx context.Context, t Task) (Task, error)
		// CreateSubmission appends a submission. The storage layer enforces
		// the one-submission-per-(task,student) rule with a uniqueness
		// constraint and reports a violation as ErrAlreadySubmitted.
		CreateSubmission(ctx context.Context, taskID string, sub Submission) (Submission, error)
		// UpdateSubmission applies a review verdict. The storage layer only
		// transitions pending submissions and reports a reviewed one as
		// ErrAlreadyReviewed, so concurrent reviews cannot both land.
		UpdateSubmission(ctx context.Context, taskID string, sub Submission) (Submission, error)
	}

	// UserDirectory looks up users; satisfied by *user.Service.
	UserDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// Ledger credits point/xp rewards; satisfied by *user.Service.
	Ledger interface {
		Credit(ctx context.Context, userID string, amount int, kind user.CreditKind) (user.User, error)
	}

	Service struct {
		repo    Repository
		users   UserDirectory
		ledger  Ledger
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, users UserDirectory, ledger Ledger, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, users: users, ledger: ledger, mailSvc: mailSvc}
}

func (svc *Service) Create(ctx context.Context, actor user.User, nt NewTask) (Task, error) {
	if err := policy.CanCreateContent(actor); err != nil {
		return Task{}, err
	}
	if err := svc.checkAssignees(ctx, nt.AssignedTo); err != nil {
		return Task{}, err
	}

	difficulty := nt.Difficulty
	if difficulty == "" {
		difficulty = DifficultyEasy
	}
	assignedTo := nt.AssignedTo
	if assignedTo == nil {
		assignedTo = []string{}
	}

	now := time.Now().UTC()
	t := Task{
		Title:       nt.Title,
		Description: nt.Description,
		Category:    nt.Category,
		Points:      nt.Points,
		Difficulty:  difficulty,
		DueDate:     nt.DueDate.UTC(),
		CreatedBy:   actor.ID,
		AssignedTo:  assignedTo,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateTask(ctx, t)
}

// checkAssignees verifies every assignee is an existing active student.
func (svc *Service) checkAssignees(ctx context.Context, ids []string) error {
	for _, id := range ids {
		usr, err := svc.users.GetByID(ctx, id)
		if err != nil || !usr.IsStudent() || !usr.IsActive {
			return core.NewValidationError(
				errors.New("invalid assignees"),
				core.FieldError{Field: "assignedTo", Error: "some assigned users are invalid or not students"},
			)
		}
	}
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Task, error) {
	return svc.repo.GetTaskByID(ctx, id)
}

// Query returns active tasks matching the filter.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Task, error) {
	if filter.IsActive == nil {
		active := true
		filter.IsActive = &active
	}
	return svc.repo.FilterTasks(ctx, filter, core.DBOrdering{Field: "created_at"})
}

// Mine returns the actor's tasks: assigned ones for students, created ones
// for teachers, everything for admins.
func (svc *Service) Mine(ctx context.Context, actor user.User) ([]Task, error) {
	active := true
	filter := QueryFilter{IsActive: &active}
	switch {
	case actor.IsStudent():
		filter.AssignedTo = actor.ID
	case actor.IsTeacher():
		filter.CreatedBy = actor.ID
	}
	return svc.repo.FilterTasks(ctx, filter, core.DBOrdering{Field: "created_at"})
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, ut UpdateTask) (Task, error) {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if err = policy.CanModify(actor, t); err != nil {
		return Task{}, err
	}

	if ut.Title != "" {
		t.Title = ut.Title
	}
	if ut.Description != "" {
		t.Description = ut.Description
	}
	if ut.Category != "" {
		t.Category = ut.Category
	}
	if ut.Points != 0 {
		t.Points = ut.Points
	}
	if ut.Difficulty != "" {
		t.Difficulty = ut.Difficulty
	}
	if !ut.DueDate.IsZero() {
		t.DueDate = ut.DueDate.UTC()
	}
	if ut.AssignedTo != nil {
		if err = svc.checkAssignees(ctx, ut.AssignedTo); err != nil {
			return Task{}, err
		}
		t.AssignedTo = ut.AssignedTo
	}
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTask(ctx, t)
}

// Delete deactivates a task. Submissions carry awarded points history, so
// tasks are never hard-deleted.
func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return err
	}
	if err = policy.CanModify(actor, t); err != nil {
		return err
	}
	t.IsActive = false
	t.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateTask(ctx, t)
	return err
}

// Submit records a student's deliverable. At most one submission per
// (task, student) holds even under a double-click: the storage layer
// rejects the duplicate, not a check here.
func (svc *Service) Submit(ctx context.Context, actor user.User, taskID string, ns NewSubmission) (Submission, error) {
	if err := policy.CanSubmitTask(actor); err != nil {
		return Submission{}, err
	}

	t, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return Submission{}, err
	}
	if !t.IsActive {
		return Submission{}, ErrNotFound
	}
	if !t.IsAssignedTo(actor.ID) {
		return Submission{}, ErrNotAssigned
	}

	now := time.Now().UTC()
	files := make([]File, 0, len(ns.Files))
	for _, f := range ns.Files {
		files = append(files, File{Filename: f.Filename, Path: f.Path, UploadedAt: now})
	}

	sub := Submission{
		StudentID:   actor.ID,
		Description: ns.Description,
		Files:       files,
		Status:      StatusPending,
		SubmittedAt: now,
	}
	return svc.repo.CreateSubmission(ctx, t.ID, sub)
}

// Review applies a verdict to a pending submission. Approving with points
// credits the student exactly once; rejecting awards nothing regardless of
// the points argument, which is explicitly zeroed. Reviewed submissions are
// terminal: re-review is rejected.
func (svc *Service) Review(ctx context.Context, actor user.User, taskID string, rs ReviewSubmission) (Submission, error) {
	t, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return Submission{}, err
	}
	if err = policy.CanReview(actor, t); err != nil {
		return Submission{}, err
	}

	sub := t.SubmissionByID(rs.SubmissionID)
	if sub == nil {
		return Submission{}, ErrSubmissionNotFound
	}
	if sub.Status != StatusPending {
		return Submission{}, ErrAlreadyReviewed
	}

	points := rs.PointsAwarded
	if rs.Status == StatusRejected {
		points = 0
	}
	if points > t.Points {
		return Submission{}, core.NewValidationError(
			errors.New("invalid points"),
			core.FieldError{Field: "pointsAwarded", Error: fmt.Sprintf("points awarded cannot exceed the task's %d points", t.Points)},
		)
	}

	now := time.Now().UTC()
	sub.Status = rs.Status
	sub.Feedback = rs.Feedback
	sub.PointsAwarded = points
	sub.ReviewedBy = actor.ID
	sub.ReviewedAt = &now

	reviewed, err := svc.repo.UpdateSubmission(ctx, t.ID, *sub)
	if err != nil {
		return Submission{}, err
	}

	if reviewed.Status == StatusApproved && reviewed.PointsAwarded > 0 {
		if _, err = svc.ledger.Credit(ctx, reviewed.StudentID, reviewed.PointsAwarded, user.CreditPoints); err != nil {
			return Submission{}, errors.Wrap(err, "crediting points")
		}
		if _, err = svc.ledger.Credit(ctx, reviewed.StudentID, reviewed.PointsAwarded, user.CreditXP); err != nil {
			return Submission{}, errors.Wrap(err, "crediting xp")
		}
	}

	svc.sendReviewEmail(ctx, t, reviewed)
	return reviewed, nil
}

func (svc *Service) sendReviewEmail(ctx context.Context, t Task, sub Submission) {
	if svc.mailSvc == nil {
		return
	}
	student, err := svc.users.GetByID(ctx, sub.StudentID)
	if err != nil {
		return
	}

	body := fmt.Sprintf("Hi %s,\n\nYour submission for %q has been %s.", student.Name, t.Title, sub.Status)
	if sub.Status == StatusApproved && sub.PointsAwarded > 0 {
		body += fmt.Sprintf(" You earned %d points!", sub.PointsAwarded)
	}
	if sub.Feedback != "" {
		body += "\n\nFeedback: " + sub.Feedback
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject: fmt.Sprintf("Your submission has been %s", sub.Status),
		Body:    body,
	})
}
