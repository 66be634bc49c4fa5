// Package policy centralizes role and ownership checks for core mutations.
// Checks return nil when allowed, or a core.AuthorizationError.
package policy

import (
	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/user"
)

// Resource is any entity owned by the user that created it.
type Resource interface {
	OwnerID() string
}

// CanCreateContent allows quiz/task creation for teachers and admins.
func CanCreateContent(actor user.User) error {
	if actor.IsTeacher() || actor.IsAdmin() {
		return nil
	}
	return core.NewAuthorizationError("only teachers and admins can create content")
}

// CanAttemptQuiz allows quiz attempts for students only.
func CanAttemptQuiz(actor user.User) error {
	if actor.IsStudent() {
		return nil
	}
	return core.NewAuthorizationError("only students can attempt quizzes")
}

// CanSubmitTask allows task submissions for students only. Assignment
// membership is checked by the task service, which owns the task data.
func CanSubmitTask(actor user.User) error {
	if actor.IsStudent() {
		return nil
	}
	return core.NewAuthorizationError("only students can submit tasks")
}

// CanModify allows updates/deletes by the resource creator or any admin.
func CanModify(actor user.User, res Resource) error {
	if actor.IsAdmin() || actor.ID == res.OwnerID() {
		return nil
	}
	return core.NewAuthorizationError("not authorized to modify this resource")
}

// CanReview allows reviewing submissions on the reviewer's own task, or any
// task for admins.
func CanReview(actor user.User, res Resource) error {
	if actor.IsAdmin() || actor.ID == res.OwnerID() {
		return nil
	}
	return core.NewAuthorizationError("not authorized to review this submission")
}

// CanViewResults allows viewing quiz results for the creator or any admin.
func CanViewResults(actor user.User, res Resource) error {
	if actor.IsAdmin() || actor.ID == res.OwnerID() {
		return nil
	}
	return core.NewAuthorizationError("not authorized to view these results")
}

// CanChangeRole allows role changes for admins; never on their own account.
func CanChangeRole(actor user.User, targetID string) error {
	if !actor.IsAdmin() {
		return core.NewAuthorizationError("only admins can change roles")
	}
	if actor.ID == targetID {
		return core.NewAuthorizationError("cannot change your own role")
	}
	return nil
}

// CanDeactivate allows deactivation for admins; never on their own account.
func CanDeactivate(actor user.User, targetID string) error {
	if !actor.IsAdmin() {
		return core.NewAuthorizationError("only admins can deactivate accounts")
	}
	if actor.ID == targetID {
		return core.NewAuthorizationError("cannot deactivate your own account")
	}
	return nil
}
