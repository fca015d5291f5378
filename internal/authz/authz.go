// Package authz holds the access predicates for therapy-linked records.
//
// All checks fail closed: a missing user or record is never authorized.
package authz

import (
	"errors"
	"fmt"

	"therapytrack/internal/models"
)

// ErrUnknownRole is returned when a user carries a role outside the known set
var ErrUnknownRole = errors.New("unknown role")

// CanEdit reports whether user may change therapy or any of its assessments.
// Only the counselor who owns the therapy may edit it.
func CanEdit(therapy *models.Therapy, user *models.User) bool {
	if therapy == nil || user == nil {
		return false
	}
	return user.Role == models.RoleCounselor && user.ID == therapy.CounselorID
}

// CanView reports whether user may read therapy: its owning counselor or the
// parent of the child it belongs to.
func CanView(therapy *models.Therapy, user *models.User) bool {
	if therapy == nil || user == nil {
		return false
	}
	switch user.Role {
	case models.RoleCounselor:
		return user.ID == therapy.CounselorID
	case models.RoleParent:
		return user.ID == therapy.ParentID
	}
	return false
}

// CanViewChild reports whether a parent owns child. Counselor access to a child
// goes through their therapies and is resolved by the service layer.
func CanViewChild(child *models.Child, user *models.User) bool {
	if child == nil || user == nil {
		return false
	}
	return user.Role == models.RoleParent && user.ID == child.ParentID
}

// Actor is the acting user, narrowed to one of its role variants
type Actor interface {
	Account() *models.User
	isActor()
}

// Counselor is an actor holding the counselor role
type Counselor struct {
	User *models.User
}

// Parent is an actor holding the parent role
type Parent struct {
	User *models.User
}

func (c Counselor) Account() *models.User { return c.User }
func (Counselor) isActor()                {}

func (p Parent) Account() *models.User { return p.User }
func (Parent) isActor()                {}

// ActorFor narrows user to its role variant
func ActorFor(user *models.User) (Actor, error) {
	if user == nil {
		return nil, errors.New("no user")
	}
	switch user.Role {
	case models.RoleCounselor:
		return Counselor{User: user}, nil
	case models.RoleParent:
		return Parent{User: user}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRole, user.Role)
}
