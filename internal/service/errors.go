package service

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden          = errors.New("you are not allowed to change this therapy")
	ErrTherapyNotFound    = errors.New("therapy not found")
	ErrChildNotFound      = errors.New("child not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrAssessmentExists   = errors.New("assessment already recorded for this therapy")
	ErrWrongRole          = errors.New("this action is not available for your role")
)

// ForbiddenError is returned when a user may see a therapy but not change it.
// It matches ErrForbidden and carries the therapy to send the user back to.
type ForbiddenError struct {
	TherapyID int64
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s (therapy %d)", ErrForbidden.Error(), e.TherapyID)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}
