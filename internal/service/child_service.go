package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"therapytrack/internal/authz"
	"therapytrack/internal/models"
	"therapytrack/internal/repository"
	"therapytrack/internal/validation"
)

// ChildInput is the data a parent submits to register a child
type ChildInput struct {
	Fullname       string     `json:"fullname"`
	Nickname       string     `json:"nickname"`
	ChildOrder     int        `json:"child_order"`
	BirthDate      *time.Time `json:"birth_date"`
	Gender         string     `json:"gender"`
	EducationStage string     `json:"education_stage"`
	EducationClass string     `json:"education_class"`
}

// ChildService handles child profiles
type ChildService struct {
	childRepo *repository.ChildRepository
}

// NewChildService creates a new child service
func NewChildService(childRepo *repository.ChildRepository) *ChildService {
	return &ChildService{childRepo: childRepo}
}

// CreateChild registers a child under the acting parent
func (s *ChildService) CreateChild(ctx context.Context, user *models.User, in ChildInput) (*models.Child, error) {
	if !user.IsParent() {
		return nil, ErrWrongRole
	}
	if in.ChildOrder == 0 {
		in.ChildOrder = 1
	}
	if err := validation.ValidateChildOrder(in.ChildOrder); err != nil {
		return nil, err
	}

	child := &models.Child{
		ParentID:       user.ID,
		Fullname:       strings.TrimSpace(in.Fullname),
		Nickname:       strings.TrimSpace(in.Nickname),
		ChildOrder:     in.ChildOrder,
		BirthDate:      in.BirthDate,
		Gender:         in.Gender,
		EducationStage: in.EducationStage,
		EducationClass: in.EducationClass,
	}
	if err := s.childRepo.CreateChild(ctx, child); err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}
	return child, nil
}

// GetChild returns a child visible to user: a parent's own child, or a child
// the counselor has a therapy with
func (s *ChildService) GetChild(ctx context.Context, user *models.User, id int64) (*models.Child, error) {
	child, err := s.childRepo.GetChildByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return nil, ErrChildNotFound
	}
	if authz.CanViewChild(child, user) {
		return child, nil
	}
	if user.IsCounselor() {
		children, err := s.childRepo.ListByCounselor(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list counselor children: %w", err)
		}
		for _, c := range children {
			if c.ID == child.ID {
				return child, nil
			}
		}
	}
	return nil, ErrChildNotFound
}

// ListChildren returns the children visible to user
func (s *ChildService) ListChildren(ctx context.Context, user *models.User) ([]models.Child, error) {
	actor, err := authz.ActorFor(user)
	if err != nil {
		return nil, err
	}

	var children []models.Child
	switch a := actor.(type) {
	case authz.Parent:
		children, err = s.childRepo.ListByParent(ctx, a.User.ID)
	case authz.Counselor:
		children, err = s.childRepo.ListByCounselor(ctx, a.User.ID)
	default:
		return nil, errors.New("unhandled actor")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	return children, nil
}
