package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"therapytrack/internal/authz"
	"therapytrack/internal/models"
	"therapytrack/internal/pagination"
	"therapytrack/internal/repository"
	"therapytrack/internal/validation"
)

// TherapyInput is the data a counselor submits to open a therapy
type TherapyInput struct {
	ChildID int64  `json:"child_id"`
	Title   string `json:"title"`
	Notes   string `json:"notes"`
}

// TherapyView is a therapy as seen by one user
type TherapyView struct {
	models.TherapyWithChild
	CanEdit bool `json:"can_edit"`
}

// TherapyService handles therapies and their access rules
type TherapyService struct {
	therapyRepo *repository.TherapyRepository
	childRepo   *repository.ChildRepository
	pageSize    int
}

// NewTherapyService creates a new therapy service
func NewTherapyService(therapyRepo *repository.TherapyRepository, childRepo *repository.ChildRepository, pageSize int) *TherapyService {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &TherapyService{
		therapyRepo: therapyRepo,
		childRepo:   childRepo,
		pageSize:    pageSize,
	}
}

// CreateTherapy opens a therapy for a child, owned by the acting counselor.
// The parent link is copied from the child and never changes afterwards.
func (s *TherapyService) CreateTherapy(ctx context.Context, user *models.User, in TherapyInput) (*models.TherapyWithChild, error) {
	if !user.IsCounselor() {
		return nil, ErrWrongRole
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validation.Error{Field: "title", Message: "title is required"}
	}

	child, err := s.childRepo.GetChildByID(ctx, in.ChildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return nil, ErrChildNotFound
	}

	therapy := &models.Therapy{
		ChildID:     child.ID,
		CounselorID: user.ID,
		ParentID:    child.ParentID,
		Title:       title,
		Notes:       in.Notes,
	}
	if err := s.therapyRepo.CreateTherapy(ctx, therapy); err != nil {
		return nil, fmt.Errorf("failed to create therapy: %w", err)
	}
	return &models.TherapyWithChild{Therapy: *therapy, ChildName: child.DisplayName()}, nil
}

// GetTherapy returns a therapy the user may view. Therapies the user may not
// view are reported as not found.
func (s *TherapyService) GetTherapy(ctx context.Context, user *models.User, id int64) (*TherapyView, error) {
	therapy, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(&therapy.Therapy, user) {
		return nil, ErrTherapyNotFound
	}
	return &TherapyView{TherapyWithChild: *therapy, CanEdit: authz.CanEdit(&therapy.Therapy, user)}, nil
}

// UpdateTherapy changes the title and notes of a therapy the user owns
func (s *TherapyService) UpdateTherapy(ctx context.Context, user *models.User, id int64, title, notes string) (*models.TherapyWithChild, error) {
	therapy, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEdit(&therapy.Therapy, user) {
		return nil, &ForbiddenError{TherapyID: id}
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validation.Error{Field: "title", Message: "title is required"}
	}
	if err := s.therapyRepo.UpdateTherapy(ctx, id, title, notes); err != nil {
		return nil, err
	}
	therapy.Title = title
	therapy.Notes = notes
	return therapy, nil
}

// ListTherapies returns the therapies visible to user, newest first
func (s *TherapyService) ListTherapies(ctx context.Context, user *models.User) ([]models.TherapyWithChild, error) {
	actor, err := authz.ActorFor(user)
	if err != nil {
		return nil, err
	}

	var therapies []models.TherapyWithChild
	switch a := actor.(type) {
	case authz.Counselor:
		therapies, err = s.therapyRepo.ListByCounselor(ctx, a.User.ID)
	case authz.Parent:
		therapies, err = s.therapyRepo.ListByParent(ctx, a.User.ID)
	default:
		return nil, errors.New("unhandled actor")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list therapies: %w", err)
	}
	return therapies, nil
}

// PageTherapies lists the user's therapies filtered by query and sliced to page
func (s *TherapyService) PageTherapies(ctx context.Context, user *models.User, query string, page int) (pagination.Page[models.TherapyWithChild], error) {
	therapies, err := s.ListTherapies(ctx, user)
	if err != nil {
		return pagination.Page[models.TherapyWithChild]{}, err
	}

	state := pagination.NewState(s.pageSize)
	state.SetQuery(query)
	state.Page = page
	return pagination.Apply(state, therapies, filterTherapies), nil
}

func filterTherapies(items []models.TherapyWithChild, _, query string) []models.TherapyWithChild {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	var out []models.TherapyWithChild
	for _, t := range items {
		if strings.Contains(strings.ToLower(t.ChildName), q) || strings.Contains(strings.ToLower(t.Title), q) {
			out = append(out, t)
		}
	}
	return out
}

func (s *TherapyService) load(ctx context.Context, id int64) (*models.TherapyWithChild, error) {
	therapy, err := s.therapyRepo.GetTherapyByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get therapy: %w", err)
	}
	if therapy == nil {
		return nil, ErrTherapyNotFound
	}
	return therapy, nil
}
