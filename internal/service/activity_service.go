package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"therapytrack/internal/activity"
	"therapytrack/internal/authz"
	"therapytrack/internal/models"
	"therapytrack/internal/pagination"
	"therapytrack/internal/repository"
)

// ActivityService builds the activity feed shown on the dashboard
type ActivityService struct {
	therapyRepo    *repository.TherapyRepository
	assessmentRepo *repository.AssessmentRepository
	pageSize       int
}

// NewActivityService creates a new activity service
func NewActivityService(therapyRepo *repository.TherapyRepository, assessmentRepo *repository.AssessmentRepository, pageSize int) *ActivityService {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &ActivityService{
		therapyRepo:    therapyRepo,
		assessmentRepo: assessmentRepo,
		pageSize:       pageSize,
	}
}

// Feed loads therapies and every assessment kind in parallel and projects them
// into activities. The result is unsorted; Filter orders it.
func (s *ActivityService) Feed(ctx context.Context, user *models.User) ([]activity.Activity, error) {
	actor, err := authz.ActorFor(user)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)

	var therapies []models.TherapyWithChild
	g.Go(func() error {
		var err error
		switch a := actor.(type) {
		case authz.Counselor:
			therapies, err = s.therapyRepo.ListByCounselor(gctx, a.User.ID)
		case authz.Parent:
			therapies, err = s.therapyRepo.ListByParent(gctx, a.User.ID)
		}
		return err
	})

	byKind := make([][]models.AssessmentWithChild, len(models.AssessmentKinds))
	for i, kind := range models.AssessmentKinds {
		g.Go(func() error {
			var err error
			switch a := actor.(type) {
			case authz.Counselor:
				byKind[i], err = s.assessmentRepo.ListByCounselor(gctx, a.User.ID, kind)
			case authz.Parent:
				byKind[i], err = s.assessmentRepo.ListByParent(gctx, a.User.ID, kind)
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	feed := make([]activity.Activity, 0, len(therapies))
	for _, t := range therapies {
		feed = append(feed, activity.FromTherapy(t.Therapy, t.ChildName))
	}
	for _, list := range byKind {
		for _, a := range list {
			feed = append(feed, activity.FromAssessment(a.Assessment, a.ChildName))
		}
	}
	return feed, nil
}

// Page filters the feed by type and query and returns the requested page.
// An unknown type is an error; an out-of-range page is clamped.
func (s *ActivityService) Page(ctx context.Context, user *models.User, typeFilter, query string, page int) (pagination.Page[activity.Activity], error) {
	if _, err := activity.ParseType(typeFilter); err != nil {
		return pagination.Page[activity.Activity]{}, err
	}

	feed, err := s.Feed(ctx, user)
	if err != nil {
		return pagination.Page[activity.Activity]{}, err
	}

	state := pagination.NewState(s.pageSize)
	state.SetFilter(typeFilter)
	state.SetQuery(query)
	state.Page = page
	return pagination.Apply(state, feed, filterActivities), nil
}

func filterActivities(items []activity.Activity, filter, query string) []activity.Activity {
	typ, err := activity.ParseType(filter)
	if err != nil {
		return nil
	}
	return activity.Filter(items, typ, query)
}
