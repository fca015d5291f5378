package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"therapytrack/internal/authz"
	"therapytrack/internal/metrics"
	"therapytrack/internal/models"
	"therapytrack/internal/repository"
	"therapytrack/internal/scoring"
	"therapytrack/internal/validation"
)

// AssessmentInput is a submitted assessment form. Scores hold the sub-scores
// as typed; any total sent by the client is ignored.
type AssessmentInput struct {
	Scores          map[string]string
	Interpretations map[string]string
	Recommendation  string
}

// AssessmentView is an assessment as seen by one user
type AssessmentView struct {
	models.Assessment
	ChildName string `json:"child_name"`
	CanEdit   bool   `json:"can_edit"`
}

// ScorePreview is the live total shown while a form is being filled in
type ScorePreview struct {
	Instrument string         `json:"instrument"`
	Scores     map[string]int `json:"scores"`
	Total      int            `json:"total"`
}

// ParentNotifier is told when a therapy's progress report becomes available
type ParentNotifier interface {
	SendProgressReportReady(ctx context.Context, parent *models.User, therapy *models.TherapyWithChild) error
}

// AssessmentService records and reads assessments. Every write re-checks that
// the acting user owns the therapy.
type AssessmentService struct {
	assessmentRepo *repository.AssessmentRepository
	therapyRepo    *repository.TherapyRepository
	userRepo       *repository.UserRepository
	policy         scoring.Policy
	notifier       ParentNotifier
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

// NewAssessmentService creates a new assessment service. notifier and m may be nil.
func NewAssessmentService(
	assessmentRepo *repository.AssessmentRepository,
	therapyRepo *repository.TherapyRepository,
	userRepo *repository.UserRepository,
	policy scoring.Policy,
	notifier ParentNotifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AssessmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{
		assessmentRepo: assessmentRepo,
		therapyRepo:    therapyRepo,
		userRepo:       userRepo,
		policy:         policy,
		notifier:       notifier,
		metrics:        m,
		logger:         logger,
	}
}

// CreateAssessment records the therapy's assessment of the given kind
func (s *AssessmentService) CreateAssessment(ctx context.Context, user *models.User, therapyID int64, kind models.AssessmentKind, in AssessmentInput) (*models.Assessment, error) {
	therapy, err := s.editableTherapy(ctx, user, therapyID)
	if err != nil {
		return nil, err
	}

	existing, err := s.assessmentRepo.GetByTherapy(ctx, therapyID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing assessment: %w", err)
	}
	if existing != nil {
		return nil, ErrAssessmentExists
	}

	a := &models.Assessment{TherapyID: therapyID, Kind: kind}
	if err := s.fill(a, in); err != nil {
		return nil, err
	}
	if err := s.assessmentRepo.CreateAssessment(ctx, a); err != nil {
		// a concurrent create can win the race past the check above
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAssessmentExists
		}
		return nil, err
	}

	s.metrics.AssessmentRecorded(string(kind))
	s.logger.Info("assessment recorded",
		zap.String("kind", string(kind)),
		zap.Int64("therapy_id", therapyID),
		zap.Int("total", a.Total),
	)

	if kind == models.KindPosttest {
		s.notifyParent(ctx, therapy)
	}
	return a, nil
}

// UpdateAssessment replaces the scores of an existing assessment
func (s *AssessmentService) UpdateAssessment(ctx context.Context, user *models.User, kind models.AssessmentKind, id int64, in AssessmentInput) (*models.Assessment, error) {
	a, err := s.assessmentRepo.GetAssessment(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if a == nil {
		return nil, ErrAssessmentNotFound
	}
	if _, err := s.editableTherapy(ctx, user, a.TherapyID); err != nil {
		return nil, err
	}

	if err := s.fill(a, in); err != nil {
		return nil, err
	}
	if err := s.assessmentRepo.UpdateAssessment(ctx, a); err != nil {
		return nil, err
	}

	s.metrics.AssessmentRecorded(string(kind))
	s.logger.Info("assessment updated",
		zap.String("kind", string(kind)),
		zap.Int64("assessment_id", id),
		zap.Int("total", a.Total),
	)
	return a, nil
}

// GetAssessment returns an assessment whose therapy the user may view
func (s *AssessmentService) GetAssessment(ctx context.Context, user *models.User, kind models.AssessmentKind, id int64) (*AssessmentView, error) {
	a, err := s.assessmentRepo.GetAssessment(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if a == nil {
		return nil, ErrAssessmentNotFound
	}
	therapy, err := s.therapyRepo.GetTherapyByID(ctx, a.TherapyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get therapy: %w", err)
	}
	if therapy == nil || !authz.CanView(&therapy.Therapy, user) {
		return nil, ErrAssessmentNotFound
	}
	return &AssessmentView{
		Assessment: *a,
		ChildName:  therapy.ChildName,
		CanEdit:    authz.CanEdit(&therapy.Therapy, user),
	}, nil
}

// PreviewTotal computes the live total for a form without storing anything.
// Invalid input counts as 0 here whatever the submit policy.
func (s *AssessmentService) PreviewTotal(instrument string, raw map[string]string) (*ScorePreview, error) {
	inst, ok := scoring.Lookup(instrument)
	if !ok {
		return nil, fmt.Errorf("unknown instrument %q", instrument)
	}
	sheet := scoring.NewSheet(inst)
	for _, field := range sortedKeys(raw) {
		if err := sheet.Set(field, raw[field]); err != nil {
			return nil, err
		}
	}
	return &ScorePreview{Instrument: inst.Name, Scores: sheet.Values(), Total: sheet.Total()}, nil
}

// editableTherapy loads a therapy and checks the user may change it
func (s *AssessmentService) editableTherapy(ctx context.Context, user *models.User, therapyID int64) (*models.TherapyWithChild, error) {
	therapy, err := s.therapyRepo.GetTherapyByID(ctx, therapyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get therapy: %w", err)
	}
	if therapy == nil {
		return nil, ErrTherapyNotFound
	}
	if !authz.CanEdit(&therapy.Therapy, user) {
		return nil, &ForbiddenError{TherapyID: therapyID}
	}
	return therapy, nil
}

// fill evaluates the input under the configured policy and copies the result
// into a, recomputing the total from the sub-scores
func (s *AssessmentService) fill(a *models.Assessment, in AssessmentInput) error {
	inst := scoring.ForKind(a.Kind)

	sheet, err := s.policy.Evaluate(inst, in.Scores)
	var errs validation.Errors
	if err != nil {
		fieldErrs, ok := err.(validation.Errors)
		if !ok {
			return err
		}
		errs = append(errs, fieldErrs...)
	}

	interpretations := make(map[string]string, len(in.Interpretations))
	for _, field := range sortedKeys(in.Interpretations) {
		if !inst.Has(field) {
			errs = append(errs, validation.Error{Field: "interpretations." + field, Message: "is not part of the " + inst.Name + " instrument"})
			continue
		}
		interpretations[field] = strings.TrimSpace(in.Interpretations[field])
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	a.Scores = sheet.Values()
	a.Total = sheet.Total()
	a.Interpretations = interpretations
	a.Recommendation = strings.TrimSpace(in.Recommendation)
	return nil
}

// notifyParent emails the parent; failures never fail the write
func (s *AssessmentService) notifyParent(ctx context.Context, therapy *models.TherapyWithChild) {
	if s.notifier == nil {
		return
	}
	parent, err := s.userRepo.GetUserByID(ctx, therapy.ParentID)
	if err != nil || parent == nil {
		s.logger.Warn("cannot notify parent", zap.Int64("therapy_id", therapy.ID), zap.Error(err))
		return
	}
	if err := s.notifier.SendProgressReportReady(ctx, parent, therapy); err != nil {
		s.logger.Warn("failed to send progress report email",
			zap.Int64("therapy_id", therapy.ID),
			zap.Error(err),
		)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
