package service

import (
	"context"
	"fmt"

	"therapytrack/internal/authz"
	"therapytrack/internal/models"
	"therapytrack/internal/repository"
	"therapytrack/internal/scoring"
)

// higherIsBetter lists the SDQ scales where a rising score is an improvement
var higherIsBetter = map[string]bool{"prosocial": true}

// ReportService builds read-only progress reports
type ReportService struct {
	therapyRepo    *repository.TherapyRepository
	assessmentRepo *repository.AssessmentRepository
}

// NewReportService creates a new report service
func NewReportService(therapyRepo *repository.TherapyRepository, assessmentRepo *repository.AssessmentRepository) *ReportService {
	return &ReportService{therapyRepo: therapyRepo, assessmentRepo: assessmentRepo}
}

// ProgressReport collects a therapy's assessments and compares pretest with
// posttest scale by scale
func (s *ReportService) ProgressReport(ctx context.Context, user *models.User, therapyID int64) (*models.ProgressReport, error) {
	therapy, err := s.therapyRepo.GetTherapyByID(ctx, therapyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get therapy: %w", err)
	}
	if therapy == nil || !authz.CanView(&therapy.Therapy, user) {
		return nil, ErrTherapyNotFound
	}

	assessments, err := s.assessmentRepo.ListByTherapy(ctx, therapyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	report := &models.ProgressReport{Therapy: *therapy}
	for i := range assessments {
		a := &assessments[i]
		switch a.Kind {
		case models.KindScreening:
			report.Screening = a
		case models.KindPretest:
			report.Pretest = a
		case models.KindObservation:
			report.Observation = a
		case models.KindPosttest:
			report.Posttest = a
		}
	}

	report.Changes = CompareScales(report.Pretest, report.Posttest)
	report.Complete = report.Screening != nil && report.Pretest != nil &&
		report.Observation != nil && report.Posttest != nil
	return report, nil
}

// CompareScales returns the per-scale change from pretest to posttest, or nil
// until both are recorded
func CompareScales(pretest, posttest *models.Assessment) []models.ScaleChange {
	if pretest == nil || posttest == nil {
		return nil
	}
	changes := make([]models.ScaleChange, 0, len(scoring.SDQ.Fields))
	for _, scale := range scoring.SDQ.Fields {
		before, after := pretest.Scores[scale], posttest.Scores[scale]
		delta := after - before
		improved := delta < 0
		if higherIsBetter[scale] {
			improved = delta > 0
		}
		changes = append(changes, models.ScaleChange{
			Name:     scale,
			Pretest:  before,
			Posttest: after,
			Delta:    delta,
			Improved: improved,
		})
	}
	return changes
}
