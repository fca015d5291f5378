package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"therapytrack/internal/database"
	"therapytrack/internal/models"
)

const assessmentColumns = `a.id, a.therapy_id, a.kind, a.scores, a.interpretations, a.total_score, a.recommendation, a.created_at, a.updated_at`

// AssessmentRepository stores every assessment variant in one table.
// Sub-scores and interpretations are kept as JSON objects.
type AssessmentRepository struct {
	db database.DBTX
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db database.DBTX) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// CreateAssessment inserts a and fills in its ID and timestamps
func (r *AssessmentRepository) CreateAssessment(ctx context.Context, a *models.Assessment) error {
	scores, interpretations, err := encodeAssessment(a)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assessments (therapy_id, kind, scores, interpretations, total_score, recommendation)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		a.TherapyID,
		string(a.Kind),
		scores,
		interpretations,
		a.Total,
		a.Recommendation,
	)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%s assessment for therapy %d: %w", a.Kind, a.TherapyID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s assessment: %w", a.Kind, err)
	}

	now := time.Now()
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// UpdateAssessment overwrites the scores, total and recommendation of a
func (r *AssessmentRepository) UpdateAssessment(ctx context.Context, a *models.Assessment) error {
	scores, interpretations, err := encodeAssessment(a)
	if err != nil {
		return err
	}

	query := `
		UPDATE assessments
		SET scores = ?, interpretations = ?, total_score = ?, recommendation = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND kind = ?
	`
	if _, err := r.db.ExecContext(ctx, query, scores, interpretations, a.Total, a.Recommendation, a.ID, string(a.Kind)); err != nil {
		return fmt.Errorf("failed to update %s assessment: %w", a.Kind, err)
	}
	a.UpdatedAt = time.Now()
	return nil
}

// GetAssessment retrieves an assessment of the given kind by ID
func (r *AssessmentRepository) GetAssessment(ctx context.Context, kind models.AssessmentKind, id int64) (*models.Assessment, error) {
	query := "SELECT " + assessmentColumns + " FROM assessments a WHERE a.id = ? AND a.kind = ?"
	return r.get(ctx, query, id, string(kind))
}

// GetByTherapy retrieves the therapy's assessment of the given kind
func (r *AssessmentRepository) GetByTherapy(ctx context.Context, therapyID int64, kind models.AssessmentKind) (*models.Assessment, error) {
	query := "SELECT " + assessmentColumns + " FROM assessments a WHERE a.therapy_id = ? AND a.kind = ?"
	return r.get(ctx, query, therapyID, string(kind))
}

func (r *AssessmentRepository) get(ctx context.Context, query string, args ...interface{}) (*models.Assessment, error) {
	a, err := scanAssessment(r.db.QueryRowContext(ctx, query, args...), nil)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return &a.Assessment, nil
}

// ListByTherapy retrieves all assessments of a therapy
func (r *AssessmentRepository) ListByTherapy(ctx context.Context, therapyID int64) ([]models.Assessment, error) {
	query := "SELECT " + assessmentColumns + " FROM assessments a WHERE a.therapy_id = ? ORDER BY a.id ASC"
	rows, err := r.db.QueryContext(ctx, query, therapyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var out []models.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		out = append(out, a.Assessment)
	}
	return out, rows.Err()
}

// ListByCounselor retrieves the assessments of one kind across the counselor's therapies
func (r *AssessmentRepository) ListByCounselor(ctx context.Context, counselorID int64, kind models.AssessmentKind) ([]models.AssessmentWithChild, error) {
	return r.listWithChild(ctx, "t.counselor_id = ? AND a.kind = ?", counselorID, string(kind))
}

// ListByParent retrieves the assessments of one kind across a parent's children
func (r *AssessmentRepository) ListByParent(ctx context.Context, parentID int64, kind models.AssessmentKind) ([]models.AssessmentWithChild, error) {
	return r.listWithChild(ctx, "t.parent_id = ? AND a.kind = ?", parentID, string(kind))
}

// ListAll retrieves every assessment
func (r *AssessmentRepository) ListAll(ctx context.Context) ([]models.AssessmentWithChild, error) {
	return r.listWithChild(ctx, "1 = 1")
}

func (r *AssessmentRepository) listWithChild(ctx context.Context, where string, args ...interface{}) ([]models.AssessmentWithChild, error) {
	query := `
		SELECT ` + assessmentColumns + `, c.fullname, c.child_order
		FROM assessments a
		JOIN therapies t ON t.id = a.therapy_id
		JOIN children c ON c.id = t.child_id
		WHERE ` + where + `
		ORDER BY a.created_at DESC, a.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var out []models.AssessmentWithChild
	for rows.Next() {
		child := &models.Child{}
		a, err := scanAssessment(rows, child)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		a.ChildName = child.DisplayName()
		out = append(out, *a)
	}
	return out, rows.Err()
}

// scanAssessment reads one row; when child is non-nil the row also carries the
// child's fullname and order
func scanAssessment(row rowScanner, child *models.Child) (*models.AssessmentWithChild, error) {
	out := &models.AssessmentWithChild{}
	a := &out.Assessment
	var kind, scores, interpretations string
	dest := []interface{}{
		&a.ID,
		&a.TherapyID,
		&kind,
		&scores,
		&interpretations,
		&a.Total,
		&a.Recommendation,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
	if child != nil {
		dest = append(dest, &child.Fullname, &child.ChildOrder)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	a.Kind = models.AssessmentKind(kind)
	if err := json.Unmarshal([]byte(scores), &a.Scores); err != nil {
		return nil, fmt.Errorf("failed to decode scores: %w", err)
	}
	if err := json.Unmarshal([]byte(interpretations), &a.Interpretations); err != nil {
		return nil, fmt.Errorf("failed to decode interpretations: %w", err)
	}
	return out, nil
}

func encodeAssessment(a *models.Assessment) (string, string, error) {
	scores := a.Scores
	if scores == nil {
		scores = map[string]int{}
	}
	interpretations := a.Interpretations
	if interpretations == nil {
		interpretations = map[string]string{}
	}

	s, err := json.Marshal(scores)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode scores: %w", err)
	}
	i, err := json.Marshal(interpretations)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode interpretations: %w", err)
	}
	return string(s), string(i), nil
}
