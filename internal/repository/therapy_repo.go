package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"therapytrack/internal/database"
	"therapytrack/internal/models"
)

const therapyColumns = `t.id, t.child_id, t.counselor_id, t.parent_id, t.title, t.notes, t.created_at, t.updated_at, c.fullname, c.child_order`

const therapyFrom = ` FROM therapies t JOIN children c ON c.id = t.child_id`

// TherapyRepository handles database operations for therapies
type TherapyRepository struct {
	db database.DBTX
}

// NewTherapyRepository creates a new therapy repository
func NewTherapyRepository(db database.DBTX) *TherapyRepository {
	return &TherapyRepository{db: db}
}

// CreateTherapy inserts therapy and fills in its ID and timestamps
func (r *TherapyRepository) CreateTherapy(ctx context.Context, therapy *models.Therapy) error {
	query := `
		INSERT INTO therapies (child_id, counselor_id, parent_id, title, notes)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		therapy.ChildID,
		therapy.CounselorID,
		therapy.ParentID,
		therapy.Title,
		therapy.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create therapy: %w", err)
	}

	now := time.Now()
	therapy.ID = id
	therapy.CreatedAt = now
	therapy.UpdatedAt = now
	return nil
}

// GetTherapyByID retrieves a therapy together with its child's display name
func (r *TherapyRepository) GetTherapyByID(ctx context.Context, id int64) (*models.TherapyWithChild, error) {
	query := "SELECT " + therapyColumns + therapyFrom + " WHERE t.id = ?"
	therapy, err := scanTherapy(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get therapy: %w", err)
	}
	return therapy, nil
}

// UpdateTherapy changes the title and notes. Child and parent links are fixed.
func (r *TherapyRepository) UpdateTherapy(ctx context.Context, id int64, title, notes string) error {
	query := "UPDATE therapies SET title = ?, notes = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, title, notes, id); err != nil {
		return fmt.Errorf("failed to update therapy: %w", err)
	}
	return nil
}

// ListByCounselor retrieves the counselor's therapies, newest first
func (r *TherapyRepository) ListByCounselor(ctx context.Context, counselorID int64) ([]models.TherapyWithChild, error) {
	return r.list(ctx, "SELECT "+therapyColumns+therapyFrom+" WHERE t.counselor_id = ? ORDER BY t.created_at DESC, t.id DESC", counselorID)
}

// ListByParent retrieves the therapies of a parent's children, newest first
func (r *TherapyRepository) ListByParent(ctx context.Context, parentID int64) ([]models.TherapyWithChild, error) {
	return r.list(ctx, "SELECT "+therapyColumns+therapyFrom+" WHERE t.parent_id = ? ORDER BY t.created_at DESC, t.id DESC", parentID)
}

// ListAll retrieves every therapy
func (r *TherapyRepository) ListAll(ctx context.Context) ([]models.TherapyWithChild, error) {
	return r.list(ctx, "SELECT "+therapyColumns+therapyFrom+" ORDER BY t.id ASC")
}

func (r *TherapyRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.TherapyWithChild, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query therapies: %w", err)
	}
	defer rows.Close()

	var therapies []models.TherapyWithChild
	for rows.Next() {
		therapy, err := scanTherapy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan therapy: %w", err)
		}
		therapies = append(therapies, *therapy)
	}
	return therapies, rows.Err()
}

func scanTherapy(row rowScanner) (*models.TherapyWithChild, error) {
	therapy := &models.TherapyWithChild{}
	child := models.Child{}
	if err := row.Scan(
		&therapy.ID,
		&therapy.ChildID,
		&therapy.CounselorID,
		&therapy.ParentID,
		&therapy.Title,
		&therapy.Notes,
		&therapy.CreatedAt,
		&therapy.UpdatedAt,
		&child.Fullname,
		&child.ChildOrder,
	); err != nil {
		return nil, err
	}
	therapy.ChildName = child.DisplayName()
	return therapy, nil
}
