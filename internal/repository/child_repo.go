package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"therapytrack/internal/database"
	"therapytrack/internal/models"
)

const childColumns = `c.id, c.parent_id, c.fullname, c.nickname, c.child_order, c.birth_date, c.gender, c.education_stage, c.education_class, c.created_at, c.updated_at`

// ChildRepository handles database operations for child profiles
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

// CreateChild inserts child and fills in its ID and timestamps
func (r *ChildRepository) CreateChild(ctx context.Context, child *models.Child) error {
	query := `
		INSERT INTO children (parent_id, fullname, nickname, child_order, birth_date, gender, education_stage, education_class)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		child.ParentID,
		child.Fullname,
		child.Nickname,
		child.ChildOrder,
		nullTime(child.BirthDate),
		child.Gender,
		child.EducationStage,
		child.EducationClass,
	)
	if err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}

	now := time.Now()
	child.ID = id
	child.CreatedAt = now
	child.UpdatedAt = now
	return nil
}

// GetChildByID retrieves a child by ID
func (r *ChildRepository) GetChildByID(ctx context.Context, id int64) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children c WHERE c.id = ?"
	child, err := scanChild(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

// ListByParent retrieves a parent's children in birth order
func (r *ChildRepository) ListByParent(ctx context.Context, parentID int64) ([]models.Child, error) {
	query := "SELECT " + childColumns + " FROM children c WHERE c.parent_id = ? ORDER BY c.child_order ASC, c.id ASC"
	return r.list(ctx, query, parentID)
}

// ListByCounselor retrieves every child that has a therapy with the counselor
func (r *ChildRepository) ListByCounselor(ctx context.Context, counselorID int64) ([]models.Child, error) {
	query := `
		SELECT ` + childColumns + `
		FROM children c
		WHERE c.id IN (SELECT t.child_id FROM therapies t WHERE t.counselor_id = ?)
		ORDER BY c.fullname ASC, c.id ASC
	`
	return r.list(ctx, query, counselorID)
}

// ListAll retrieves every child
func (r *ChildRepository) ListAll(ctx context.Context) ([]models.Child, error) {
	return r.list(ctx, "SELECT "+childColumns+" FROM children c ORDER BY c.id ASC")
}

func (r *ChildRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Child, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *child)
	}
	return children, rows.Err()
}

func scanChild(row rowScanner) (*models.Child, error) {
	child := &models.Child{}
	var birthDate sql.NullTime
	if err := row.Scan(
		&child.ID,
		&child.ParentID,
		&child.Fullname,
		&child.Nickname,
		&child.ChildOrder,
		&birthDate,
		&child.Gender,
		&child.EducationStage,
		&child.EducationClass,
		&child.CreatedAt,
		&child.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if birthDate.Valid {
		t := birthDate.Time
		child.BirthDate = &t
	}
	return child, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
