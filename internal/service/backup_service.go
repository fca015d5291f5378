package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"therapytrack/internal/database"
	"therapytrack/internal/models"
	"therapytrack/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData is the complete, driver-independent dump of the database
type BackupData struct {
	Version      string              `json:"version"`
	ExportedAt   time.Time           `json:"exported_at"`
	DatabaseType string              `json:"database_type"`
	Users        []UserBackup        `json:"users"`
	Children     []models.Child      `json:"children"`
	Therapies    []models.Therapy    `json:"therapies"`
	Assessments  []models.Assessment `json:"assessments"`
}

// UserBackup is a user record including the fields hidden from API output
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ObjectStore receives uploaded backups
type ObjectStore interface {
	Put(ctx context.Context, name string, body []byte, contentType string) (string, error)
}

// BackupService exports and restores the whole database
type BackupService struct {
	db     *database.DB
	logger *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{db: db, logger: logger}
}

// Snapshot reads every table into a BackupData
func (s *BackupService) Snapshot(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.MigrationsSubdir(),
	}

	users, err := repository.NewUserRepository(s.db).ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:            u.ID,
			Email:         u.Email,
			PasswordHash:  u.PasswordHash,
			Name:          u.Name,
			Role:          string(u.Role),
			OAuthProvider: u.OAuthProvider,
			OAuthSubject:  u.OAuthSubject,
			CreatedAt:     u.CreatedAt,
			UpdatedAt:     u.UpdatedAt,
		})
	}

	if backup.Children, err = repository.NewChildRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export children: %w", err)
	}

	therapies, err := repository.NewTherapyRepository(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export therapies: %w", err)
	}
	for _, t := range therapies {
		backup.Therapies = append(backup.Therapies, t.Therapy)
	}

	assessments, err := repository.NewAssessmentRepository(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export assessments: %w", err)
	}
	for _, a := range assessments {
		backup.Assessments = append(backup.Assessments, a.Assessment)
	}

	return backup, nil
}

// ExportToWriter writes an indented JSON backup to w
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("database exported",
		zap.Int("users", len(backup.Users)),
		zap.Int("children", len(backup.Children)),
		zap.Int("therapies", len(backup.Therapies)),
		zap.Int("assessments", len(backup.Assessments)),
	)
	return backup, nil
}

// Upload exports the database and stores it under a timestamped name
func (s *BackupService) Upload(ctx context.Context, store ObjectStore) (string, error) {
	var buf bytes.Buffer
	backup, err := s.ExportToWriter(ctx, &buf)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("therapytrack-%s.json", backup.ExportedAt.Format("20060102-150405"))
	key, err := store.Put(ctx, name, buf.Bytes(), "application/json")
	if err != nil {
		return "", err
	}
	s.logger.Info("backup uploaded", zap.String("key", key))
	return key, nil
}

// ImportFromReader restores a backup in one transaction. IDs are preserved so
// references between records stay intact.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.logger.Info("importing backup",
		zap.String("version", backup.Version),
		zap.Time("exported_at", backup.ExportedAt),
	)

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := importUsers(ctx, tx, backup.Users); err != nil {
			return fmt.Errorf("failed to import users: %w", err)
		}
		if err := importChildren(ctx, tx, backup.Children); err != nil {
			return fmt.Errorf("failed to import children: %w", err)
		}
		if err := importTherapies(ctx, tx, backup.Therapies); err != nil {
			return fmt.Errorf("failed to import therapies: %w", err)
		}
		if err := importAssessments(ctx, tx, backup.Assessments); err != nil {
			return fmt.Errorf("failed to import assessments: %w", err)
		}
		return resetSequences(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("database import completed")
	return &backup, nil
}

// ClearAll deletes every record, children before parents
func (s *BackupService) ClearAll(ctx context.Context) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, table := range []string{"assessments", "therapies", "children", "sessions", "users"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func importUsers(ctx context.Context, tx database.DBTX, users []UserBackup) error {
	query := "INSERT INTO users (id, email, password_hash, name, role, oauth_provider, oauth_subject, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for _, u := range users {
		if _, err := tx.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash, u.Name, u.Role,
			nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), u.CreatedAt, u.UpdatedAt); err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importChildren(ctx context.Context, tx database.DBTX, children []models.Child) error {
	query := "INSERT INTO children (id, parent_id, fullname, nickname, child_order, birth_date, gender, education_stage, education_class, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for _, c := range children {
		var birthDate interface{}
		if c.BirthDate != nil {
			birthDate = c.BirthDate.UTC()
		}
		if _, err := tx.ExecContext(ctx, query, c.ID, c.ParentID, c.Fullname, c.Nickname, c.ChildOrder, birthDate,
			c.Gender, c.EducationStage, c.EducationClass, c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("child %d: %w", c.ID, err)
		}
	}
	return nil
}

func importTherapies(ctx context.Context, tx database.DBTX, therapies []models.Therapy) error {
	query := "INSERT INTO therapies (id, child_id, counselor_id, parent_id, title, notes, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	for _, t := range therapies {
		if _, err := tx.ExecContext(ctx, query, t.ID, t.ChildID, t.CounselorID, t.ParentID, t.Title, t.Notes, t.CreatedAt, t.UpdatedAt); err != nil {
			return fmt.Errorf("therapy %d: %w", t.ID, err)
		}
	}
	return nil
}

func importAssessments(ctx context.Context, tx database.DBTX, assessments []models.Assessment) error {
	query := "INSERT INTO assessments (id, therapy_id, kind, scores, interpretations, total_score, recommendation, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for _, a := range assessments {
		scores, err := json.Marshal(nonNilInts(a.Scores))
		if err != nil {
			return err
		}
		interpretations, err := json.Marshal(nonNilStrings(a.Interpretations))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, a.ID, a.TherapyID, string(a.Kind), string(scores), string(interpretations),
			a.Total, a.Recommendation, a.CreatedAt, a.UpdatedAt); err != nil {
			return fmt.Errorf("assessment %d: %w", a.ID, err)
		}
	}
	return nil
}

// resetSequences moves PostgreSQL id sequences past the imported IDs. SQLite
// and MySQL track the next ID from the table contents.
func resetSequences(ctx context.Context, tx database.DBTX) error {
	if tx.GetDialect().MigrationsSubdir() != "postgres" {
		return nil
	}
	for _, table := range []string{"users", "children", "therapies", "assessments"} {
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 1)) FROM %s", table, table)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset %s sequence: %w", table, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nonNilInts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func nonNilStrings(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
