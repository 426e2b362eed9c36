package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"
)

type SubmissionRepository interface {
	// Create inserts the submission and its file rows atomically.
	Create(ctx context.Context, sub *model.Submission) error
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	ListByStudent(ctx context.Context, studentID string, limit int) ([]model.Submission, error)
	UpdateStatus(ctx context.Context, id string, status model.SubmissionStatus) error
	CountAll(ctx context.Context) (int, error)
	// Delete removes the submission row; file and report rows cascade.
	Delete(ctx context.Context, id string) error
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	tags, err := json.Marshal(sub.Tags)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create: marshal tags: %w", err)
	}
	langs, err := json.Marshal(sub.Languages)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create: marshal languages: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create: begin: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO submissions (id, student_id, kind, title, slug, description, tags, languages, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.ExecContext(ctx, query,
		sub.ID, sub.StudentID, sub.Kind, sub.Title, sub.Slug, sub.Description, tags, langs, sub.Status)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create: %w", err)
	}

	fileQuery := `INSERT INTO submission_files (id, submission_id, blob_id, original_name, content_type, size_bytes, detected_language, position)
	              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, f := range sub.Files {
		_, err = tx.ExecContext(ctx, fileQuery,
			f.ID, sub.ID, f.BlobID, f.OriginalName, f.ContentType, f.SizeBytes, f.DetectedLanguage, f.Position)
		if err != nil {
			return fmt.Errorf("pgSubmissionRepository.Create file %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create: commit: %w", err)
	}
	return nil
}

const submissionColumns = `id, student_id, kind, title, slug, description, tags, languages, status, created_at, updated_at`

func scanSubmission(scan func(dest ...any) error) (*model.Submission, error) {
	sub := &model.Submission{}
	var tags, langs []byte
	err := scan(
		&sub.ID, &sub.StudentID, &sub.Kind, &sub.Title, &sub.Slug, &sub.Description,
		&tags, &langs, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &sub.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(langs, &sub.Languages); err != nil {
		return nil, fmt.Errorf("unmarshal languages: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.FindByID: %w", err)
	}

	files, err := r.filesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.Files = files
	return sub, nil
}

func (r *pgSubmissionRepository) filesFor(ctx context.Context, submissionID string) ([]model.SubmissionFile, error) {
	query := `SELECT id, submission_id, blob_id, original_name, content_type, size_bytes, detected_language, position
	          FROM submission_files WHERE submission_id = $1 ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.filesFor: %w", err)
	}
	defer rows.Close()

	var files []model.SubmissionFile
	for rows.Next() {
		var f model.SubmissionFile
		if err := rows.Scan(&f.ID, &f.SubmissionID, &f.BlobID, &f.OriginalName,
			&f.ContentType, &f.SizeBytes, &f.DetectedLanguage, &f.Position); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.filesFor scan: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *pgSubmissionRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions
	          WHERE student_id = $1 ORDER BY created_at DESC`
	args := []any{studentID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByStudent: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListByStudent scan: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (r *pgSubmissionRepository) UpdateStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	query := `UPDATE submissions SET status = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgSubmissionRepository) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM submissions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.CountAll: %w", err)
	}
	return n, nil
}

func (r *pgSubmissionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
