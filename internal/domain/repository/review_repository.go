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

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	FindByID(ctx context.Context, id string) (*model.Review, error)
	ListBySubmission(ctx context.Context, submissionID string) ([]model.Review, error)
	// Complete records the reviewer's scores and feedback and marks the
	// review completed.
	Complete(ctx context.Context, review *model.Review) error
}

type pgReviewRepository struct {
	db *sql.DB
}

func NewPgReviewRepository(db *sql.DB) ReviewRepository {
	return &pgReviewRepository{db: db}
}

func (r *pgReviewRepository) Create(ctx context.Context, review *model.Review) error {
	scores, err := marshalScores(review.CriteriaScores)
	if err != nil {
		return fmt.Errorf("pgReviewRepository.Create: %w", err)
	}
	query := `INSERT INTO reviews (id, submission_id, reviewer_id, reviewer_name, reviewer_type, status, is_anonymous, criteria_scores, overall_score, feedback, assigned_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.db.ExecContext(ctx, query,
		review.ID, review.SubmissionID, review.ReviewerID, review.ReviewerName, review.ReviewerType,
		review.Status, review.IsAnonymous, scores, review.OverallScore, review.Feedback, review.AssignedAt)
	if err != nil {
		return fmt.Errorf("pgReviewRepository.Create: %w", err)
	}
	return nil
}

const reviewColumns = `id, submission_id, reviewer_id, reviewer_name, reviewer_type, status, is_anonymous, criteria_scores, overall_score, feedback, assigned_at, completed_at`

func scanReview(scan func(dest ...any) error) (*model.Review, error) {
	review := &model.Review{}
	var scores []byte
	err := scan(
		&review.ID, &review.SubmissionID, &review.ReviewerID, &review.ReviewerName,
		&review.ReviewerType, &review.Status, &review.IsAnonymous, &scores,
		&review.OverallScore, &review.Feedback, &review.AssignedAt, &review.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &review.CriteriaScores); err != nil {
			return nil, fmt.Errorf("unmarshal criteria_scores: %w", err)
		}
	}
	return review, nil
}

func (r *pgReviewRepository) FindByID(ctx context.Context, id string) (*model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	review, err := scanReview(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgReviewRepository.FindByID: %w", err)
	}
	return review, nil
}

func (r *pgReviewRepository) ListBySubmission(ctx context.Context, submissionID string) ([]model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews
	          WHERE submission_id = $1 ORDER BY assigned_at DESC`
	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgReviewRepository.ListBySubmission: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		review, err := scanReview(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("pgReviewRepository.ListBySubmission scan: %w", err)
		}
		reviews = append(reviews, *review)
	}
	return reviews, rows.Err()
}

func (r *pgReviewRepository) Complete(ctx context.Context, review *model.Review) error {
	scores, err := marshalScores(review.CriteriaScores)
	if err != nil {
		return fmt.Errorf("pgReviewRepository.Complete: %w", err)
	}
	query := `UPDATE reviews
	          SET status = $2, criteria_scores = $3, overall_score = $4, feedback = $5, completed_at = $6
	          WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		review.ID, review.Status, scores, review.OverallScore, review.Feedback, review.CompletedAt)
	if err != nil {
		return fmt.Errorf("pgReviewRepository.Complete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func marshalScores(scores map[string]float64) ([]byte, error) {
	if scores == nil {
		return nil, nil
	}
	b, err := json.Marshal(scores)
	if err != nil {
		return nil, fmt.Errorf("marshal criteria_scores: %w", err)
	}
	return b, nil
}
