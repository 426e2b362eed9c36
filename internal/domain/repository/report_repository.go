package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"
)

type ReportRepository interface {
	// Create appends a report. Reports are never updated or deleted by the
	// application; newer reports of the same kind supersede older ones.
	Create(ctx context.Context, report *model.AnalysisReport) error
	// LatestByKind resolves latest-wins by generated_at, not insertion order.
	LatestByKind(ctx context.Context, submissionID string, kind model.AnalyzerKind) (*model.AnalysisReport, error)
	ListBySubmission(ctx context.Context, submissionID string) ([]model.AnalysisReport, error)
	// CountSubmissionsWithKind counts distinct submissions that have at least
	// one report of the given kind.
	CountSubmissionsWithKind(ctx context.Context, kind model.AnalyzerKind) (int, error)
}

type pgReportRepository struct {
	db *sql.DB
}

func NewPgReportRepository(db *sql.DB) ReportRepository {
	return &pgReportRepository{db: db}
}

func (r *pgReportRepository) Create(ctx context.Context, report *model.AnalysisReport) error {
	payload, err := report.Payload.MarshalBytes()
	if err != nil {
		return fmt.Errorf("pgReportRepository.Create: marshal payload: %w", err)
	}
	query := `INSERT INTO analysis_reports (id, submission_id, kind, status, failure_reason, payload, generated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.db.ExecContext(ctx, query,
		report.ID, report.SubmissionID, report.Kind, report.Status, report.FailureReason, payload, report.GeneratedAt)
	if err != nil {
		return fmt.Errorf("pgReportRepository.Create: %w", err)
	}
	return nil
}

const reportColumns = `id, submission_id, kind, status, failure_reason, payload, generated_at`

func scanReport(scan func(dest ...any) error) (*model.AnalysisReport, error) {
	report := &model.AnalysisReport{}
	var payload []byte
	err := scan(
		&report.ID, &report.SubmissionID, &report.Kind, &report.Status,
		&report.FailureReason, &payload, &report.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	report.Payload, err = model.UnmarshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return report, nil
}

func (r *pgReportRepository) LatestByKind(ctx context.Context, submissionID string, kind model.AnalyzerKind) (*model.AnalysisReport, error) {
	query := `SELECT ` + reportColumns + ` FROM analysis_reports
	          WHERE submission_id = $1 AND kind = $2
	          ORDER BY generated_at DESC LIMIT 1`
	report, err := scanReport(r.db.QueryRowContext(ctx, query, submissionID, kind).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgReportRepository.LatestByKind: %w", err)
	}
	return report, nil
}

func (r *pgReportRepository) ListBySubmission(ctx context.Context, submissionID string) ([]model.AnalysisReport, error) {
	query := `SELECT ` + reportColumns + ` FROM analysis_reports
	          WHERE submission_id = $1 ORDER BY generated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgReportRepository.ListBySubmission: %w", err)
	}
	defer rows.Close()

	var reports []model.AnalysisReport
	for rows.Next() {
		report, err := scanReport(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("pgReportRepository.ListBySubmission scan: %w", err)
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

func (r *pgReportRepository) CountSubmissionsWithKind(ctx context.Context, kind model.AnalyzerKind) (int, error) {
	var n int
	query := `SELECT count(DISTINCT submission_id) FROM analysis_reports WHERE kind = $1`
	err := r.db.QueryRowContext(ctx, query, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pgReportRepository.CountSubmissionsWithKind: %w", err)
	}
	return n, nil
}
