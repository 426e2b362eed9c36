package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"proctorhub/internal/app/analyzer"
	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"
	dr "proctorhub/internal/domain/repository"
	"proctorhub/internal/platform/blob"
)

// AnalysisService orchestrates analyzer runs over a submission and owns the
// uploaded -> analyzing -> analyzed/failed status transitions. Analyzer
// failures produce failed reports and still end in analyzed; only
// infrastructure failures (blobs unreadable, reports unpersistable) mark the
// submission itself failed.
type AnalysisService struct {
	subRepo    dr.SubmissionRepository
	reportRepo dr.ReportRepository
	blobs      *blob.Store
	registry   *analyzer.Registry
}

func NewAnalysisService(subRepo dr.SubmissionRepository, reportRepo dr.ReportRepository, blobs *blob.Store, registry *analyzer.Registry) *AnalysisService {
	return &AnalysisService{
		subRepo:    subRepo,
		reportRepo: reportRepo,
		blobs:      blobs,
		registry:   registry,
	}
}

// Analyze runs the requested analyzer kinds and persists one report per
// kind. Concurrent runs on the same submission are not serialized: reports
// are append-only and reads take the latest, so the last writer wins.
func (s *AnalysisService) Analyze(ctx context.Context, callerID, callerRole, submissionID string, kinds []model.AnalyzerKind) ([]*model.AnalysisReport, error) {
	sub, err := s.authorize(ctx, callerID, callerRole, submissionID)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		kinds = model.AllAnalyzerKinds
	}

	if err := s.subRepo.UpdateStatus(ctx, sub.ID, model.StatusAnalyzing); err != nil {
		return nil, err
	}

	// Analysis keeps running if the caller disconnects; a half-finished run
	// would leave the submission stuck in analyzing.
	detached := context.WithoutCancel(ctx)

	in, err := s.buildInput(sub)
	if err != nil {
		s.markFailed(detached, sub.ID)
		return nil, fmt.Errorf("failed to read submission files: %v: %w", err, common.ErrServiceUnavailable)
	}

	reports := s.registry.RunAll(detached, kinds, in)

	for _, rep := range reports {
		if err := s.reportRepo.Create(detached, rep); err != nil {
			s.markFailed(detached, sub.ID)
			return nil, fmt.Errorf("failed to persist %s report: %v: %w", rep.Kind, err, common.ErrServiceUnavailable)
		}
	}

	if err := s.subRepo.UpdateStatus(detached, sub.ID, model.StatusAnalyzed); err != nil {
		return nil, err
	}
	return reports, nil
}

// LatestReport returns the most recent report of the given kind, or
// ErrNotFound when the submission was never analyzed with it.
func (s *AnalysisService) LatestReport(ctx context.Context, callerID, callerRole, submissionID string, kind model.AnalyzerKind) (*model.AnalysisReport, error) {
	if _, err := s.authorize(ctx, callerID, callerRole, submissionID); err != nil {
		return nil, err
	}
	return s.reportRepo.LatestByKind(ctx, submissionID, kind)
}

func (s *AnalysisService) ListReports(ctx context.Context, callerID, callerRole, submissionID string) ([]model.AnalysisReport, error) {
	if _, err := s.authorize(ctx, callerID, callerRole, submissionID); err != nil {
		return nil, err
	}
	return s.reportRepo.ListBySubmission(ctx, submissionID)
}

func (s *AnalysisService) authorize(ctx context.Context, callerID, callerRole, submissionID string) (*model.Submission, error) {
	sub, err := s.subRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleTeacher && sub.StudentID != callerID {
		return nil, fmt.Errorf("submission belongs to another student: %w", common.ErrForbidden)
	}
	return sub, nil
}

func (s *AnalysisService) buildInput(sub *model.Submission) (*analyzer.Input, error) {
	in := &analyzer.Input{Submission: sub}
	var text strings.Builder
	for _, f := range sub.Files {
		data, err := s.blobs.Get(f.BlobID)
		if err != nil {
			return nil, fmt.Errorf("blob %s (%s): %w", f.BlobID, f.OriginalName, err)
		}
		af := analyzer.File{
			ID:      f.ID,
			Name:    f.OriginalName,
			Content: string(data),
		}
		if f.DetectedLanguage != nil {
			af.Language = *f.DetectedLanguage
		}
		in.Files = append(in.Files, af)
		text.Write(data)
		text.WriteString("\n")
	}
	in.Text = text.String()
	return in, nil
}

func (s *AnalysisService) markFailed(ctx context.Context, submissionID string) {
	if err := s.subRepo.UpdateStatus(ctx, submissionID, model.StatusFailed); err != nil {
		log.Printf("ERROR: failed to mark submission %s as failed: %v", submissionID, err)
	}
}
