package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"proctorhub/internal/app/analyzer"
	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"
	"proctorhub/internal/domain/repository/inmem"
	"proctorhub/internal/platform/blob"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	kind    model.AnalyzerKind
	analyze func(ctx context.Context, in *analyzer.Input) (*analyzer.Result, error)
}

func (s *stubAnalyzer) Kind() model.AnalyzerKind { return s.kind }
func (s *stubAnalyzer) Analyze(ctx context.Context, in *analyzer.Input) (*analyzer.Result, error) {
	return s.analyze(ctx, in)
}

func okStub(kind model.AnalyzerKind) analyzer.Analyzer {
	return &stubAnalyzer{kind: kind, analyze: func(_ context.Context, _ *analyzer.Input) (*analyzer.Result, error) {
		return &analyzer.Result{}, nil
	}}
}

type analysisFixture struct {
	service *AnalysisService
	subRepo *inmem.SubmissionRepository
	reports *inmem.ReportRepository
	blobs   *blob.Store
}

func newAnalysisFixture(t *testing.T, registry *analyzer.Registry) *analysisFixture {
	t.Helper()
	store, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	subRepo := inmem.NewSubmissionRepository()
	reports := inmem.NewReportRepository()
	return &analysisFixture{
		service: NewAnalysisService(subRepo, reports, store, registry),
		subRepo: subRepo,
		reports: reports,
		blobs:   store,
	}
}

func (f *analysisFixture) seedSubmission(t *testing.T, studentID string, content string) *model.Submission {
	t.Helper()
	blobID, _, err := f.blobs.Put(bytes.NewReader([]byte(content)))
	require.NoError(t, err)

	lang := "python"
	sub := &model.Submission{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Kind:      model.KindCode,
		Title:     "Seeded",
		Slug:      "seeded",
		Status:    model.StatusUploaded,
		Files: []model.SubmissionFile{{
			ID:               uuid.NewString(),
			BlobID:           blobID,
			OriginalName:     "main.py",
			DetectedLanguage: &lang,
			Position:         0,
		}},
	}
	require.NoError(t, f.subRepo.Create(context.Background(), sub))
	return sub
}

func TestAnalyzePersistsReportsAndMarksAnalyzed(t *testing.T) {
	registry := analyzer.NewRegistry(0)
	var seenText string
	registry.Register(&stubAnalyzer{kind: model.AnalyzerCodeQuality, analyze: func(_ context.Context, in *analyzer.Input) (*analyzer.Result, error) {
		seenText = in.Text
		return &analyzer.Result{Payload: model.ReportPayload{CodeQuality: &model.CodeQualityPayload{AverageScore: 88}}}, nil
	}})
	registry.Register(okStub(model.AnalyzerPlagiarism))

	f := newAnalysisFixture(t, registry)
	sub := f.seedSubmission(t, "stu-1", "print('hi')")
	ctx := context.Background()

	kinds := []model.AnalyzerKind{model.AnalyzerCodeQuality, model.AnalyzerPlagiarism}
	reports, err := f.service.Analyze(ctx, "stu-1", model.RoleStudent, sub.ID, kinds)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Contains(t, seenText, "print('hi')")

	got, err := f.subRepo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAnalyzed, got.Status)

	latest, err := f.service.LatestReport(ctx, "stu-1", model.RoleStudent, sub.ID, model.AnalyzerCodeQuality)
	require.NoError(t, err)
	assert.Equal(t, model.ReportOK, latest.Status)
	assert.Equal(t, 88.0, latest.Payload.CodeQuality.AverageScore)
}

func TestAnalyzeFailedAnalyzerStillEndsAnalyzed(t *testing.T) {
	registry := analyzer.NewRegistry(0)
	registry.Register(&stubAnalyzer{kind: model.AnalyzerAIDetection, analyze: func(context.Context, *analyzer.Input) (*analyzer.Result, error) {
		return nil, errors.New("classifier down")
	}})

	f := newAnalysisFixture(t, registry)
	sub := f.seedSubmission(t, "stu-1", "essay text")
	ctx := context.Background()

	reports, err := f.service.Analyze(ctx, "stu-1", model.RoleStudent, sub.ID, []model.AnalyzerKind{model.AnalyzerAIDetection})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, model.ReportFailed, reports[0].Status)

	// An analyzer failure is recorded in the report, not in the submission.
	got, err := f.subRepo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAnalyzed, got.Status)
}

func TestAnalyzeDefaultsToAllKinds(t *testing.T) {
	registry := analyzer.NewRegistry(0)
	registry.Register(okStub(model.AnalyzerCodeQuality))

	f := newAnalysisFixture(t, registry)
	sub := f.seedSubmission(t, "stu-1", "x = 1")

	reports, err := f.service.Analyze(context.Background(), "stu-1", model.RoleStudent, sub.ID, nil)
	require.NoError(t, err)
	// One report per known kind, unregistered kinds included as failures.
	assert.Len(t, reports, len(model.AllAnalyzerKinds))
}

func TestAnalyzeInfraFailureMarksSubmissionFailed(t *testing.T) {
	registry := analyzer.NewRegistry(0)
	registry.Register(okStub(model.AnalyzerCodeQuality))

	f := newAnalysisFixture(t, registry)
	sub := f.seedSubmission(t, "stu-1", "x = 1")
	ctx := context.Background()

	// Remove the blob behind the repo's back to simulate storage loss.
	require.NoError(t, f.blobs.Delete(sub.Files[0].BlobID))

	_, err := f.service.Analyze(ctx, "stu-1", model.RoleStudent, sub.ID, nil)
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)

	got, err := f.subRepo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
}

func TestAnalyzeOwnership(t *testing.T) {
	registry := analyzer.NewRegistry(0)
	registry.Register(okStub(model.AnalyzerCodeQuality))

	f := newAnalysisFixture(t, registry)
	sub := f.seedSubmission(t, "stu-1", "x = 1")
	ctx := context.Background()

	_, err := f.service.Analyze(ctx, "stu-2", model.RoleStudent, sub.ID, nil)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.service.Analyze(ctx, "tea-1", model.RoleTeacher, sub.ID, nil)
	assert.NoError(t, err)
}

func TestLatestReportSupersedesOlderRuns(t *testing.T) {
	score := 10.0
	registry := analyzer.NewRegistry(0)
	registry.Register(&stubAnalyzer{kind: model.AnalyzerCodeQuality, analyze: func(context.Context, *analyzer.Input) (*analyzer.Result, error) {
		return &analyzer.Result{Payload: model.ReportPayload{CodeQuality: &model.CodeQualityPayload{AverageScore: score}}}, nil
	}})

	f := newAnalysisFixture(t, registry)
	sub := f.seedSubmission(t, "stu-1", "x = 1")
	ctx := context.Background()
	kinds := []model.AnalyzerKind{model.AnalyzerCodeQuality}

	_, err := f.service.Analyze(ctx, "stu-1", model.RoleStudent, sub.ID, kinds)
	require.NoError(t, err)

	score = 95
	_, err = f.service.Analyze(ctx, "stu-1", model.RoleStudent, sub.ID, kinds)
	require.NoError(t, err)

	latest, err := f.service.LatestReport(ctx, "stu-1", model.RoleStudent, sub.ID, model.AnalyzerCodeQuality)
	require.NoError(t, err)
	assert.Equal(t, 95.0, latest.Payload.CodeQuality.AverageScore)

	// Older reports stay for audit.
	all, err := f.service.ListReports(ctx, "stu-1", model.RoleStudent, sub.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestLatestReportMissingKind(t *testing.T) {
	registry := analyzer.NewRegistry(0)
	f := newAnalysisFixture(t, registry)
	sub := f.seedSubmission(t, "stu-1", "x = 1")

	_, err := f.service.LatestReport(context.Background(), "stu-1", model.RoleStudent, sub.ID, model.AnalyzerPlagiarism)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
