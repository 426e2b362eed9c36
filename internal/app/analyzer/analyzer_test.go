package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"proctorhub/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	kind    model.AnalyzerKind
	analyze func(ctx context.Context, in *Input) (*Result, error)
}

func (s *stubAnalyzer) Kind() model.AnalyzerKind { return s.kind }
func (s *stubAnalyzer) Analyze(ctx context.Context, in *Input) (*Result, error) {
	return s.analyze(ctx, in)
}

func okAnalyzer(kind model.AnalyzerKind) Analyzer {
	return &stubAnalyzer{kind: kind, analyze: func(context.Context, *Input) (*Result, error) {
		return &Result{}, nil
	}}
}

func testInput() *Input {
	return &Input{Submission: &model.Submission{ID: "sub-1", StudentID: "stu-1"}}
}

func TestRunUnknownKindIsError(t *testing.T) {
	reg := NewRegistry(0)
	_, err := reg.Run(context.Background(), model.AnalyzerPlagiarism, testInput())
	assert.ErrorIs(t, err, ErrUnknownAnalyzerKind)
}

func TestRunAllOneReportPerKind(t *testing.T) {
	reg := NewRegistry(0)
	reg.Register(okAnalyzer(model.AnalyzerCodeQuality))
	reg.Register(&stubAnalyzer{kind: model.AnalyzerPlagiarism, analyze: func(context.Context, *Input) (*Result, error) {
		return nil, errors.New("boom")
	}})

	kinds := []model.AnalyzerKind{model.AnalyzerCodeQuality, model.AnalyzerPlagiarism, model.AnalyzerAIDetection}
	reports := reg.RunAll(context.Background(), kinds, testInput())
	require.Len(t, reports, len(kinds))

	byKind := map[model.AnalyzerKind]*model.AnalysisReport{}
	for _, rep := range reports {
		assert.Equal(t, "sub-1", rep.SubmissionID)
		byKind[rep.Kind] = rep
	}

	assert.Equal(t, model.ReportOK, byKind[model.AnalyzerCodeQuality].Status)

	failed := byKind[model.AnalyzerPlagiarism]
	assert.Equal(t, model.ReportFailed, failed.Status)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "boom", *failed.FailureReason)

	// Unregistered kind becomes a failed report, not an error.
	unknown := byKind[model.AnalyzerAIDetection]
	assert.Equal(t, model.ReportFailed, unknown.Status)
	require.NotNil(t, unknown.FailureReason)
	assert.Equal(t, model.ReasonUnknownAnalyzer, *unknown.FailureReason)
}

func TestRunAllAllFailStillOneReportEach(t *testing.T) {
	reg := NewRegistry(0)
	for _, kind := range model.AllAnalyzerKinds {
		k := kind
		reg.Register(&stubAnalyzer{kind: k, analyze: func(context.Context, *Input) (*Result, error) {
			return nil, errors.New("down")
		}})
	}

	reports := reg.RunAll(context.Background(), model.AllAnalyzerKinds, testInput())
	require.Len(t, reports, len(model.AllAnalyzerKinds))
	for _, rep := range reports {
		assert.Equal(t, model.ReportFailed, rep.Status)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	reg := NewRegistry(0)
	reg.Register(&stubAnalyzer{kind: model.AnalyzerCodeQuality, analyze: func(context.Context, *Input) (*Result, error) {
		panic("nil map write")
	}})

	rep, err := reg.Run(context.Background(), model.AnalyzerCodeQuality, testInput())
	require.NoError(t, err)
	assert.Equal(t, model.ReportFailed, rep.Status)
	require.NotNil(t, rep.FailureReason)
	assert.Contains(t, *rep.FailureReason, "panicked")
}

func TestExecuteTimeoutBecomesUpstreamTimeout(t *testing.T) {
	reg := NewRegistry(10 * time.Millisecond)
	reg.Register(&stubAnalyzer{kind: model.AnalyzerAIDetection, analyze: func(ctx context.Context, _ *Input) (*Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}})

	rep, err := reg.Run(context.Background(), model.AnalyzerAIDetection, testInput())
	require.NoError(t, err)
	assert.Equal(t, model.ReportFailed, rep.Status)
	require.NotNil(t, rep.FailureReason)
	assert.Equal(t, model.ReasonUpstreamTimeout, *rep.FailureReason)
}

func TestExecuteIndexUnavailableReason(t *testing.T) {
	reg := NewRegistry(0)
	reg.Register(&stubAnalyzer{kind: model.AnalyzerPlagiarism, analyze: func(context.Context, *Input) (*Result, error) {
		return nil, ErrIndexUnavailable
	}})

	rep, err := reg.Run(context.Background(), model.AnalyzerPlagiarism, testInput())
	require.NoError(t, err)
	require.NotNil(t, rep.FailureReason)
	assert.Equal(t, model.ReasonIndexUnavailable, *rep.FailureReason)
}

func TestExecutePartialResult(t *testing.T) {
	reg := NewRegistry(0)
	reg.Register(&stubAnalyzer{kind: model.AnalyzerAIDetection, analyze: func(context.Context, *Input) (*Result, error) {
		return &Result{Partial: true, Note: "fallback used"}, nil
	}})

	rep, err := reg.Run(context.Background(), model.AnalyzerAIDetection, testInput())
	require.NoError(t, err)
	assert.Equal(t, model.ReportPartial, rep.Status)
	require.NotNil(t, rep.FailureReason)
	assert.Equal(t, "fallback used", *rep.FailureReason)
}
