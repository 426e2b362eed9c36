// Package analyzer holds the pluggable analysis passes run against a
// submission and the registry that dispatches them.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"proctorhub/internal/domain/model"
	"proctorhub/internal/platform/classifier"

	"github.com/google/uuid"
)

var (
	ErrUnknownAnalyzerKind = errors.New("unknown analyzer kind")
	ErrIndexUnavailable    = errors.New("similarity index unavailable")
)

// Input is everything an analyzer may consult about one submission. File
// contents are already read out of the blob store.
type Input struct {
	Submission *model.Submission
	Files      []File
	Text       string // combined text of all files
}

type File struct {
	ID       string
	Name     string
	Language string // empty when not a recognized code file
	Content  string
}

// Result is a successful (or partially successful) analyzer outcome.
// Failures are returned as errors and turned into failed reports by the
// registry.
type Result struct {
	Payload model.ReportPayload
	Partial bool
	Note    string // reason for a partial result
}

type Analyzer interface {
	Kind() model.AnalyzerKind
	Analyze(ctx context.Context, in *Input) (*Result, error)
}

// Registry maps analyzer kinds to implementations. Registration happens at
// startup; Run/RunAll are safe for concurrent use afterwards.
type Registry struct {
	mu         sync.RWMutex
	analyzers  map[model.AnalyzerKind]Analyzer
	runTimeout time.Duration
}

func NewRegistry(runTimeout time.Duration) *Registry {
	return &Registry{
		analyzers:  make(map[model.AnalyzerKind]Analyzer),
		runTimeout: runTimeout,
	}
}

func (r *Registry) Register(a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers[a.Kind()] = a
}

func (r *Registry) lookup(kind model.AnalyzerKind) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[kind]
	return a, ok
}

// Run executes one analyzer and returns its report. An unregistered kind is
// an error; an analyzer failure is not — it becomes a failed-status report.
func (r *Registry) Run(ctx context.Context, kind model.AnalyzerKind, in *Input) (*model.AnalysisReport, error) {
	a, ok := r.lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAnalyzerKind, kind)
	}
	return r.execute(ctx, a, kind, in), nil
}

// RunAll executes the requested kinds independently: one analyzer's failure
// never aborts the others. It always returns exactly one report per
// requested kind, in the requested order.
func (r *Registry) RunAll(ctx context.Context, kinds []model.AnalyzerKind, in *Input) []*model.AnalysisReport {
	reports := make([]*model.AnalysisReport, 0, len(kinds))
	for _, kind := range kinds {
		a, ok := r.lookup(kind)
		if !ok {
			reports = append(reports, failedReport(in.Submission.ID, kind, model.ReasonUnknownAnalyzer))
			continue
		}
		reports = append(reports, r.execute(ctx, a, kind, in))
	}
	return reports
}

func (r *Registry) execute(ctx context.Context, a Analyzer, kind model.AnalyzerKind, in *Input) *model.AnalysisReport {
	runCtx := ctx
	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	res, err := runSafely(runCtx, a, in)
	if err != nil {
		log.Printf("Analyzer %s failed for submission %s: %v", kind, in.Submission.ID, err)
		return failedReport(in.Submission.ID, kind, failureReason(err))
	}

	report := &model.AnalysisReport{
		ID:           uuid.NewString(),
		SubmissionID: in.Submission.ID,
		Kind:         kind,
		Status:       model.ReportOK,
		Payload:      res.Payload,
		GeneratedAt:  time.Now().UTC(),
	}
	if res.Partial {
		report.Status = model.ReportPartial
		if res.Note != "" {
			note := res.Note
			report.FailureReason = &note
		}
	}
	return report
}

// runSafely converts an analyzer panic into an error so a buggy analyzer
// cannot take down its siblings.
func runSafely(ctx context.Context, a Analyzer, in *Input) (res *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = fmt.Errorf("analyzer panicked: %v", rec)
		}
	}()
	return a.Analyze(ctx, in)
}

func failedReport(submissionID string, kind model.AnalyzerKind, reason string) *model.AnalysisReport {
	return &model.AnalysisReport{
		ID:            uuid.NewString(),
		SubmissionID:  submissionID,
		Kind:          kind,
		Status:        model.ReportFailed,
		FailureReason: &reason,
		GeneratedAt:   time.Now().UTC(),
	}
}

func failureReason(err error) string {
	switch {
	case classifier.IsTimeout(err):
		return model.ReasonUpstreamTimeout
	case errors.Is(err, ErrIndexUnavailable):
		return model.ReasonIndexUnavailable
	default:
		return err.Error()
	}
}
