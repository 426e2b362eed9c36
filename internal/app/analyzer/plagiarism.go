package analyzer

import (
	"context"
	"fmt"

	"proctorhub/internal/domain/model"
	"proctorhub/internal/platform/embedding"
	"proctorhub/internal/vector"
)

const (
	fragmentWords  = 100
	minSimilarity  = 0.5
	nearExactBand  = 0.85
	paraphraseBand = 0.7
)

// PlagiarismAnalyzer embeds the submission's text in fragments, queries the
// similarity index against everyone else's fragments, then indexes its own
// so later submissions can match against it.
type PlagiarismAnalyzer struct {
	loader    *embedding.Loader
	index     *vector.Index
	neighbors int // nearest entries fetched per fragment
}

func NewPlagiarismAnalyzer(loader *embedding.Loader, index *vector.Index, neighbors int) *PlagiarismAnalyzer {
	if neighbors <= 0 {
		neighbors = 5
	}
	return &PlagiarismAnalyzer{loader: loader, index: index, neighbors: neighbors}
}

func (a *PlagiarismAnalyzer) Kind() model.AnalyzerKind {
	return model.AnalyzerPlagiarism
}

func (a *PlagiarismAnalyzer) Analyze(ctx context.Context, in *Input) (*Result, error) {
	if !a.index.Ready() {
		return nil, ErrIndexUnavailable
	}
	embedder, err := a.loader.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	var (
		matches    []model.SimilarityMatch
		worstSim   float64
		newEntries []vector.Entry
	)
	for _, f := range in.Files {
		fragments := embedding.SplitFragments(f.Content, fragmentWords)
		for i, frag := range fragments {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			vec := embedder.Embed(frag)
			for _, m := range a.index.Query(vec, a.neighbors) {
				if m.Entry.SubmissionID == in.Submission.ID {
					continue
				}
				if m.Similarity < minSimilarity {
					continue
				}
				matches = append(matches, model.SimilarityMatch{
					SubmissionID: m.Entry.SubmissionID,
					FileID:       m.Entry.FileID,
					Fragment:     m.Entry.Fragment,
					Similarity:   round2(m.Similarity),
					MatchType:    matchType(m.Similarity),
				})
				if m.Similarity > worstSim {
					worstSim = m.Similarity
				}
			}
			newEntries = append(newEntries, vector.Entry{
				SubmissionID: in.Submission.ID,
				FileID:       f.ID,
				Fragment:     i,
				Vector:       vec,
			})
		}
	}

	payload := &model.PlagiarismPayload{
		OriginalityScore: round2((1 - worstSim) * 100),
		RiskLevel:        riskLevel(worstSim),
		Matches:          matches,
		FragmentsIndexed: len(newEntries),
	}

	res := &Result{Payload: model.ReportPayload{Plagiarism: payload}}
	if len(newEntries) > 0 {
		// A re-run re-indexes the same fragments; Query filters out the
		// submission's own entries, so duplicates only cost space.
		if err := a.index.InsertBatch(newEntries); err != nil {
			res.Partial = true
			res.Note = fmt.Sprintf("failed to index fragments: %v", err)
		}
	}
	return res, nil
}

func matchType(sim float64) string {
	switch {
	case sim >= nearExactBand:
		return "near-exact"
	case sim >= paraphraseBand:
		return "paraphrased"
	default:
		return "similar-structure"
	}
}

func riskLevel(worst float64) string {
	switch {
	case worst >= paraphraseBand:
		return "high"
	case worst >= minSimilarity:
		return "medium"
	default:
		return "low"
	}
}
