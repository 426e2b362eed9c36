package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type AnalyzerKind string

const (
	AnalyzerCodeQuality AnalyzerKind = "code-quality"
	AnalyzerPlagiarism  AnalyzerKind = "plagiarism"
	AnalyzerAIDetection AnalyzerKind = "ai-text-detection"
)

// AllAnalyzerKinds is the order used by analyze-all.
var AllAnalyzerKinds = []AnalyzerKind{AnalyzerCodeQuality, AnalyzerPlagiarism, AnalyzerAIDetection}

type ReportStatus string

const (
	ReportOK      ReportStatus = "ok"
	ReportPartial ReportStatus = "partial"
	ReportFailed  ReportStatus = "failed"
)

// Well-known failure reasons.
const (
	ReasonUpstreamTimeout  = "upstream-timeout"
	ReasonIndexUnavailable = "index-unavailable"
	ReasonUnknownAnalyzer  = "unknown-analyzer-kind"
)

// AnalysisReport is the persisted output of one analyzer run. Reports are
// append-only: a re-run creates a new report that supersedes older ones of
// the same kind by GeneratedAt (latest wins on read), old rows stay for audit.
type AnalysisReport struct {
	ID            string        `json:"id"`
	SubmissionID  string        `json:"submission_id"`
	Kind          AnalyzerKind  `json:"kind"`
	Status        ReportStatus  `json:"status"`
	FailureReason *string       `json:"failure_reason,omitempty"`
	Payload       ReportPayload `json:"payload"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// ReportPayload is a tagged variant: exactly one field is set, matching the
// report's Kind. Failed reports carry an empty payload.
type ReportPayload struct {
	CodeQuality *CodeQualityPayload `json:"code_quality,omitempty"`
	Plagiarism  *PlagiarismPayload  `json:"plagiarism,omitempty"`
	AIDetection *AIDetectionPayload `json:"ai_detection,omitempty"`
}

func (p ReportPayload) Validate(kind AnalyzerKind) error {
	set := 0
	if p.CodeQuality != nil {
		set++
		if kind != AnalyzerCodeQuality {
			return fmt.Errorf("code_quality payload on %s report", kind)
		}
	}
	if p.Plagiarism != nil {
		set++
		if kind != AnalyzerPlagiarism {
			return fmt.Errorf("plagiarism payload on %s report", kind)
		}
	}
	if p.AIDetection != nil {
		set++
		if kind != AnalyzerAIDetection {
			return fmt.Errorf("ai_detection payload on %s report", kind)
		}
	}
	if set > 1 {
		return fmt.Errorf("%d payload variants set, want at most 1", set)
	}
	return nil
}

func (p ReportPayload) MarshalBytes() ([]byte, error) {
	return json.Marshal(p)
}

func UnmarshalPayload(data []byte) (ReportPayload, error) {
	var p ReportPayload
	if len(data) == 0 {
		return p, nil
	}
	err := json.Unmarshal(data, &p)
	return p, err
}

type CodeQualityPayload struct {
	AverageScore float64           `json:"average_score"`
	Files        []FileQualityInfo `json:"files"`
}

type FileQualityInfo struct {
	FileName         string       `json:"file_name"`
	Language         string       `json:"language"`
	Metrics          CodeMetrics  `json:"metrics"`
	StyleIssues      []StyleIssue `json:"style_issues,omitempty"`
	SecurityFindings []string     `json:"security_findings,omitempty"`
	Score            float64      `json:"score"`
	Error            string       `json:"error,omitempty"`
}

type CodeMetrics struct {
	TotalLines            int     `json:"total_lines"`
	CodeLines             int     `json:"code_lines"`
	CommentLines          int     `json:"comment_lines"`
	CommentRatio          float64 `json:"comment_ratio"`
	FunctionCount         int     `json:"function_count"`
	AverageFunctionLength float64 `json:"average_function_length"`
	CyclomaticComplexity  int     `json:"cyclomatic_complexity"`
}

type StyleIssue struct {
	Line       int    `json:"line"`
	Severity   string `json:"severity"` // error, warning, info
	Category   string `json:"category"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

type PlagiarismPayload struct {
	OriginalityScore float64           `json:"originality_score"` // 0-100, higher is more original
	RiskLevel        string            `json:"risk_level"`        // low, medium, high
	Matches          []SimilarityMatch `json:"matches,omitempty"`
	FragmentsIndexed int               `json:"fragments_indexed"`
}

type SimilarityMatch struct {
	SubmissionID string  `json:"submission_id"`
	FileID       string  `json:"file_id"`
	Fragment     int     `json:"fragment"`
	Similarity   float64 `json:"similarity"`
	MatchType    string  `json:"match_type"` // near-exact, paraphrased, similar-structure
}

type AIDetectionPayload struct {
	Verdict    string   `json:"verdict"` // ai-generated, human, uncertain
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence,omitempty"`
	Model      string   `json:"model,omitempty"`
}
