package analyzer

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"proctorhub/internal/domain/model"
)

// CodeQualityAnalyzer computes static metrics, style issues and security
// findings for each code file. Purely local: no external calls.
type CodeQualityAnalyzer struct{}

func NewCodeQualityAnalyzer() *CodeQualityAnalyzer {
	return &CodeQualityAnalyzer{}
}

func (a *CodeQualityAnalyzer) Kind() model.AnalyzerKind {
	return model.AnalyzerCodeQuality
}

func (a *CodeQualityAnalyzer) Analyze(_ context.Context, in *Input) (*Result, error) {
	var (
		files  []model.FileQualityInfo
		total  float64
		scored int
	)
	for _, f := range in.Files {
		if f.Language == "" {
			continue
		}
		info := analyzeFile(f)
		files = append(files, info)
		if info.Error == "" {
			total += info.Score
			scored++
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no code files in submission")
	}

	payload := &model.CodeQualityPayload{Files: files}
	if scored > 0 {
		payload.AverageScore = round2(total / float64(scored))
	}
	return &Result{Payload: model.ReportPayload{CodeQuality: payload}}, nil
}

// DetectLanguage maps a file name to a known programming language, or "".
func DetectLanguage(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".py":
		return "python"
	case ".java":
		return "java"
	case ".js", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".cpp", ".cc", ".hpp":
		return "cpp"
	case ".c", ".h":
		return "c"
	case ".go":
		return "go"
	case ".rs":
		return "rust"
	}
	return ""
}

var (
	funcPatterns = map[string]*regexp.Regexp{
		"python":     regexp.MustCompile(`(?m)^\s*def\s+\w+`),
		"java":       regexp.MustCompile(`(?m)(public|private|protected|static)[\w\s<>\[\]]*\([^)]*\)\s*\{`),
		"javascript": regexp.MustCompile(`(?m)(function\s+\w+|\w+\s*=\s*(\([^)]*\)|\w+)\s*=>)`),
		"typescript": regexp.MustCompile(`(?m)(function\s+\w+|\w+\s*=\s*(\([^)]*\)|\w+)\s*=>)`),
		"go":         regexp.MustCompile(`(?m)^func\s+`),
		"c":          regexp.MustCompile(`(?m)^\w[\w\s\*]*\([^)]*\)\s*\{`),
		"cpp":        regexp.MustCompile(`(?m)^\w[\w\s\*:<>]*\([^)]*\)\s*\{`),
		"rust":       regexp.MustCompile(`(?m)^\s*(pub\s+)?fn\s+\w+`),
	}

	branchKeywords = regexp.MustCompile(`\b(if|for|while|case|catch|except|elif|switch|select)\b`)
	boolOperators  = regexp.MustCompile(`(&&|\|\||\band\b|\bor\b)`)

	securityPatterns = []struct {
		re      *regexp.Regexp
		finding string
	}{
		{regexp.MustCompile(`\beval\s*\(`), "use of eval"},
		{regexp.MustCompile(`\bexec\s*\(`), "use of exec"},
		{regexp.MustCompile(`os\.system\s*\(`), "shell command execution"},
		{regexp.MustCompile(`(?i)(password|secret|api_key|apikey|token)\s*=\s*["'][^"']+["']`), "hardcoded credential"},
		{regexp.MustCompile(`(?i)(select|insert|update|delete)\s.*["']\s*\+`), "SQL built by string concatenation"},
		{regexp.MustCompile(`\bpickle\.loads?\s*\(`), "unsafe deserialization"},
	}
)

func analyzeFile(f File) model.FileQualityInfo {
	metrics := computeMetrics(f.Language, f.Content)
	issues := styleIssues(f.Language, f.Content)
	findings := securityFindings(f.Content)
	return model.FileQualityInfo{
		FileName:         f.Name,
		Language:         f.Language,
		Metrics:          metrics,
		StyleIssues:      issues,
		SecurityFindings: findings,
		Score:            qualityScore(metrics, issues, findings),
	}
}

func computeMetrics(language, code string) model.CodeMetrics {
	lines := strings.Split(code, "\n")
	m := model.CodeMetrics{TotalLines: len(lines)}

	prefix := commentPrefix(language)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, prefix):
			m.CommentLines++
		default:
			m.CodeLines++
		}
	}
	if m.CodeLines > 0 {
		m.CommentRatio = round2(float64(m.CommentLines) / float64(m.CodeLines))
	}

	if re, ok := funcPatterns[language]; ok {
		m.FunctionCount = len(re.FindAllString(code, -1))
	}
	if m.FunctionCount > 0 {
		m.AverageFunctionLength = round2(float64(m.CodeLines) / float64(m.FunctionCount))
	}

	// Keyword-count estimate, same shape across languages.
	complexity := 1
	complexity += len(branchKeywords.FindAllString(code, -1))
	complexity += len(boolOperators.FindAllString(code, -1))
	m.CyclomaticComplexity = complexity
	return m
}

func commentPrefix(language string) string {
	if language == "python" {
		return "#"
	}
	return "//"
}

const maxLineLength = 120

func styleIssues(language, code string) []model.StyleIssue {
	var issues []model.StyleIssue
	lines := strings.Split(code, "\n")

	for i, line := range lines {
		num := i + 1
		if len(line) > maxLineLength {
			issues = append(issues, model.StyleIssue{
				Line: num, Severity: "warning", Category: "line-length",
				Message:    "line exceeds " + strconv.Itoa(maxLineLength) + " characters",
				Suggestion: "break into multiple lines or refactor",
			})
		}
		trimmed := strings.TrimSpace(line)
		if strings.Count(trimmed, ";") > 1 && !strings.HasPrefix(trimmed, commentPrefix(language)) && language != "c" && language != "cpp" && language != "java" {
			issues = append(issues, model.StyleIssue{
				Line: num, Severity: "warning", Category: "structure",
				Message:    "multiple statements on one line",
				Suggestion: "use separate lines for each statement",
			})
		}
		if line != "" && (strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t")) {
			issues = append(issues, model.StyleIssue{
				Line: num, Severity: "info", Category: "whitespace",
				Message:    "trailing whitespace",
				Suggestion: "remove trailing spaces",
			})
		}
	}

	if funcPatterns[language] != nil && funcPatterns[language].MatchString(code) && !hasDocComment(language, code) {
		issues = append(issues, model.StyleIssue{
			Line: 1, Severity: "warning", Category: "documentation",
			Message:    "no documentation comments found",
			Suggestion: "document the file's functions",
		})
	}
	return issues
}

func hasDocComment(language, code string) bool {
	if language == "python" {
		return strings.Contains(code, `"""`) || strings.Contains(code, "'''")
	}
	return strings.Contains(code, "/*") || strings.Contains(code, "///") ||
		regexp.MustCompile(`(?m)^\s*//`).MatchString(code)
}

func securityFindings(code string) []string {
	var findings []string
	for _, p := range securityPatterns {
		if p.re.MatchString(code) {
			findings = append(findings, p.finding)
		}
	}
	return findings
}

// qualityScore mirrors the weighting used for review feedback: start from a
// perfect score, penalize issues and complexity, reward commenting.
func qualityScore(m model.CodeMetrics, issues []model.StyleIssue, findings []string) float64 {
	score := 100.0
	for _, issue := range issues {
		switch issue.Severity {
		case "error":
			score -= 5
		case "warning":
			score -= 2
		default:
			score -= 0.5
		}
	}
	if m.CyclomaticComplexity > 10 {
		score -= float64(m.CyclomaticComplexity-10) * 3
	}
	if m.AverageFunctionLength > 30 {
		score -= (m.AverageFunctionLength - 30) * 0.5
	}
	score += m.CommentRatio * 10
	score -= float64(len(findings)) * 10

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return round2(score)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
