package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"proctorhub/internal/domain/model"
	"proctorhub/internal/platform/classifier"
	"proctorhub/internal/platform/embedding"
)

// DetectSystemPrompt is shared with the ad-hoc detect-ai text tool.
const DetectSystemPrompt = `You are an expert at detecting AI-generated text.
Analyze the submitted text and respond with ONLY a JSON object, no prose:
{"verdict": "ai-generated" | "human" | "uncertain", "confidence": 0.0-1.0, "evidence": ["short observation", ...]}`

// maxDetectChars caps how much text is sent upstream per run.
const maxDetectChars = 12000

// AIDetectionAnalyzer asks the text classifier for a verdict on the
// submission's combined text. A malformed upstream reply degrades to a local
// heuristic instead of failing the report; upstream errors and timeouts
// propagate and become failed reports.
type AIDetectionAnalyzer struct {
	completer classifier.TextCompleter
	modelName string
}

func NewAIDetectionAnalyzer(completer classifier.TextCompleter, modelName string) *AIDetectionAnalyzer {
	return &AIDetectionAnalyzer{completer: completer, modelName: modelName}
}

func (a *AIDetectionAnalyzer) Kind() model.AnalyzerKind {
	return model.AnalyzerAIDetection
}

func (a *AIDetectionAnalyzer) Analyze(ctx context.Context, in *Input) (*Result, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("submission has no text to analyze")
	}
	if len(text) > maxDetectChars {
		cut := maxDetectChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	reply, err := a.completer.Complete(ctx, DetectSystemPrompt, text)
	if err != nil {
		return nil, err
	}

	payload, ok := ParseVerdict(reply)
	if !ok {
		payload = heuristicVerdict(text)
		return &Result{
			Payload: model.ReportPayload{AIDetection: payload},
			Partial: true,
			Note:    "classifier reply was not valid JSON, used heuristic fallback",
		}, nil
	}
	payload.Model = a.modelName
	return &Result{Payload: model.ReportPayload{AIDetection: payload}}, nil
}

// ParseVerdict extracts the JSON object from the reply, tolerating models
// that wrap it in markdown fences or surrounding prose.
func ParseVerdict(reply string) (*model.AIDetectionPayload, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var raw struct {
		Verdict    string   `json:"verdict"`
		Confidence float64  `json:"confidence"`
		Evidence   []string `json:"evidence"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, false
	}
	switch raw.Verdict {
	case "ai-generated", "human", "uncertain":
	default:
		return nil, false
	}
	if raw.Confidence < 0 || raw.Confidence > 1 {
		return nil, false
	}
	return &model.AIDetectionPayload{
		Verdict:    raw.Verdict,
		Confidence: raw.Confidence,
		Evidence:   raw.Evidence,
	}, true
}

// heuristicVerdict is a crude stand-in used only when the classifier reply
// cannot be parsed: low lexical diversity and very uniform sentence lengths
// nudge toward ai-generated, but the verdict stays uncertain unless both
// signals agree.
func heuristicVerdict(text string) *model.AIDetectionPayload {
	tokens := embedding.Tokenize(text)
	if len(tokens) == 0 {
		return &model.AIDetectionPayload{Verdict: "uncertain", Confidence: 0.5}
	}

	unique := map[string]struct{}{}
	for _, t := range tokens {
		unique[t] = struct{}{}
	}
	diversity := float64(len(unique)) / float64(len(tokens))

	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	var lengths []float64
	for _, s := range sentences {
		if n := len(strings.Fields(s)); n > 0 {
			lengths = append(lengths, float64(n))
		}
	}
	uniform := sentenceUniformity(lengths)

	var evidence []string
	signals := 0
	if diversity < 0.4 {
		signals++
		evidence = append(evidence, "low lexical diversity")
	}
	if uniform {
		signals++
		evidence = append(evidence, "very uniform sentence lengths")
	}

	p := &model.AIDetectionPayload{Verdict: "uncertain", Confidence: 0.5, Evidence: evidence}
	if signals == 2 {
		p.Verdict = "ai-generated"
		p.Confidence = 0.6
	} else if signals == 0 {
		p.Verdict = "human"
		p.Confidence = 0.55
	}
	return p
}

func sentenceUniformity(lengths []float64) bool {
	if len(lengths) < 4 {
		return false
	}
	var mean float64
	for _, l := range lengths {
		mean += l
	}
	mean /= float64(len(lengths))
	var variance float64
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(lengths))
	return mean > 0 && variance/mean < 2
}
