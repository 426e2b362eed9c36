package service

import (
	"context"
	"fmt"

	"proctorhub/internal/app/analyzer"
	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"
	"proctorhub/internal/platform/classifier"

	"github.com/go-playground/validator/v10"
)

type TextRequest struct {
	Text  string `json:"text" validate:"required,min=1,max=20000"`
	Style string `json:"style" validate:"omitempty,oneof=formal casual academic concise"`
}

type TextResponse struct {
	Result string `json:"result"`
}

// TextToolsService passes writing-assistance requests through to the text
// classifier. Upstream failures surface as ErrUpstream so handlers can map
// them to 502 instead of a generic 500.
type TextToolsService struct {
	completer classifier.TextCompleter
	modelName string
	validate  *validator.Validate
}

func NewTextToolsService(completer classifier.TextCompleter, modelName string) *TextToolsService {
	return &TextToolsService{
		completer: completer,
		modelName: modelName,
		validate:  validator.New(),
	}
}

func (s *TextToolsService) Paraphrase(ctx context.Context, req *TextRequest) (*TextResponse, error) {
	system := "Paraphrase the user's text while preserving its meaning. Respond with only the paraphrased text."
	if req.Style != "" {
		system = fmt.Sprintf("Paraphrase the user's text in a %s style while preserving its meaning. Respond with only the paraphrased text.", req.Style)
	}
	return s.complete(ctx, system, req)
}

func (s *TextToolsService) GrammarCheck(ctx context.Context, req *TextRequest) (*TextResponse, error) {
	system := "Correct the grammar, spelling and punctuation of the user's text. Respond with only the corrected text."
	return s.complete(ctx, system, req)
}

func (s *TextToolsService) Humanize(ctx context.Context, req *TextRequest) (*TextResponse, error) {
	system := "Rewrite the user's text so it reads naturally, varying sentence structure and word choice. Preserve the meaning. Respond with only the rewritten text."
	return s.complete(ctx, system, req)
}

// DetectAI runs the same verdict prompt the analyzer uses, but on ad-hoc text
// outside any submission.
func (s *TextToolsService) DetectAI(ctx context.Context, req *TextRequest) (*model.AIDetectionPayload, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, err.Error())
	}

	reply, err := s.completer.Complete(ctx, analyzer.DetectSystemPrompt, req.Text)
	if err != nil {
		return nil, s.upstreamErr(err)
	}
	payload, ok := analyzer.ParseVerdict(reply)
	if !ok {
		return nil, fmt.Errorf("classifier returned an unparseable verdict: %w", common.ErrUpstream)
	}
	payload.Model = s.modelName
	return payload, nil
}

func (s *TextToolsService) complete(ctx context.Context, system string, req *TextRequest) (*TextResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, err.Error())
	}
	reply, err := s.completer.Complete(ctx, system, req.Text)
	if err != nil {
		return nil, s.upstreamErr(err)
	}
	return &TextResponse{Result: reply}, nil
}

func (s *TextToolsService) upstreamErr(err error) error {
	if classifier.IsTimeout(err) {
		return fmt.Errorf("classifier timed out: %w", common.ErrUpstream)
	}
	return fmt.Errorf("classifier request failed: %v: %w", err, common.ErrUpstream)
}
