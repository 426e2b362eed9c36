package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"proctorhub/internal/app/service"
	"proctorhub/internal/common"
)

type TextToolsHandler struct {
	textToolsService *service.TextToolsService
}

func NewTextToolsHandler(textToolsService *service.TextToolsService) *TextToolsHandler {
	return &TextToolsHandler{textToolsService: textToolsService}
}

func (h *TextToolsHandler) Paraphrase(w http.ResponseWriter, r *http.Request) {
	h.rewrite(w, r, h.textToolsService.Paraphrase)
}

func (h *TextToolsHandler) GrammarCheck(w http.ResponseWriter, r *http.Request) {
	h.rewrite(w, r, h.textToolsService.GrammarCheck)
}

func (h *TextToolsHandler) Humanize(w http.ResponseWriter, r *http.Request) {
	h.rewrite(w, r, h.textToolsService.Humanize)
}

func (h *TextToolsHandler) DetectAI(w http.ResponseWriter, r *http.Request) {
	var req service.TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	verdict, err := h.textToolsService.DetectAI(r.Context(), &req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, verdict)
}

func (h *TextToolsHandler) rewrite(w http.ResponseWriter, r *http.Request, call func(context.Context, *service.TextRequest) (*service.TextResponse, error)) {
	var req service.TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := call(r.Context(), &req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
