package handler

import (
	"net/http"

	"proctorhub/internal/app/service"
	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// AnalyzeCode runs only the code-quality analyzer.
func (h *AnalysisHandler) AnalyzeCode(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, []model.AnalyzerKind{model.AnalyzerCodeQuality})
}

// CheckPlagiarism runs only the plagiarism analyzer.
func (h *AnalysisHandler) CheckPlagiarism(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, []model.AnalyzerKind{model.AnalyzerPlagiarism})
}

// AnalyzeAll runs every registered analyzer.
func (h *AnalysisHandler) AnalyzeAll(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, model.AllAnalyzerKinds)
}

func (h *AnalysisHandler) analyze(w http.ResponseWriter, r *http.Request, kinds []model.AnalyzerKind) {
	userID, role, ok := identity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing identity")
		return
	}

	reports, err := h.analysisService.Analyze(r.Context(), userID, role, chi.URLParam(r, "submissionID"), kinds)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, reports)
}

// CodeAnalysisReport returns the latest code-quality report.
func (h *AnalysisHandler) CodeAnalysisReport(w http.ResponseWriter, r *http.Request) {
	h.latest(w, r, model.AnalyzerCodeQuality)
}

// PlagiarismReport returns the latest plagiarism report.
func (h *AnalysisHandler) PlagiarismReport(w http.ResponseWriter, r *http.Request) {
	h.latest(w, r, model.AnalyzerPlagiarism)
}

func (h *AnalysisHandler) latest(w http.ResponseWriter, r *http.Request, kind model.AnalyzerKind) {
	userID, role, ok := identity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing identity")
		return
	}

	report, err := h.analysisService.LatestReport(r.Context(), userID, role, chi.URLParam(r, "submissionID"), kind)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, report)
}
