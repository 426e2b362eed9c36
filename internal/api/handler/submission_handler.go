package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"proctorhub/internal/api/middleware"
	"proctorhub/internal/app/service"
	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
	maxUploadBytes    int64
}

func NewSubmissionHandler(submissionService *service.SubmissionService, maxUploadBytes int64) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService, maxUploadBytes: maxUploadBytes}
}

// Upload accepts a multipart form: metadata fields plus one or more "files"
// parts.
func (h *SubmissionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := identity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing identity")
		return
	}
	if role == model.RoleTeacher {
		common.RespondWithError(w, http.StatusForbidden, "Only students can upload submissions")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		common.RespondWithError(w, http.StatusRequestEntityTooLarge, "Upload too large or malformed multipart body")
		return
	}

	req := &service.UploadRequest{
		Kind:        r.FormValue("kind"),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	if tags := strings.TrimSpace(r.FormValue("tags")); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				req.Tags = append(req.Tags, t)
			}
		}
	}

	var files []service.UploadFile
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			common.RespondWithError(w, http.StatusBadRequest, "Failed to open uploaded file "+fh.Filename)
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			common.RespondWithError(w, http.StatusBadRequest, "Failed to read uploaded file "+fh.Filename)
			return
		}
		files = append(files, service.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	sub, err := h.submissionService.Upload(r.Context(), userID, req, files)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, sub)
}

func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := identity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing identity")
		return
	}

	sub, err := h.submissionService.Get(r.Context(), userID, role, chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}

// ListByStudent is mounted behind the teacher-only middleware.
func (h *SubmissionHandler) ListByStudent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			common.RespondWithError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = n
	}

	subs, err := h.submissionService.ListByStudent(r.Context(), chi.URLParam(r, "studentID"), limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}

func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := identity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing identity")
		return
	}

	err := h.submissionService.Delete(r.Context(), userID, role, chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func identity(r *http.Request) (userID, role string, ok bool) {
	userID, ok = middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return "", "", false
	}
	role, ok = middleware.GetUserRoleFromContext(r.Context())
	return userID, role, ok
}
