package service

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"proctorhub/internal/app/analyzer"
	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"
	dr "proctorhub/internal/domain/repository"
	"proctorhub/internal/platform/blob"
	"proctorhub/internal/platform/queue"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type UploadFile struct {
	Name        string
	ContentType string
	Content     []byte
}

type UploadRequest struct {
	Kind        string   `validate:"required,oneof=code writeup mixed"`
	Title       string   `validate:"required,min=3,max=200"`
	Description string   `validate:"max=2000"`
	Tags        []string `validate:"max=10,dive,min=1,max=50"`
}

type SubmissionService struct {
	subRepo  dr.SubmissionRepository
	blobs    *blob.Store
	cleanup  queue.TombstoneQueue
	validate *validator.Validate
}

func NewSubmissionService(subRepo dr.SubmissionRepository, blobs *blob.Store, cleanup queue.TombstoneQueue) *SubmissionService {
	return &SubmissionService{
		subRepo:  subRepo,
		blobs:    blobs,
		cleanup:  cleanup,
		validate: validator.New(),
	}
}

// Upload stores the file contents in the blob store, then creates the
// submission with its file rows. Blobs written before a failure are deleted
// again so a failed upload leaves nothing behind.
func (s *SubmissionService) Upload(ctx context.Context, studentID string, req *UploadRequest, files []UploadFile) (*model.Submission, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, err.Error())
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: at least one file is required", common.ErrValidation)
	}

	sub := &model.Submission{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		Kind:        model.SubmissionKind(req.Kind),
		Title:       req.Title,
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		Tags:        req.Tags,
		Status:      model.StatusUploaded,
	}

	var blobIDs []string
	rollback := func() {
		for _, id := range blobIDs {
			if err := s.blobs.Delete(id); err != nil {
				log.Printf("WARN: failed to roll back blob %s: %v", id, err)
			}
		}
	}

	languages := map[string]struct{}{}
	for i, f := range files {
		if f.Name == "" {
			rollback()
			return nil, fmt.Errorf("%w: file %d has no name", common.ErrValidation, i)
		}
		blobID, size, err := s.blobs.Put(bytes.NewReader(f.Content))
		if err != nil {
			rollback()
			return nil, fmt.Errorf("failed to store file %s: %w", f.Name, err)
		}
		blobIDs = append(blobIDs, blobID)

		sf := model.SubmissionFile{
			ID:           uuid.NewString(),
			SubmissionID: sub.ID,
			BlobID:       blobID,
			OriginalName: f.Name,
			ContentType:  f.ContentType,
			SizeBytes:    size,
			Position:     i,
		}
		if lang := analyzer.DetectLanguage(f.Name); lang != "" {
			sf.DetectedLanguage = &lang
			languages[lang] = struct{}{}
		}
		sub.Files = append(sub.Files, sf)
	}
	for lang := range languages {
		sub.Languages = append(sub.Languages, lang)
	}

	if err := s.subRepo.Create(ctx, sub); err != nil {
		rollback()
		return nil, err
	}
	return sub, nil
}

// Get enforces ownership: students see only their own submissions, teachers
// see any.
func (s *SubmissionService) Get(ctx context.Context, callerID, callerRole, submissionID string) (*model.Submission, error) {
	sub, err := s.subRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleTeacher && sub.StudentID != callerID {
		return nil, fmt.Errorf("submission belongs to another student: %w", common.ErrForbidden)
	}
	return sub, nil
}

// ListByStudent returns a student's submissions, newest first. The handler
// restricts it to teachers.
func (s *SubmissionService) ListByStudent(ctx context.Context, studentID string, limit int) ([]model.Submission, error) {
	return s.subRepo.ListByStudent(ctx, studentID, limit)
}

// Delete removes the submission row immediately and enqueues the blob and
// index cleanup for the background worker. A queue failure does not undo the
// delete; the orphaned blobs are logged instead.
func (s *SubmissionService) Delete(ctx context.Context, callerID, callerRole, submissionID string) error {
	sub, err := s.Get(ctx, callerID, callerRole, submissionID)
	if err != nil {
		return err
	}

	if err := s.subRepo.Delete(ctx, sub.ID); err != nil {
		return err
	}

	job := queue.CleanupJob{SubmissionID: sub.ID}
	for _, f := range sub.Files {
		job.BlobIDs = append(job.BlobIDs, f.BlobID)
	}
	if err := s.cleanup.Enqueue(ctx, job); err != nil {
		log.Printf("WARN: failed to enqueue cleanup for submission %s (blobs %v): %v", sub.ID, job.BlobIDs, err)
	}
	return nil
}
