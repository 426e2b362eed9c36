package service

import (
	"context"
	"fmt"
	"time"

	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"
	dr "proctorhub/internal/domain/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type CreateReviewRequest struct {
	SubmissionID string `json:"submission_id" validate:"required"`
	ReviewerType string `json:"reviewer_type" validate:"required,oneof=ai peer instructor"`
	IsAnonymous  bool   `json:"is_anonymous"`
}

type CompleteReviewRequest struct {
	CriteriaScores map[string]float64 `json:"criteria_scores" validate:"omitempty,dive,gte=0,lte=100"`
	OverallScore   *float64           `json:"overall_score" validate:"required,gte=0,lte=100"`
	Feedback       string             `json:"feedback" validate:"max=5000"`
}

type ReviewService struct {
	reviewRepo dr.ReviewRepository
	subRepo    dr.SubmissionRepository
	userRepo   dr.UserRepository
	validate   *validator.Validate
}

func NewReviewService(reviewRepo dr.ReviewRepository, subRepo dr.SubmissionRepository, userRepo dr.UserRepository) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		subRepo:    subRepo,
		userRepo:   userRepo,
		validate:   validator.New(),
	}
}

// Create assigns the caller as a reviewer on a submission. Students create
// peer reviews on other students' work; teachers create instructor reviews
// and AI review assignments. The review starts pending.
func (s *ReviewService) Create(ctx context.Context, callerID, callerRole string, req *CreateReviewRequest) (*model.Review, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, err.Error())
	}

	reviewerType := model.ReviewerType(req.ReviewerType)
	switch reviewerType {
	case model.ReviewerPeer:
		if callerRole != model.RoleStudent {
			return nil, fmt.Errorf("only students can create peer reviews: %w", common.ErrForbidden)
		}
	case model.ReviewerAI, model.ReviewerInstructor:
		if callerRole != model.RoleTeacher {
			return nil, fmt.Errorf("only teachers can create %s reviews: %w", reviewerType, common.ErrForbidden)
		}
	}

	sub, err := s.subRepo.FindByID(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}
	if reviewerType == model.ReviewerPeer && sub.StudentID == callerID {
		return nil, fmt.Errorf("%w: cannot peer-review your own submission", common.ErrValidation)
	}

	review := &model.Review{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		ReviewerID:   callerID,
		ReviewerType: reviewerType,
		Status:       model.ReviewPending,
		IsAnonymous:  req.IsAnonymous,
		AssignedAt:   time.Now().UTC(),
	}
	if !req.IsAnonymous {
		reviewer, err := s.userRepo.FindByID(ctx, callerID)
		if err != nil {
			return nil, err
		}
		review.ReviewerName = &reviewer.Name
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// ListBySubmission returns a submission's reviews, newest first. The
// submission's owner and teachers may list; other students may not.
func (s *ReviewService) ListBySubmission(ctx context.Context, callerID, callerRole, submissionID string) ([]model.Review, error) {
	sub, err := s.subRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleTeacher && sub.StudentID != callerID {
		return nil, fmt.Errorf("submission belongs to another student: %w", common.ErrForbidden)
	}
	return s.reviewRepo.ListBySubmission(ctx, submissionID)
}

// Complete records the assigned reviewer's scores and feedback. Only the
// reviewer may complete their review, and only once.
func (s *ReviewService) Complete(ctx context.Context, callerID, reviewID string, req *CompleteReviewRequest) (*model.Review, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, err.Error())
	}

	review, err := s.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.ReviewerID != callerID {
		return nil, fmt.Errorf("review is assigned to another reviewer: %w", common.ErrForbidden)
	}
	if review.Status == model.ReviewCompleted {
		return nil, fmt.Errorf("review is already completed: %w", common.ErrConflict)
	}

	now := time.Now().UTC()
	review.Status = model.ReviewCompleted
	review.CriteriaScores = req.CriteriaScores
	review.OverallScore = req.OverallScore
	review.Feedback = req.Feedback
	review.CompletedAt = &now

	if err := s.reviewRepo.Complete(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}
