package service

import (
	"context"
	"testing"

	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"
	"proctorhub/internal/domain/repository/inmem"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewFixture struct {
	service *ReviewService
	users   *inmem.UserRepository
	subs    *inmem.SubmissionRepository
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	users := inmem.NewUserRepository()
	subs := inmem.NewSubmissionRepository()
	return &reviewFixture{
		service: NewReviewService(inmem.NewReviewRepository(), subs, users),
		users:   users,
		subs:    subs,
	}
}

func (f *reviewFixture) seedUser(t *testing.T, id, role string) {
	t.Helper()
	u := &model.User{
		ID: id, Email: id + "@example.edu", Role: role,
		Name: "User " + id, IsActive: true,
	}
	if role == model.RoleStudent {
		sid := "S-" + id
		u.StudentID = &sid
	}
	require.NoError(t, f.users.Create(context.Background(), u))
}

func (f *reviewFixture) seedSubmission(t *testing.T, studentID string) *model.Submission {
	t.Helper()
	sub := &model.Submission{
		ID: uuid.NewString(), StudentID: studentID, Kind: model.KindCode,
		Title: "T", Slug: "t", Status: model.StatusUploaded,
	}
	require.NoError(t, f.subs.Create(context.Background(), sub))
	return sub
}

func TestCreatePeerReview(t *testing.T) {
	f := newReviewFixture(t)
	f.seedUser(t, "stu-1", model.RoleStudent)
	f.seedUser(t, "stu-2", model.RoleStudent)
	sub := f.seedSubmission(t, "stu-1")

	review, err := f.service.Create(context.Background(), "stu-2", model.RoleStudent, &CreateReviewRequest{
		SubmissionID: sub.ID, ReviewerType: "peer", IsAnonymous: true,
	})
	require.NoError(t, err)

	assert.Equal(t, model.ReviewPending, review.Status)
	assert.Equal(t, model.ReviewerPeer, review.ReviewerType)
	assert.Equal(t, "stu-2", review.ReviewerID)
	assert.Nil(t, review.ReviewerName, "anonymous reviews never carry a name")
	assert.Nil(t, review.OverallScore)
	assert.False(t, review.AssignedAt.IsZero())
}

func TestCreateNamedInstructorReview(t *testing.T) {
	f := newReviewFixture(t)
	f.seedUser(t, "stu-1", model.RoleStudent)
	f.seedUser(t, "prof-1", model.RoleTeacher)
	sub := f.seedSubmission(t, "stu-1")

	review, err := f.service.Create(context.Background(), "prof-1", model.RoleTeacher, &CreateReviewRequest{
		SubmissionID: sub.ID, ReviewerType: "instructor",
	})
	require.NoError(t, err)
	require.NotNil(t, review.ReviewerName)
	assert.Equal(t, "User prof-1", *review.ReviewerName)
}

func TestCreateReviewAccessRules(t *testing.T) {
	f := newReviewFixture(t)
	f.seedUser(t, "stu-1", model.RoleStudent)
	f.seedUser(t, "stu-2", model.RoleStudent)
	f.seedUser(t, "prof-1", model.RoleTeacher)
	sub := f.seedSubmission(t, "stu-1")
	ctx := context.Background()

	// Teachers cannot create peer reviews, students cannot create
	// instructor or AI reviews.
	_, err := f.service.Create(ctx, "prof-1", model.RoleTeacher, &CreateReviewRequest{
		SubmissionID: sub.ID, ReviewerType: "peer",
	})
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.service.Create(ctx, "stu-2", model.RoleStudent, &CreateReviewRequest{
		SubmissionID: sub.ID, ReviewerType: "instructor",
	})
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.service.Create(ctx, "stu-2", model.RoleStudent, &CreateReviewRequest{
		SubmissionID: sub.ID, ReviewerType: "ai",
	})
	assert.ErrorIs(t, err, common.ErrForbidden)

	// Students cannot peer-review their own submission.
	_, err = f.service.Create(ctx, "stu-1", model.RoleStudent, &CreateReviewRequest{
		SubmissionID: sub.ID, ReviewerType: "peer",
	})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.service.Create(ctx, "stu-2", model.RoleStudent, &CreateReviewRequest{
		SubmissionID: sub.ID, ReviewerType: "committee",
	})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.service.Create(ctx, "stu-2", model.RoleStudent, &CreateReviewRequest{
		SubmissionID: uuid.NewString(), ReviewerType: "peer",
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCompleteReview(t *testing.T) {
	f := newReviewFixture(t)
	f.seedUser(t, "stu-1", model.RoleStudent)
	f.seedUser(t, "stu-2", model.RoleStudent)
	sub := f.seedSubmission(t, "stu-1")
	ctx := context.Background()

	review, err := f.service.Create(ctx, "stu-2", model.RoleStudent, &CreateReviewRequest{
		SubmissionID: sub.ID, ReviewerType: "peer", IsAnonymous: true,
	})
	require.NoError(t, err)

	score := 87.5
	done, err := f.service.Complete(ctx, "stu-2", review.ID, &CompleteReviewRequest{
		CriteriaScores: map[string]float64{"correctness": 90, "style": 85},
		OverallScore:   &score,
		Feedback:       "Clean solution, missing edge case tests.",
	})
	require.NoError(t, err)

	assert.Equal(t, model.ReviewCompleted, done.Status)
	require.NotNil(t, done.OverallScore)
	assert.Equal(t, 87.5, *done.OverallScore)
	assert.Equal(t, 90.0, done.CriteriaScores["correctness"])
	require.NotNil(t, done.CompletedAt)

	// Listing reflects the completed state.
	reviews, err := f.service.ListBySubmission(ctx, "stu-1", model.RoleStudent, sub.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, model.ReviewCompleted, reviews[0].Status)
}

func TestCompleteReviewGuards(t *testing.T) {
	f := newReviewFixture(t)
	f.seedUser(t, "stu-1", model.RoleStudent)
	f.seedUser(t, "stu-2", model.RoleStudent)
	sub := f.seedSubmission(t, "stu-1")
	ctx := context.Background()

	review, err := f.service.Create(ctx, "stu-2", model.RoleStudent, &CreateReviewRequest{
		SubmissionID: sub.ID, ReviewerType: "peer",
	})
	require.NoError(t, err)

	score := 70.0
	req := &CompleteReviewRequest{OverallScore: &score}

	// Only the assigned reviewer may complete.
	_, err = f.service.Complete(ctx, "stu-1", review.ID, req)
	assert.ErrorIs(t, err, common.ErrForbidden)

	// Scores outside 0-100 are rejected.
	bad := 120.0
	_, err = f.service.Complete(ctx, "stu-2", review.ID, &CompleteReviewRequest{OverallScore: &bad})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.service.Complete(ctx, "stu-2", review.ID, &CompleteReviewRequest{})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.service.Complete(ctx, "stu-2", review.ID, req)
	require.NoError(t, err)

	// A second completion conflicts.
	_, err = f.service.Complete(ctx, "stu-2", review.ID, req)
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = f.service.Complete(ctx, "stu-2", uuid.NewString(), req)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListReviewsOwnership(t *testing.T) {
	f := newReviewFixture(t)
	f.seedUser(t, "stu-1", model.RoleStudent)
	f.seedUser(t, "stu-2", model.RoleStudent)
	f.seedUser(t, "prof-1", model.RoleTeacher)
	sub := f.seedSubmission(t, "stu-1")
	ctx := context.Background()

	_, err := f.service.Create(ctx, "stu-2", model.RoleStudent, &CreateReviewRequest{
		SubmissionID: sub.ID, ReviewerType: "peer", IsAnonymous: true,
	})
	require.NoError(t, err)

	// Owner and teacher may list; an unrelated student may not.
	reviews, err := f.service.ListBySubmission(ctx, "stu-1", model.RoleStudent, sub.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	_, err = f.service.ListBySubmission(ctx, "prof-1", model.RoleTeacher, sub.ID)
	require.NoError(t, err)

	_, err = f.service.ListBySubmission(ctx, "stu-2", model.RoleStudent, sub.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)
}
