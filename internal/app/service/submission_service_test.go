package service

import (
	"context"
	"sync"
	"testing"

	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"
	"proctorhub/internal/domain/repository/inmem"
	"proctorhub/internal/platform/blob"
	"proctorhub/internal/platform/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []queue.CleanupJob
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job queue.CleanupJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newSubmissionFixture(t *testing.T) (*SubmissionService, *blob.Store, *fakeQueue) {
	t.Helper()
	store, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	q := &fakeQueue{}
	return NewSubmissionService(inmem.NewSubmissionRepository(), store, q), store, q
}

func uploadReq() *UploadRequest {
	return &UploadRequest{
		Kind:  "mixed",
		Title: "Assignment 3: Sorting",
		Tags:  []string{"algorithms"},
	}
}

func TestUploadStoresFilesAndDetectsLanguages(t *testing.T) {
	s, store, _ := newSubmissionFixture(t)

	sub, err := s.Upload(context.Background(), "stu-1", uploadReq(), []UploadFile{
		{Name: "solution.py", ContentType: "text/x-python", Content: []byte("def f():\n    return 1")},
		{Name: "writeup.txt", ContentType: "text/plain", Content: []byte("I used quicksort.")},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusUploaded, sub.Status)
	assert.Equal(t, "assignment-3-sorting", sub.Slug)
	assert.Equal(t, []string{"python"}, sub.Languages)
	require.Len(t, sub.Files, 2)

	assert.Equal(t, 0, sub.Files[0].Position)
	require.NotNil(t, sub.Files[0].DetectedLanguage)
	assert.Equal(t, "python", *sub.Files[0].DetectedLanguage)
	assert.Nil(t, sub.Files[1].DetectedLanguage)

	data, err := store.Get(sub.Files[0].BlobID)
	require.NoError(t, err)
	assert.Equal(t, "def f():\n    return 1", string(data))
}

func TestUploadIdenticalBytesMakeIndependentSubmissions(t *testing.T) {
	s, store, _ := newSubmissionFixture(t)
	files := []UploadFile{{Name: "solution.py", ContentType: "text/x-python", Content: []byte("def f():\n    return 1")}}

	first, err := s.Upload(context.Background(), "stu-1", uploadReq(), files)
	require.NoError(t, err)
	second, err := s.Upload(context.Background(), "stu-1", uploadReq(), files)
	require.NoError(t, err)

	// Resubmitting the same bytes never dedupes: each upload gets its own
	// submission, file rows, and blobs.
	assert.NotEqual(t, first.ID, second.ID)
	require.Len(t, first.Files, 1)
	require.Len(t, second.Files, 1)
	assert.NotEqual(t, first.Files[0].ID, second.Files[0].ID)
	assert.NotEqual(t, first.Files[0].BlobID, second.Files[0].BlobID)

	got, err := s.Get(context.Background(), "stu-1", model.RoleStudent, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	data, err := store.Get(second.Files[0].BlobID)
	require.NoError(t, err)
	assert.Equal(t, "def f():\n    return 1", string(data))
}

func TestUploadValidation(t *testing.T) {
	s, _, _ := newSubmissionFixture(t)
	ctx := context.Background()
	file := []UploadFile{{Name: "a.py", Content: []byte("x = 1")}}

	_, err := s.Upload(ctx, "stu-1", &UploadRequest{Kind: "video", Title: "A Title"}, file)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Upload(ctx, "stu-1", &UploadRequest{Kind: "code", Title: "ab"}, file)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Upload(ctx, "stu-1", uploadReq(), nil)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Upload(ctx, "stu-1", uploadReq(), []UploadFile{{Name: "", Content: []byte("x")}})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestGetEnforcesOwnership(t *testing.T) {
	s, _, _ := newSubmissionFixture(t)
	ctx := context.Background()

	sub, err := s.Upload(ctx, "stu-1", uploadReq(), []UploadFile{{Name: "a.py", Content: []byte("x = 1")}})
	require.NoError(t, err)

	// Owner sees it.
	got, err := s.Get(ctx, "stu-1", model.RoleStudent, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	// Another student does not.
	_, err = s.Get(ctx, "stu-2", model.RoleStudent, sub.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	// Teachers see any submission.
	_, err = s.Get(ctx, "tea-1", model.RoleTeacher, sub.ID)
	assert.NoError(t, err)

	_, err = s.Get(ctx, "stu-1", model.RoleStudent, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteEnqueuesCleanup(t *testing.T) {
	s, _, q := newSubmissionFixture(t)
	ctx := context.Background()

	sub, err := s.Upload(ctx, "stu-1", uploadReq(), []UploadFile{
		{Name: "a.py", Content: []byte("x = 1")},
		{Name: "b.py", Content: []byte("y = 2")},
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "stu-1", model.RoleStudent, sub.ID))

	_, err = s.Get(ctx, "stu-1", model.RoleStudent, sub.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, sub.ID, q.jobs[0].SubmissionID)
	assert.Len(t, q.jobs[0].BlobIDs, 2)
}

func TestDeleteForbiddenForOtherStudents(t *testing.T) {
	s, _, q := newSubmissionFixture(t)
	ctx := context.Background()

	sub, err := s.Upload(ctx, "stu-1", uploadReq(), []UploadFile{{Name: "a.py", Content: []byte("x = 1")}})
	require.NoError(t, err)

	err = s.Delete(ctx, "stu-2", model.RoleStudent, sub.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.Empty(t, q.jobs)
}

func TestDeleteSurvivesQueueFailure(t *testing.T) {
	s, _, q := newSubmissionFixture(t)
	ctx := context.Background()
	q.err = context.DeadlineExceeded

	sub, err := s.Upload(ctx, "stu-1", uploadReq(), []UploadFile{{Name: "a.py", Content: []byte("x = 1")}})
	require.NoError(t, err)

	// The delete still succeeds; cleanup is logged and lost, not fatal.
	require.NoError(t, s.Delete(ctx, "stu-1", model.RoleStudent, sub.ID))
	_, err = s.Get(ctx, "tea-1", model.RoleTeacher, sub.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
