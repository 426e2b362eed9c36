// Package inmem provides in-memory repository implementations used by
// package tests and local development without a database.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"
	"proctorhub/internal/domain/repository"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: map[string]model.User{}}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return common.ErrConflict
		}
		if user.StudentID != nil && u.StudentID != nil && *u.StudentID == *user.StudentID {
			return common.ErrConflict
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		cp := u
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (r *UserRepository) FindByStudentID(_ context.Context, studentID string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.StudentID != nil && *u.StudentID == studentID {
			cp := u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *UserRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.LastLogin = &at
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

type SubmissionRepository struct {
	mu   sync.RWMutex
	subs map[string]model.Submission
}

func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{subs: map[string]model.Submission{}}
}

var _ repository.SubmissionRepository = (*SubmissionRepository)(nil)

func (r *SubmissionRepository) Create(_ context.Context, sub *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	r.subs[sub.ID] = cloneSubmission(*sub)
	return nil
}

func (r *SubmissionRepository) FindByID(_ context.Context, id string) (*model.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.subs[id]; ok {
		cp := cloneSubmission(s)
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (r *SubmissionRepository) ListByStudent(_ context.Context, studentID string, limit int) ([]model.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Submission
	for _, s := range r.subs {
		if s.StudentID == studentID {
			out = append(out, cloneSubmission(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SubmissionRepository) UpdateStatus(_ context.Context, id string, status model.SubmissionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return common.ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	r.subs[id] = s
	return nil
}

func (r *SubmissionRepository) CountAll(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs), nil
}

func (r *SubmissionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.subs, id)
	return nil
}

func cloneSubmission(s model.Submission) model.Submission {
	s.Files = append([]model.SubmissionFile(nil), s.Files...)
	s.Tags = append([]string(nil), s.Tags...)
	s.Languages = append([]string(nil), s.Languages...)
	return s
}

type ReportRepository struct {
	mu      sync.RWMutex
	reports []model.AnalysisReport
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{}
}

var _ repository.ReportRepository = (*ReportRepository)(nil)

func (r *ReportRepository) Create(_ context.Context, report *model.AnalysisReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, *report)
	return nil
}

func (r *ReportRepository) LatestByKind(_ context.Context, submissionID string, kind model.AnalyzerKind) (*model.AnalysisReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *model.AnalysisReport
	for i := range r.reports {
		rep := r.reports[i]
		if rep.SubmissionID != submissionID || rep.Kind != kind {
			continue
		}
		if latest == nil || rep.GeneratedAt.After(latest.GeneratedAt) {
			cp := rep
			latest = &cp
		}
	}
	if latest == nil {
		return nil, common.ErrNotFound
	}
	return latest, nil
}

func (r *ReportRepository) ListBySubmission(_ context.Context, submissionID string) ([]model.AnalysisReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.AnalysisReport
	for _, rep := range r.reports {
		if rep.SubmissionID == submissionID {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, nil
}

func (r *ReportRepository) CountSubmissionsWithKind(_ context.Context, kind model.AnalyzerKind) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, rep := range r.reports {
		if rep.Kind == kind {
			seen[rep.SubmissionID] = struct{}{}
		}
	}
	return len(seen), nil
}

type ReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]model.Review
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{reviews: map[string]model.Review{}}
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

func (r *ReviewRepository) Create(_ context.Context, review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews[review.ID] = cloneReview(*review)
	return nil
}

func (r *ReviewRepository) FindByID(_ context.Context, id string) (*model.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rev, ok := r.reviews[id]; ok {
		cp := cloneReview(rev)
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (r *ReviewRepository) ListBySubmission(_ context.Context, submissionID string) ([]model.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Review
	for _, rev := range r.reviews {
		if rev.SubmissionID == submissionID {
			out = append(out, cloneReview(rev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.After(out[j].AssignedAt) })
	return out, nil
}

func (r *ReviewRepository) Complete(_ context.Context, review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[review.ID]; !ok {
		return common.ErrNotFound
	}
	r.reviews[review.ID] = cloneReview(*review)
	return nil
}

func cloneReview(rev model.Review) model.Review {
	if rev.CriteriaScores != nil {
		scores := make(map[string]float64, len(rev.CriteriaScores))
		for k, v := range rev.CriteriaScores {
			scores[k] = v
		}
		rev.CriteriaScores = scores
	}
	return rev
}
