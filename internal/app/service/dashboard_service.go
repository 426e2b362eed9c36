package service

import (
	"context"
	"errors"
	"fmt"

	"proctorhub/internal/common"
	"proctorhub/internal/domain/model"
	dr "proctorhub/internal/domain/repository"
)

const recentSubmissionCount = 5

type StudentDashboard struct {
	StudentID        string             `json:"student_id"`
	StudentName      string             `json:"student_name"`
	TotalSubmissions int                `json:"total_submissions"`
	StatusCounts     map[string]int     `json:"status_counts"`
	AverageQuality   *float64           `json:"average_quality,omitempty"` // mean of latest code-quality scores
	Recent           []model.Submission `json:"recent"`
}

type SystemOverview struct {
	TotalSubmissions  int    `json:"total_submissions"`
	CodeAnalyses      int    `json:"code_analyses_completed"`
	PlagiarismReports int    `json:"plagiarism_reports_generated"`
	SystemStatus      string `json:"system_status"`
}

type DashboardService struct {
	userRepo   dr.UserRepository
	subRepo    dr.SubmissionRepository
	reportRepo dr.ReportRepository
}

func NewDashboardService(userRepo dr.UserRepository, subRepo dr.SubmissionRepository, reportRepo dr.ReportRepository) *DashboardService {
	return &DashboardService{userRepo: userRepo, subRepo: subRepo, reportRepo: reportRepo}
}

// StudentDashboard aggregates a student's submissions. Students may only view
// their own dashboard; teachers may view any.
func (s *DashboardService) StudentDashboard(ctx context.Context, callerID, callerRole, studentID string) (*StudentDashboard, error) {
	if callerRole != model.RoleTeacher && callerID != studentID {
		return nil, fmt.Errorf("dashboard belongs to another student: %w", common.ErrForbidden)
	}

	user, err := s.userRepo.FindByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if user.Role != model.RoleStudent {
		return nil, fmt.Errorf("user %s is not a student: %w", studentID, common.ErrBadRequest)
	}

	subs, err := s.subRepo.ListByStudent(ctx, studentID, 0)
	if err != nil {
		return nil, err
	}

	dash := &StudentDashboard{
		StudentID:        user.ID,
		StudentName:      user.Name,
		TotalSubmissions: len(subs),
		StatusCounts: map[string]int{
			string(model.StatusUploaded):  0,
			string(model.StatusAnalyzing): 0,
			string(model.StatusAnalyzed):  0,
			string(model.StatusFailed):    0,
		},
	}

	var qualitySum float64
	var qualityN int
	for _, sub := range subs {
		dash.StatusCounts[string(sub.Status)]++
		if sub.Status != model.StatusAnalyzed {
			continue
		}
		rep, err := s.reportRepo.LatestByKind(ctx, sub.ID, model.AnalyzerCodeQuality)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if rep.Status != model.ReportFailed && rep.Payload.CodeQuality != nil {
			qualitySum += rep.Payload.CodeQuality.AverageScore
			qualityN++
		}
	}
	if qualityN > 0 {
		avg := qualitySum / float64(qualityN)
		dash.AverageQuality = &avg
	}

	if len(subs) > recentSubmissionCount {
		subs = subs[:recentSubmissionCount]
	}
	dash.Recent = subs
	return dash, nil
}

// Overview aggregates system-wide counts. The handler restricts it to
// teachers.
func (s *DashboardService) Overview(ctx context.Context) (*SystemOverview, error) {
	total, err := s.subRepo.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	codeAnalyses, err := s.reportRepo.CountSubmissionsWithKind(ctx, model.AnalyzerCodeQuality)
	if err != nil {
		return nil, err
	}
	plagiarism, err := s.reportRepo.CountSubmissionsWithKind(ctx, model.AnalyzerPlagiarism)
	if err != nil {
		return nil, err
	}
	return &SystemOverview{
		TotalSubmissions:  total,
		CodeAnalyses:      codeAnalyses,
		PlagiarismReports: plagiarism,
		SystemStatus:      "operational",
	}, nil
}
