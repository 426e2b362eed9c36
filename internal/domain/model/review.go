package model

import "time"

type ReviewerType string

const (
	ReviewerAI         ReviewerType = "ai"
	ReviewerPeer       ReviewerType = "peer"
	ReviewerInstructor ReviewerType = "instructor"
)

type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewCompleted ReviewStatus = "completed"
)

// Review is a review assignment on a submission. It is created pending and
// carries no scores until the assigned reviewer submits them. Anonymous
// reviews never store the reviewer's name.
type Review struct {
	ID             string             `json:"id"`
	SubmissionID   string             `json:"submission_id"`
	ReviewerID     string             `json:"reviewer_id"`
	ReviewerName   *string            `json:"reviewer_name,omitempty"` // Nil when anonymous
	ReviewerType   ReviewerType       `json:"reviewer_type"`
	Status         ReviewStatus       `json:"status"`
	IsAnonymous    bool               `json:"is_anonymous"`
	CriteriaScores map[string]float64 `json:"criteria_scores,omitempty"`
	OverallScore   *float64           `json:"overall_score,omitempty"`
	Feedback       string             `json:"feedback,omitempty"`
	AssignedAt     time.Time          `json:"assigned_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
}
