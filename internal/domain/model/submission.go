package model

import "time"

type SubmissionKind string

const (
	KindCode    SubmissionKind = "code"
	KindWriteup SubmissionKind = "writeup"
	KindMixed   SubmissionKind = "mixed"
)

func IsValidSubmissionKind(kind string) bool {
	switch SubmissionKind(kind) {
	case KindCode, KindWriteup, KindMixed:
		return true
	}
	return false
}

type SubmissionStatus string

const (
	StatusUploaded  SubmissionStatus = "uploaded"
	StatusAnalyzing SubmissionStatus = "analyzing"
	StatusAnalyzed  SubmissionStatus = "analyzed"
	StatusFailed    SubmissionStatus = "failed" // Infrastructure failure, not analyzer failure
)

type Submission struct {
	ID          string           `json:"id"`
	StudentID   string           `json:"student_id"`
	Kind        SubmissionKind   `json:"kind"`
	Title       string           `json:"title"`
	Slug        string           `json:"slug"`
	Description string           `json:"description,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Languages   []string         `json:"languages,omitempty"` // Declared or detected programming languages
	Status      SubmissionStatus `json:"status"`
	Files       []SubmissionFile `json:"files,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// SubmissionFile references one uploaded file. The bytes live in the blob
// store under BlobID; the row only carries metadata.
type SubmissionFile struct {
	ID               string  `json:"id"`
	SubmissionID     string  `json:"submission_id"`
	BlobID           string  `json:"blob_id"`
	OriginalName     string  `json:"original_name"`
	ContentType      string  `json:"content_type"`
	SizeBytes        int64   `json:"size_bytes"`
	DetectedLanguage *string `json:"detected_language,omitempty"`
	Position         int     `json:"position"`
}
