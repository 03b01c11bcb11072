package models

import (
	"math"
	"time"
)

type EnrollmentStatus string

const (
	EnrollmentInProgress EnrollmentStatus = "IN_PROGRESS"
	EnrollmentCompleted  EnrollmentStatus = "COMPLETED"
)

type Enrollment struct {
	ID                  string           `json:"id"`
	BuyerID             string           `json:"buyer_id"`
	CourseID            string           `json:"course_id"`
	SourceTransactionID *string          `json:"source_transaction_id,omitempty"`
	EnrolledAt          time.Time        `json:"enrolled_at"`
	Progress            float64          `json:"progress"`
	Status              EnrollmentStatus `json:"status"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
}

// CourseProgress is completed/total as a percentage rounded to two decimals.
// A course without lessons counts as fully complete.
func CourseProgress(completed, total int) float64 {
	if total <= 0 {
		return 100
	}
	p := float64(completed) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	return math.Round(p*100) / 100
}

type LessonProgress struct {
	ID              string     `json:"id"`
	EnrollmentID    string     `json:"enrollment_id"`
	LessonID        string     `json:"lesson_id"`
	IsCompleted     bool       `json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	LastWatchedTime int        `json:"last_watched_time"`
	TotalDuration   int        `json:"total_duration"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// AutoCompleteRatio is the watched/total share at which a lesson completes by itself.
const AutoCompleteRatio = 0.9

// Watched reports whether the recorded watch time crosses AutoCompleteRatio.
func (p LessonProgress) Watched() bool {
	if p.TotalDuration <= 0 {
		return false
	}
	return float64(p.LastWatchedTime)/float64(p.TotalDuration) >= AutoCompleteRatio
}

type Certificate struct {
	ID                string    `json:"id"`
	EnrollmentID      string    `json:"enrollment_id"`
	CertificateNumber string    `json:"certificate_number"`
	IssuedAt          time.Time `json:"issued_at"`
}
