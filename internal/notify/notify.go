package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// PurchaseEvent tells a course owner that someone bought their course.
type PurchaseEvent struct {
	OwnerID      string `json:"owner_id"`
	BuyerID      string `json:"buyer_id"`
	CourseID     string `json:"course_id"`
	CourseTitle  string `json:"course_title"`
	EnrollmentID string `json:"enrollment_id"`
}

// CompletionEvent tells a learner they finished a course.
type CompletionEvent struct {
	BuyerID           string `json:"buyer_id"`
	CourseID          string `json:"course_id"`
	EnrollmentID      string `json:"enrollment_id"`
	CertificateNumber string `json:"certificate_number"`
}

type Notifier interface {
	CoursePurchased(ctx context.Context, ev PurchaseEvent) error
	EnrollmentCompleted(ctx context.Context, ev CompletionEvent) error
}

const (
	EventCoursePurchased     = "course.purchased"
	EventEnrollmentCompleted = "enrollment.completed"
)

type envelope struct {
	Type   string    `json:"type"`
	SentAt time.Time `json:"sent_at"`
	Data   any       `json:"data"`
}

// Webhook posts events as JSON to the notification service.
type Webhook struct {
	client *resty.Client
	url    string
}

func NewWebhook(url string) *Webhook {
	c := resty.New().
		SetTimeout(5*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &Webhook{client: c, url: url}
}

func (w *Webhook) CoursePurchased(ctx context.Context, ev PurchaseEvent) error {
	return w.post(ctx, EventCoursePurchased, ev)
}

func (w *Webhook) EnrollmentCompleted(ctx context.Context, ev CompletionEvent) error {
	return w.post(ctx, EventEnrollmentCompleted, ev)
}

func (w *Webhook) post(ctx context.Context, typ string, data any) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(envelope{Type: typ, SentAt: time.Now().UTC(), Data: data}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("notify %s: %w", typ, err)
	}
	if resp.IsError() {
		return fmt.Errorf("notify %s: status %d", typ, resp.StatusCode())
	}
	return nil
}

// LogNotifier only logs events; used when no webhook is configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) CoursePurchased(_ context.Context, ev PurchaseEvent) error {
	n.Log.Info("course purchased", "owner", ev.OwnerID, "buyer", ev.BuyerID, "course", ev.CourseID)
	return nil
}

func (n LogNotifier) EnrollmentCompleted(_ context.Context, ev CompletionEvent) error {
	n.Log.Info("enrollment completed", "buyer", ev.BuyerID, "course", ev.CourseID, "certificate", ev.CertificateNumber)
	return nil
}
