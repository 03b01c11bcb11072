package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/coursepay/internal/api/httpx"
)

// MyEnrollments: GET /enrollments
func (h *Handlers) MyEnrollments(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	list, err := h.Enroll.ListEnrollments(r.Context(), a.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// GetEnrollment: GET /enrollments/{id}
func (h *Handlers) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	d, err := h.Enroll.GetEnrollment(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

// CompleteLesson: POST /enrollments/{id}/lessons/{lessonID}/complete
func (h *Handlers) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	up, err := h.Enroll.MarkLessonCompleted(r.Context(), a, chi.URLParam(r, "id"), chi.URLParam(r, "lessonID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, up)
}

type watchRequest struct {
	LastWatchedTime int `json:"lastWatchedTime" validate:"gte=0"`
	TotalDuration   int `json:"totalDuration" validate:"gt=0"`
}

// WatchProgress: PUT /enrollments/{id}/lessons/{lessonID}/progress
func (h *Handlers) WatchProgress(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req watchRequest
	if !decode(w, r, &req) {
		return
	}
	up, err := h.Enroll.RecordWatchProgress(r.Context(), a, chi.URLParam(r, "id"), chi.URLParam(r, "lessonID"), req.LastWatchedTime, req.TotalDuration)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, up)
}
