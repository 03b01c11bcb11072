package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/coursepay/internal/api/httpx"
)

// DeleteCourse: DELETE /admin/courses/{courseID}
func (h *Handlers) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Teardown.Delete(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rep)
}
