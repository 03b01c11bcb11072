package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/coursepay/internal/api/handlers"
	"github.com/baharkarakas/coursepay/internal/config"
	"github.com/baharkarakas/coursepay/internal/metrics"
	"github.com/baharkarakas/coursepay/internal/middleware"
)

type RouterDeps struct {
	Cfg  config.Config
	Auth *middleware.AuthMiddleware
	H    *handlers.Handlers
}

func NewRouter(d RouterDeps) http.Handler {
	h := d.H
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover(h.Log), middleware.RateLimit(d.Cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- gateway (unauthenticated, signature checked) ----------
		r.Get("/vnpay/return", h.VNPayReturn)
		r.Get("/vnpay/ipn", h.VNPayIPN)
		r.Post("/vnpay/ipn", h.VNPayIPN)
		if d.Cfg.MockCallback {
			r.Post("/payments/callback", h.MockCallback)
		}

		// ---------- buyer ----------
		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Auth)

			r.Post("/payments/courses/{courseID}", h.PurchaseCourse)
			r.Post("/cart/checkout", h.CheckoutCart)

			r.Get("/transactions", h.MyTransactions)
			r.Get("/transactions/{id}", h.GetTransaction)

			r.Get("/enrollments", h.MyEnrollments)
			r.Get("/enrollments/{id}", h.GetEnrollment)
			r.Post("/enrollments/{id}/lessons/{lessonID}/complete", h.CompleteLesson)
			r.Put("/enrollments/{id}/lessons/{lessonID}/progress", h.WatchProgress)
		})

		// ---------- admin ----------
		r.Route("/admin", func(r chi.Router) {
			r.Use(d.Auth.Auth, middleware.RequireRole(middleware.RoleAdmin))

			r.Get("/revenue", h.Revenue)
			r.Get("/transactions", h.AllTransactions)
			r.Get("/courses/{courseID}/transactions", h.CourseTransactions)
			r.Delete("/courses/{courseID}", h.DeleteCourse)
		})
	})

	return r
}
