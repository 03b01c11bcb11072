package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is the catalog view the payment engine needs: identity, price and owner.
type Course struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	InstructorID *string         `json:"instructor_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Lesson struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

type CartItem struct {
	ID       string    `json:"id"`
	CartID   string    `json:"cart_id"`
	CourseID string    `json:"course_id"`
	AddedAt  time.Time `json:"added_at"`
}

// Cart is the buyer's pending basket; Items is filled when loaded with its contents.
type Cart struct {
	ID     string     `json:"id"`
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}
