package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/coursepay/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateCode = errors.New("duplicate correlation code")
)

// CourseOwnedError is returned when a checkout includes a course the buyer is already enrolled in.
type CourseOwnedError struct {
	CourseID string
}

func (e *CourseOwnedError) Error() string {
	return fmt.Sprintf("course %s already owned", e.CourseID)
}

type Transactions interface {
	CreateBatch(ctx context.Context, txns []models.Transaction) ([]models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	// LockByCode returns every row of a checkout group and holds row locks on them
	// until the surrounding transaction ends.
	LockByCode(ctx context.Context, code string) ([]models.Transaction, error)
	// SettlePending moves the group's PENDING rows to status and returns only the
	// rows it changed.
	SettlePending(ctx context.Context, code string, status models.TransactionStatus) ([]models.Transaction, error)
	List(ctx context.Context, limit, offset int) ([]models.Transaction, error)
	ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]models.Transaction, error)
	ListByCourse(ctx context.Context, courseID string, limit, offset int) ([]models.Transaction, error)
	// Revenue sums SUCCESS rows created in [from, to).
	Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, int, error)
	DeleteByCourse(ctx context.Context, courseID string) (int64, error)
}

type Checkouts interface {
	// Create fails with ErrDuplicateCode when the correlation code is taken.
	Create(ctx context.Context, c models.Checkout) (models.Checkout, error)
	Get(ctx context.Context, code string) (models.Checkout, error)
	// DeleteEmpty removes checkout records left without any transaction.
	DeleteEmpty(ctx context.Context) (int64, error)
}

type Enrollments interface {
	// Owned returns the subset of courseIDs the buyer is enrolled in.
	Owned(ctx context.Context, buyerID string, courseIDs []string) ([]string, error)
	GetByBuyerCourse(ctx context.Context, buyerID, courseID string) (models.Enrollment, error)
	// Create inserts e unless (buyer, course) already exists; created reports which happened.
	Create(ctx context.Context, e models.Enrollment) (out models.Enrollment, created bool, err error)
	GetByID(ctx context.Context, id string) (models.Enrollment, error)
	GetForUpdate(ctx context.Context, id string) (models.Enrollment, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Enrollment, error)
	UpdateProgress(ctx context.Context, id string, progress float64, status models.EnrollmentStatus, completedAt *time.Time) error
	DeleteByCourse(ctx context.Context, courseID string) (int64, error)
}

type LessonProgress interface {
	Get(ctx context.Context, enrollmentID, lessonID string) (models.LessonProgress, error)
	Upsert(ctx context.Context, p models.LessonProgress) (models.LessonProgress, error)
	CountCompleted(ctx context.Context, enrollmentID string) (int, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.LessonProgress, error)
}

type Certificates interface {
	GetByEnrollment(ctx context.Context, enrollmentID string) (models.Certificate, error)
	// Create is a no-op returning the existing certificate if the enrollment already has one.
	Create(ctx context.Context, c models.Certificate) (out models.Certificate, created bool, err error)
}

type Catalog interface {
	GetCourse(ctx context.Context, id string) (models.Course, error)
	// GetCourses returns the courses found, in the order of ids.
	GetCourses(ctx context.Context, ids []string) ([]models.Course, error)
	DeleteCourse(ctx context.Context, id string) error
}

type Content interface {
	GetLesson(ctx context.Context, id string) (models.Lesson, error)
	CountLessons(ctx context.Context, courseID string) (int, error)
}

type Users interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Carts interface {
	GetByUser(ctx context.Context, userID string) (models.Cart, error)
	Clear(ctx context.Context, cartID string) error
	RemoveCourse(ctx context.Context, courseID string) (int64, error)
}

type Locks interface {
	// LockBuyer serializes checkouts of one buyer until the surrounding transaction ends.
	LockBuyer(ctx context.Context, buyerID string) error
}

type Repositories struct {
	Transactions Transactions
	Checkouts    Checkouts
	Enrollments  Enrollments
	Progress     LessonProgress
	Certificates Certificates
	Catalog      Catalog
	Content      Content
	Users        Users
	Carts        Carts
	Locks        Locks
}

// Store hands out repositories bound either to the shared pool or to one transaction.
type Store interface {
	Repos() Repositories
	// InTx runs fn in one storage transaction; fn's error rolls everything back.
	InTx(ctx context.Context, fn func(r Repositories) error) error
}
