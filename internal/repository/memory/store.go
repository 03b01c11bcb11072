// Package memory is an in-process Store for tests and local runs without Postgres.
// Transactions are fully serialized and roll back by restoring a snapshot.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/coursepay/internal/models"
	repo "github.com/baharkarakas/coursepay/internal/repository"
)

type data struct {
	users        map[string]models.User
	courses      map[string]models.Course
	lessons      map[string]models.Lesson
	carts        map[string]models.Cart // by id, Items unused
	cartItems    map[string]models.CartItem
	checkouts    map[string]models.Checkout
	transactions map[string]models.Transaction
	enrollments  map[string]models.Enrollment
	progress     map[string]models.LessonProgress
	certificates map[string]models.Certificate
}

func newData() *data {
	return &data{
		users:        map[string]models.User{},
		courses:      map[string]models.Course{},
		lessons:      map[string]models.Lesson{},
		carts:        map[string]models.Cart{},
		cartItems:    map[string]models.CartItem{},
		checkouts:    map[string]models.Checkout{},
		transactions: map[string]models.Transaction{},
		enrollments:  map[string]models.Enrollment{},
		progress:     map[string]models.LessonProgress{},
		certificates: map[string]models.Certificate{},
	}
}

func (d *data) clone() *data {
	return &data{
		users:        maps.Clone(d.users),
		courses:      maps.Clone(d.courses),
		lessons:      maps.Clone(d.lessons),
		carts:        maps.Clone(d.carts),
		cartItems:    maps.Clone(d.cartItems),
		checkouts:    maps.Clone(d.checkouts),
		transactions: maps.Clone(d.transactions),
		enrollments:  maps.Clone(d.enrollments),
		progress:     maps.Clone(d.progress),
		certificates: maps.Clone(d.certificates),
	}
}

type Store struct {
	mu   sync.Mutex
	d    *data
	last time.Time
}

func NewStore() *Store {
	return &Store{d: newData()}
}

// Repos returns repositories that take the store lock per call.
func (s *Store) Repos() repo.Repositories {
	return s.repos(false)
}

func (s *Store) InTx(ctx context.Context, fn func(r repo.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	if err := fn(s.repos(true)); err != nil {
		s.d = snapshot
		return err
	}
	return nil
}

// now is strictly increasing so listings have a stable order. Callers hold mu.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// enter locks the store unless the caller already runs inside InTx.
func (s *Store) enter(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) repos(inTx bool) repo.Repositories {
	b := base{s: s, inTx: inTx}
	return repo.Repositories{
		Transactions: transactionsRepo{b},
		Checkouts:    checkoutsRepo{b},
		Enrollments:  enrollmentsRepo{b},
		Progress:     progressRepo{b},
		Certificates: certificatesRepo{b},
		Catalog:      catalogRepo{b},
		Content:      catalogRepo{b},
		Users:        usersRepo{b},
		Carts:        cartsRepo{b},
		Locks:        locksRepo{},
	}
}

type base struct {
	s    *Store
	inTx bool
}

func (b base) lock() func() { return b.s.enter(b.inTx) }

// ---- seeding, for collaborators this service does not own ----

func (s *Store) AddUser(u models.User) models.User {
	defer s.enter(false)()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = "user"
	}
	s.d.users[u.ID] = u
	return u
}

// AddCourse stores a course with lessonCount generated lessons.
func (s *Store) AddCourse(title string, price decimal.Decimal, instructorID *string, lessonCount int) (models.Course, []models.Lesson) {
	defer s.enter(false)()
	c := models.Course{ID: uuid.NewString(), Title: title, Price: price, InstructorID: instructorID, CreatedAt: s.now()}
	s.d.courses[c.ID] = c

	lessons := make([]models.Lesson, 0, lessonCount)
	for i := 0; i < lessonCount; i++ {
		l := models.Lesson{ID: uuid.NewString(), CourseID: c.ID, Position: i + 1}
		s.d.lessons[l.ID] = l
		lessons = append(lessons, l)
	}
	return c, lessons
}

// AddToCart puts a course into the user's cart, creating the cart on first use.
func (s *Store) AddToCart(userID, courseID string) string {
	defer s.enter(false)()
	cartID := ""
	for _, c := range s.d.carts {
		if c.UserID == userID {
			cartID = c.ID
		}
	}
	if cartID == "" {
		cartID = uuid.NewString()
		s.d.carts[cartID] = models.Cart{ID: cartID, UserID: userID}
	}
	it := models.CartItem{ID: uuid.NewString(), CartID: cartID, CourseID: courseID, AddedAt: s.now()}
	s.d.cartItems[it.ID] = it
	return cartID
}

type locksRepo struct{}

// LockBuyer is covered by the store-wide transaction lock.
func (locksRepo) LockBuyer(context.Context, string) error { return nil }
