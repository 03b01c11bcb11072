package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/coursepay/internal/models"
	repo "github.com/baharkarakas/coursepay/internal/repository"
)

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type transactionsRepo struct{ base }

func (r transactionsRepo) CreateBatch(_ context.Context, txns []models.Transaction) ([]models.Transaction, error) {
	defer r.lock()()
	d := r.s.d
	out := make([]models.Transaction, 0, len(txns))
	for _, t := range txns {
		if _, ok := d.checkouts[t.CorrelationCode]; !ok {
			return nil, repo.ErrNotFound
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.CreatedAt = r.s.now()
		t.UpdatedAt = t.CreatedAt
		d.transactions[t.ID] = t
		out = append(out, t)
	}
	return out, nil
}

func (r transactionsRepo) GetByID(_ context.Context, id string) (models.Transaction, error) {
	defer r.lock()()
	t, ok := r.s.d.transactions[id]
	if !ok {
		return models.Transaction{}, repo.ErrNotFound
	}
	return t, nil
}

func (r transactionsRepo) byCode(code string) []models.Transaction {
	var out []models.Transaction
	for _, t := range r.s.d.transactions {
		if t.CorrelationCode == code {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r transactionsRepo) LockByCode(_ context.Context, code string) ([]models.Transaction, error) {
	defer r.lock()()
	return r.byCode(code), nil
}

func (r transactionsRepo) SettlePending(_ context.Context, code string, status models.TransactionStatus) ([]models.Transaction, error) {
	defer r.lock()()
	var out []models.Transaction
	for _, t := range r.byCode(code) {
		if t.Status.Terminal() {
			continue
		}
		t.Status = status
		t.UpdatedAt = r.s.now()
		r.s.d.transactions[t.ID] = t
		out = append(out, t)
	}
	return out, nil
}

func (r transactionsRepo) list(match func(models.Transaction) bool, limit, offset int) []models.Transaction {
	var out []models.Transaction
	for _, t := range r.s.d.transactions {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset)
}

func (r transactionsRepo) List(_ context.Context, limit, offset int) ([]models.Transaction, error) {
	defer r.lock()()
	return r.list(func(models.Transaction) bool { return true }, limit, offset), nil
}

func (r transactionsRepo) ListByBuyer(_ context.Context, buyerID string, limit, offset int) ([]models.Transaction, error) {
	defer r.lock()()
	return r.list(func(t models.Transaction) bool { return t.BuyerID == buyerID }, limit, offset), nil
}

func (r transactionsRepo) ListByCourse(_ context.Context, courseID string, limit, offset int) ([]models.Transaction, error) {
	defer r.lock()()
	return r.list(func(t models.Transaction) bool { return t.CourseID == courseID }, limit, offset), nil
}

func (r transactionsRepo) Revenue(_ context.Context, from, to time.Time) (decimal.Decimal, int, error) {
	defer r.lock()()
	total, n := decimal.Zero, 0
	for _, t := range r.s.d.transactions {
		if t.Status == models.TxnSuccess && !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			total = total.Add(t.Amount)
			n++
		}
	}
	return total, n, nil
}

func (r transactionsRepo) DeleteByCourse(_ context.Context, courseID string) (int64, error) {
	defer r.lock()()
	var n int64
	for id, t := range r.s.d.transactions {
		if t.CourseID == courseID {
			delete(r.s.d.transactions, id)
			n++
		}
	}
	for id, e := range r.s.d.enrollments {
		if e.SourceTransactionID != nil {
			if _, ok := r.s.d.transactions[*e.SourceTransactionID]; !ok {
				e.SourceTransactionID = nil
				r.s.d.enrollments[id] = e
			}
		}
	}
	return n, nil
}

type checkoutsRepo struct{ base }

func (r checkoutsRepo) Create(_ context.Context, c models.Checkout) (models.Checkout, error) {
	defer r.lock()()
	if _, ok := r.s.d.checkouts[c.CorrelationCode]; ok {
		return models.Checkout{}, repo.ErrDuplicateCode
	}
	c.CreatedAt = r.s.now()
	r.s.d.checkouts[c.CorrelationCode] = c
	return c, nil
}

func (r checkoutsRepo) Get(_ context.Context, code string) (models.Checkout, error) {
	defer r.lock()()
	c, ok := r.s.d.checkouts[code]
	if !ok {
		return models.Checkout{}, repo.ErrNotFound
	}
	return c, nil
}

func (r checkoutsRepo) DeleteEmpty(_ context.Context) (int64, error) {
	defer r.lock()()
	used := map[string]bool{}
	for _, t := range r.s.d.transactions {
		used[t.CorrelationCode] = true
	}
	var n int64
	for code := range r.s.d.checkouts {
		if !used[code] {
			delete(r.s.d.checkouts, code)
			n++
		}
	}
	return n, nil
}

type enrollmentsRepo struct{ base }

func (r enrollmentsRepo) find(buyerID, courseID string) (models.Enrollment, bool) {
	for _, e := range r.s.d.enrollments {
		if e.BuyerID == buyerID && e.CourseID == courseID {
			return e, true
		}
	}
	return models.Enrollment{}, false
}

func (r enrollmentsRepo) Owned(_ context.Context, buyerID string, courseIDs []string) ([]string, error) {
	defer r.lock()()
	var out []string
	for _, id := range courseIDs {
		if _, ok := r.find(buyerID, id); ok && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (r enrollmentsRepo) GetByBuyerCourse(_ context.Context, buyerID, courseID string) (models.Enrollment, error) {
	defer r.lock()()
	e, ok := r.find(buyerID, courseID)
	if !ok {
		return models.Enrollment{}, repo.ErrNotFound
	}
	return e, nil
}

func (r enrollmentsRepo) Create(_ context.Context, e models.Enrollment) (models.Enrollment, bool, error) {
	defer r.lock()()
	if existing, ok := r.find(e.BuyerID, e.CourseID); ok {
		return existing, false, nil
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = models.EnrollmentInProgress
	}
	e.EnrolledAt = r.s.now()
	r.s.d.enrollments[e.ID] = e
	return e, true, nil
}

func (r enrollmentsRepo) GetByID(_ context.Context, id string) (models.Enrollment, error) {
	defer r.lock()()
	e, ok := r.s.d.enrollments[id]
	if !ok {
		return models.Enrollment{}, repo.ErrNotFound
	}
	return e, nil
}

func (r enrollmentsRepo) GetForUpdate(ctx context.Context, id string) (models.Enrollment, error) {
	return r.GetByID(ctx, id)
}

func (r enrollmentsRepo) ListByBuyer(_ context.Context, buyerID string) ([]models.Enrollment, error) {
	defer r.lock()()
	var out []models.Enrollment
	for _, e := range r.s.d.enrollments {
		if e.BuyerID == buyerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.After(out[j].EnrolledAt) })
	return out, nil
}

func (r enrollmentsRepo) UpdateProgress(_ context.Context, id string, progress float64, status models.EnrollmentStatus, completedAt *time.Time) error {
	defer r.lock()()
	e, ok := r.s.d.enrollments[id]
	if !ok {
		return repo.ErrNotFound
	}
	e.Progress, e.Status, e.CompletedAt = progress, status, completedAt
	r.s.d.enrollments[id] = e
	return nil
}

func (r enrollmentsRepo) DeleteByCourse(_ context.Context, courseID string) (int64, error) {
	defer r.lock()()
	d := r.s.d
	var n int64
	for id, e := range d.enrollments {
		if e.CourseID != courseID {
			continue
		}
		delete(d.enrollments, id)
		n++
		for pid, p := range d.progress {
			if p.EnrollmentID == id {
				delete(d.progress, pid)
			}
		}
		for cid, c := range d.certificates {
			if c.EnrollmentID == id {
				delete(d.certificates, cid)
			}
		}
	}
	return n, nil
}

type progressRepo struct{ base }

func (r progressRepo) find(enrollmentID, lessonID string) (models.LessonProgress, bool) {
	for _, p := range r.s.d.progress {
		if p.EnrollmentID == enrollmentID && p.LessonID == lessonID {
			return p, true
		}
	}
	return models.LessonProgress{}, false
}

func (r progressRepo) Get(_ context.Context, enrollmentID, lessonID string) (models.LessonProgress, error) {
	defer r.lock()()
	p, ok := r.find(enrollmentID, lessonID)
	if !ok {
		return models.LessonProgress{}, repo.ErrNotFound
	}
	return p, nil
}

func (r progressRepo) Upsert(_ context.Context, p models.LessonProgress) (models.LessonProgress, error) {
	defer r.lock()()
	if cur, ok := r.find(p.EnrollmentID, p.LessonID); ok {
		p.ID = cur.ID
		p.IsCompleted = cur.IsCompleted || p.IsCompleted
		if cur.CompletedAt != nil {
			p.CompletedAt = cur.CompletedAt
		}
	} else if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.UpdatedAt = r.s.now()
	r.s.d.progress[p.ID] = p
	return p, nil
}

func (r progressRepo) CountCompleted(_ context.Context, enrollmentID string) (int, error) {
	defer r.lock()()
	n := 0
	for _, p := range r.s.d.progress {
		if p.EnrollmentID == enrollmentID && p.IsCompleted {
			n++
		}
	}
	return n, nil
}

func (r progressRepo) ListByEnrollment(_ context.Context, enrollmentID string) ([]models.LessonProgress, error) {
	defer r.lock()()
	var out []models.LessonProgress
	for _, p := range r.s.d.progress {
		if p.EnrollmentID == enrollmentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

type certificatesRepo struct{ base }

func (r certificatesRepo) byEnrollment(enrollmentID string) (models.Certificate, bool) {
	for _, c := range r.s.d.certificates {
		if c.EnrollmentID == enrollmentID {
			return c, true
		}
	}
	return models.Certificate{}, false
}

func (r certificatesRepo) GetByEnrollment(_ context.Context, enrollmentID string) (models.Certificate, error) {
	defer r.lock()()
	c, ok := r.byEnrollment(enrollmentID)
	if !ok {
		return models.Certificate{}, repo.ErrNotFound
	}
	return c, nil
}

func (r certificatesRepo) Create(_ context.Context, c models.Certificate) (models.Certificate, bool, error) {
	defer r.lock()()
	if existing, ok := r.byEnrollment(c.EnrollmentID); ok {
		return existing, false, nil
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.IssuedAt = r.s.now()
	r.s.d.certificates[c.ID] = c
	return c, true, nil
}

type catalogRepo struct{ base }

func (r catalogRepo) GetCourse(_ context.Context, id string) (models.Course, error) {
	defer r.lock()()
	c, ok := r.s.d.courses[id]
	if !ok {
		return models.Course{}, repo.ErrNotFound
	}
	return c, nil
}

func (r catalogRepo) GetCourses(_ context.Context, ids []string) ([]models.Course, error) {
	defer r.lock()()
	var out []models.Course
	for _, id := range ids {
		if c, ok := r.s.d.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r catalogRepo) DeleteCourse(_ context.Context, id string) error {
	defer r.lock()()
	d := r.s.d
	delete(d.courses, id)
	for lid, l := range d.lessons {
		if l.CourseID == id {
			delete(d.lessons, lid)
		}
	}
	return nil
}

func (r catalogRepo) GetLesson(_ context.Context, id string) (models.Lesson, error) {
	defer r.lock()()
	l, ok := r.s.d.lessons[id]
	if !ok {
		return models.Lesson{}, repo.ErrNotFound
	}
	return l, nil
}

func (r catalogRepo) CountLessons(_ context.Context, courseID string) (int, error) {
	defer r.lock()()
	n := 0
	for _, l := range r.s.d.lessons {
		if l.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

type usersRepo struct{ base }

func (r usersRepo) Exists(_ context.Context, id string) (bool, error) {
	defer r.lock()()
	_, ok := r.s.d.users[id]
	return ok, nil
}

type cartsRepo struct{ base }

func (r cartsRepo) GetByUser(_ context.Context, userID string) (models.Cart, error) {
	defer r.lock()()
	for _, c := range r.s.d.carts {
		if c.UserID != userID {
			continue
		}
		for _, it := range r.s.d.cartItems {
			if it.CartID == c.ID {
				c.Items = append(c.Items, it)
			}
		}
		sort.Slice(c.Items, func(i, j int) bool {
			if !c.Items[i].AddedAt.Equal(c.Items[j].AddedAt) {
				return c.Items[i].AddedAt.Before(c.Items[j].AddedAt)
			}
			return c.Items[i].ID < c.Items[j].ID
		})
		return c, nil
	}
	return models.Cart{}, repo.ErrNotFound
}

func (r cartsRepo) Clear(_ context.Context, cartID string) error {
	defer r.lock()()
	for id, it := range r.s.d.cartItems {
		if it.CartID == cartID {
			delete(r.s.d.cartItems, id)
		}
	}
	return nil
}

func (r cartsRepo) RemoveCourse(_ context.Context, courseID string) (int64, error) {
	defer r.lock()()
	var n int64
	for id, it := range r.s.d.cartItems {
		if it.CourseID == courseID {
			delete(r.s.d.cartItems, id)
			n++
		}
	}
	return n, nil
}
