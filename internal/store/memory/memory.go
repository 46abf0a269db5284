package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"budgetly/internal/core"
	"budgetly/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps every record in process memory. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	nextID int64
	now    func() time.Time

	users      map[int64]core.User
	budgets    map[int64]core.Budget // by user ID
	expenses   []core.Expense
	goals      []core.Goal
	categories []core.Category
	resets     map[string]core.PasswordReset
}

func New() *Store {
	return &Store{
		now:     time.Now,
		users:   make(map[int64]core.User),
		budgets: make(map[int64]core.Budget),
		resets:  make(map[string]core.PasswordReset),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = core.NormalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return core.User{}, core.ErrEmailTaken
		}
	}
	now := s.now()
	u.ID = s.id()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = core.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, id int64, name, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	email = core.NormalizeEmail(email)
	for _, other := range s.users {
		if other.ID != id && other.Email == email {
			return core.User{}, core.ErrEmailTaken
		}
	}
	u.Name, u.Email, u.UpdatedAt = name, email, s.now()
	s.users[id] = u
	return u, nil
}

func (s *Store) UpdatePassword(_ context.Context, id int64, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash, u.UpdatedAt = hash, s.now()
	s.users[id] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.ErrNotFound
	}
	delete(s.users, id)
	delete(s.budgets, id)
	delete(s.resets, u.Email)
	s.expenses = slices.DeleteFunc(s.expenses, func(e core.Expense) bool { return e.UserID == id })
	s.goals = slices.DeleteFunc(s.goals, func(g core.Goal) bool { return g.UserID == id })
	s.categories = slices.DeleteFunc(s.categories, func(c core.Category) bool { return c.UserID == id })
	return nil
}

func (s *Store) GetBudget(_ context.Context, userID int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[userID]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) UpsertBudget(_ context.Context, userID int64, amount core.Money) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return core.Budget{}, core.ErrUnauthorized
	}
	now := s.now()
	b, ok := s.budgets[userID]
	if !ok {
		b = core.Budget{ID: s.id(), UserID: userID, CreatedAt: now}
	}
	b.MonthlyBudget, b.UpdatedAt = amount, now
	s.budgets[userID] = b
	return b, nil
}

func (s *Store) ListBudgetedUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.User
	for userID := range s.budgets {
		if u, ok := s.users[userID]; ok {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b core.User) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) ListExpenses(_ context.Context, userID int64, year, month int) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID && e.Date.InMonth(year, month) {
			out = append(out, e)
		}
	}
	sortExpenses(out)
	return out, nil
}

func (s *Store) ListAllExpenses(_ context.Context, userID int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sortExpenses(out)
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[e.UserID]; !ok {
		return core.Expense{}, core.ErrUnauthorized
	}
	e.ID = s.id()
	e.CreatedAt = s.now()
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.expenses)
	s.expenses = slices.DeleteFunc(s.expenses, func(e core.Expense) bool { return e.ID == id && e.UserID == userID })
	return len(s.expenses) != n, nil
}

func (s *Store) ListGoals(_ context.Context, userID int64) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) GetGoal(_ context.Context, id, userID int64) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.goals {
		if g.ID == id && g.UserID == userID {
			return g, nil
		}
	}
	return core.Goal{}, core.ErrNotFound
}

func (s *Store) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[g.UserID]; !ok {
		return core.Goal{}, core.ErrUnauthorized
	}
	now := s.now()
	g.ID = s.id()
	g.CreatedAt, g.UpdatedAt = now, now
	s.goals = append(s.goals, g)
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.goals {
		if existing.ID == g.ID && existing.UserID == g.UserID {
			g.CreatedAt, g.UpdatedAt = existing.CreatedAt, s.now()
			s.goals[i] = g
			return g, nil
		}
	}
	return core.Goal{}, core.ErrNotFound
}

func (s *Store) DeleteGoal(_ context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.goals)
	s.goals = slices.DeleteFunc(s.goals, func(g core.Goal) bool { return g.ID == id && g.UserID == userID })
	if len(s.goals) == n {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Category) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), cmp.Compare(a.Name, b.Name))
	})
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[c.UserID]; !ok {
		return core.Category{}, core.ErrUnauthorized
	}
	now := s.now()
	c.ID = s.id()
	c.CreatedAt, c.UpdatedAt = now, now
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.categories {
		if existing.ID == c.ID && existing.UserID == c.UserID {
			c.CreatedAt, c.UpdatedAt = existing.CreatedAt, s.now()
			s.categories[i] = c
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

func (s *Store) DeleteCategory(_ context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.categories)
	s.categories = slices.DeleteFunc(s.categories, func(c core.Category) bool { return c.ID == id && c.UserID == userID })
	if len(s.categories) == n {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) PutResetToken(_ context.Context, r core.PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Email = core.NormalizeEmail(r.Email)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.resets[r.Email] = r
	return nil
}

func (s *Store) GetResetToken(_ context.Context, email string) (core.PasswordReset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resets[core.NormalizeEmail(email)]
	if !ok {
		return core.PasswordReset{}, core.ErrNotFound
	}
	return r, nil
}

func (s *Store) DeleteResetToken(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resets, core.NormalizeEmail(email))
	return nil
}

func sortExpenses(exps []core.Expense) {
	slices.SortStableFunc(exps, func(a, b core.Expense) int {
		return cmp.Or(a.Date.Compare(b.Date.Time), cmp.Compare(a.ID, b.ID))
	})
}
