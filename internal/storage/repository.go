package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgetly/internal/core"
	applog "budgetly/internal/log"
	"budgetly/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Store = (*SQLiteRepository)(nil)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection, for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(timeLayout)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ownerGone maps a foreign key failure on user_id to core.ErrUnauthorized:
// the token outlived its account.
func ownerGone(err error) error {
	if err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return core.ErrUnauthorized
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// Users

const userColumns = `id, name, email, password_hash, created_at, updated_at`

func scanUser(s rowScanner) (core.User, error) {
	var (
		u                  core.User
		created, updated string
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created, &updated); err != nil {
		return core.User{}, err
	}
	u.CreatedAt, u.UpdatedAt = parseTime(created), parseTime(updated)
	return u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	now := r.stamp()
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING `+userColumns,
		u.Name, core.NormalizeEmail(u.Email), u.PasswordHash, now, now)
	created, err := scanUser(row)
	if isUniqueViolation(err) {
		return core.User{}, core.ErrEmailTaken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User saved to SQLite", applog.FieldComponent, applog.ComponentStorage, "id", created.ID)
	return created, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, notFound(err))
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, core.NormalizeEmail(email)))
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", notFound(err))
	}
	return u, nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, id int64, name, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ? RETURNING `+userColumns,
		name, core.NormalizeEmail(email), r.stamp(), id)
	u, err := scanUser(row)
	if isUniqueViolation(err) {
		return core.User{}, core.ErrEmailTaken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("update user %d: %w", id, notFound(err))
	}
	return u, nil
}

func (r *SQLiteRepository) UpdatePassword(ctx context.Context, id int64, hash []byte) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, r.stamp(), id)
	if err != nil {
		return fmt.Errorf("update password %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update password %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer tx.Rollback()

	var email string
	if err := tx.QueryRowContext(ctx, `SELECT email FROM users WHERE id = ?`, id).Scan(&email); err != nil {
		return fmt.Errorf("delete user %d: %w", id, notFound(err))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM password_resets WHERE email = ?`, email); err != nil {
		return fmt.Errorf("delete reset tokens: %w", err)
	}
	// Owned rows go with the user through ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}

	slog.InfoContext(ctx, "User deleted from SQLite", applog.FieldComponent, applog.ComponentStorage, "id", id)
	return nil
}

// Budgets

func scanBudget(s rowScanner) (core.Budget, error) {
	var (
		b                core.Budget
		created, updated string
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.MonthlyBudget.Cents, &created, &updated); err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt, b.UpdatedAt = parseTime(created), parseTime(updated)
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID int64) (core.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, monthly_budget, created_at, updated_at FROM budgets WHERE user_id = ?`, userID))
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget for user %d: %w", userID, notFound(err))
	}
	return b, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, userID int64, amount core.Money) (core.Budget, error) {
	now := r.stamp()
	b, err := scanBudget(r.db.QueryRowContext(ctx,
		`INSERT INTO budgets (user_id, monthly_budget, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET monthly_budget = excluded.monthly_budget, updated_at = excluded.updated_at
		 RETURNING id, user_id, monthly_budget, created_at, updated_at`,
		userID, amount.Cents, now, now))
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget for user %d: %w", userID, ownerGone(err))
	}

	slog.InfoContext(ctx, "Budget saved to SQLite", applog.FieldComponent, applog.ComponentStorage, "user_id", userID, "amount_cents", amount.Cents)
	return b, nil
}

func (r *SQLiteRepository) ListBudgetedUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, u.password_hash, u.created_at, u.updated_at
		 FROM users u JOIN budgets b ON b.user_id = u.id ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("list budgeted users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Expenses

const expenseColumns = `id, user_id, category, amount, description, date, created_at`

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e             core.Expense
		date, created string
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Category, &e.Amount.Cents, &e.Description, &date, &created); err != nil {
		return core.Expense{}, err
	}
	e.Date, e.CreatedAt = parseDate(date), parseTime(created)
	return e, nil
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, year, month int) ([]core.Expense, error) {
	start := core.NewDate(year, month, 1)
	end := core.Date{Time: start.AddDate(0, 1, 0)}
	out, err := r.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE user_id = ? AND date >= ? AND date < ? ORDER BY date, id`,
		userID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses (year=%d, month=%d): %w", year, month, err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListAllExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	out, err := r.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE user_id = ? ORDER BY date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list all expenses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	created, err := scanExpense(r.db.QueryRowContext(ctx,
		`INSERT INTO expenses (user_id, category, amount, description, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING `+expenseColumns,
		e.UserID, e.Category, e.Amount.Cents, e.Description, e.Date.String(), r.stamp()))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", ownerGone(err))
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		"id", created.ID,
		"user_id", created.UserID,
		"category", created.Category,
		"amount_cents", created.Amount.Cents,
		"date", created.Date.String())
	return created, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete expense %d: %w", id, err)
	}
	return n > 0, nil
}

// Goals

const goalColumns = `id, user_id, name, target_amount, deadline, created_at, updated_at`

func scanGoal(s rowScanner) (core.Goal, error) {
	var (
		g                          core.Goal
		deadline, created, updated string
	)
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount.Cents, &deadline, &created, &updated); err != nil {
		return core.Goal{}, err
	}
	g.Deadline, g.CreatedAt, g.UpdatedAt = parseDate(deadline), parseTime(created), parseTime(updated)
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID int64) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id, userID int64) (core.Goal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal %d: %w", id, notFound(err))
	}
	return g, nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	now := r.stamp()
	created, err := scanGoal(r.db.QueryRowContext(ctx,
		`INSERT INTO goals (user_id, name, target_amount, deadline, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING `+goalColumns,
		g.UserID, g.Name, g.TargetAmount.Cents, g.Deadline.String(), now, now))
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", ownerGone(err))
	}
	return created, nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	updated, err := scanGoal(r.db.QueryRowContext(ctx,
		`UPDATE goals SET name = ?, target_amount = ?, deadline = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? RETURNING `+goalColumns,
		g.Name, g.TargetAmount.Cents, g.Deadline.String(), r.stamp(), g.ID, g.UserID))
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal %d: %w", g.ID, notFound(err))
	}
	return updated, nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id, userID int64) error {
	return r.deleteOwned(ctx, "goals", id, userID)
}

// Categories

const categoryColumns = `id, user_id, name, priority, created_at, updated_at`

func scanCategory(s rowScanner) (core.Category, error) {
	var (
		c                core.Category
		created, updated string
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Priority, &created, &updated); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY priority, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	now := r.stamp()
	created, err := scanCategory(r.db.QueryRowContext(ctx,
		`INSERT INTO categories (user_id, name, priority, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING `+categoryColumns,
		c.UserID, c.Name, c.Priority, now, now))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", ownerGone(err))
	}
	return created, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	updated, err := scanCategory(r.db.QueryRowContext(ctx,
		`UPDATE categories SET name = ?, priority = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? RETURNING `+categoryColumns,
		c.Name, c.Priority, r.stamp(), c.ID, c.UserID))
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, notFound(err))
	}
	return updated, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id, userID int64) error {
	return r.deleteOwned(ctx, "categories", id, userID)
}

// deleteOwned removes a row from a user-owned table. table is never user input.
func (r *SQLiteRepository) deleteOwned(ctx context.Context, table string, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete from %s id=%d: %w", table, id, core.ErrNotFound)
	}
	return nil
}

// Password resets

func (r *SQLiteRepository) PutResetToken(ctx context.Context, p core.PasswordReset) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_resets (email, token_hash, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET token_hash = excluded.token_hash, created_at = excluded.created_at`,
		core.NormalizeEmail(p.Email), p.TokenHash, created.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("put reset token: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetResetToken(ctx context.Context, email string) (core.PasswordReset, error) {
	var (
		p       core.PasswordReset
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT email, token_hash, created_at FROM password_resets WHERE email = ?`, core.NormalizeEmail(email)).
		Scan(&p.Email, &p.TokenHash, &created)
	if err != nil {
		return core.PasswordReset{}, fmt.Errorf("get reset token: %w", notFound(err))
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

func (r *SQLiteRepository) DeleteResetToken(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE email = ?`, core.NormalizeEmail(email)); err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return nil
}
