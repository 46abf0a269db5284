package core

import (
	"strings"
	"time"
)

const (
	maxNameLength        = 255
	maxDescriptionLength = 1000
	minPasswordLength    = 8

	// MaxAmount caps every stored amount, in minor units, so that any month
	// of expenses sums without overflowing int64.
	MaxAmount int64 = 1_000_000_000_000

	// DateLayout is the wire and storage format for calendar dates.
	DateLayout = "2006-01-02"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash []byte
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	Budget struct {
		ID            int64
		UserID        int64
		MonthlyBudget Money
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	Expense struct {
		ID          int64
		UserID      int64
		Category    string
		Amount      Money
		Description string
		Date        Date
		CreatedAt   time.Time
	}

	Goal struct {
		ID           int64
		UserID       int64
		Name         string
		TargetAmount Money
		Deadline     Date
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	Category struct {
		ID        int64
		UserID    int64
		Name      string
		Priority  int
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// PasswordReset is a pending reset token; only the hash is stored.
	PasswordReset struct {
		Email     string
		TokenHash []byte
		CreatedAt time.Time
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// InMonth reports whether the date falls in the given calendar month.
func (d Date) InMonth(year, month int) bool {
	return d.Year() == year && int(d.Month()) == month
}

// Input structs carry unvalidated client data. Validate must pass before
// any of them is turned into a record.
type (
	RegisterInput struct {
		Name     string
		Email    string
		Password string
	}

	ProfileInput struct {
		Name  string
		Email string
	}

	PasswordChangeInput struct {
		CurrentPassword string
		Password        string
	}

	PasswordResetInput struct {
		Email    string
		Token    string
		Password string
	}

	BudgetInput struct {
		MonthlyBudget int64
	}

	ExpenseInput struct {
		Category    string
		Amount      int64
		Description string
		Date        string
	}

	GoalInput struct {
		Name         string
		TargetAmount int64
		Deadline     string
	}

	CategoryInput struct {
		Name     string
		Priority int
	}
)

func (in RegisterInput) Validate() error {
	v := NewValidationError()
	checkName(v, "name", in.Name)
	checkEmail(v, "email", in.Email)
	checkPassword(v, "password", in.Password)
	return v.OrNil()
}

func (in ProfileInput) Validate() error {
	v := NewValidationError()
	checkName(v, "name", in.Name)
	checkEmail(v, "email", in.Email)
	return v.OrNil()
}

func (in PasswordChangeInput) Validate() error {
	v := NewValidationError()
	if in.CurrentPassword == "" {
		v.Add("current_password", "The current password field is required.")
	}
	checkPassword(v, "password", in.Password)
	return v.OrNil()
}

func (in PasswordResetInput) Validate() error {
	v := NewValidationError()
	checkEmail(v, "email", in.Email)
	if strings.TrimSpace(in.Token) == "" {
		v.Add("token", "The token field is required.")
	}
	checkPassword(v, "password", in.Password)
	return v.OrNil()
}

func (in BudgetInput) Validate() error {
	v := NewValidationError()
	checkAmount(v, "monthly_budget", "monthly budget", in.MonthlyBudget)
	return v.OrNil()
}

// Build validates the input and returns the expense it describes.
func (in ExpenseInput) Build(userID int64) (Expense, error) {
	v := NewValidationError()
	category := strings.TrimSpace(in.Category)
	switch {
	case category == "":
		v.Add("category", "The category field is required.")
	case len(category) > maxNameLength:
		v.Add("category", "The category may not be greater than 255 characters.")
	}
	checkAmount(v, "amount", "amount", in.Amount)
	description := strings.TrimSpace(in.Description)
	if len(description) > maxDescriptionLength {
		v.Add("description", "The description may not be greater than 1000 characters.")
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		v.Add("date", "The date is not a valid date.")
	}
	if err := v.OrNil(); err != nil {
		return Expense{}, err
	}
	return Expense{
		UserID:      userID,
		Category:    category,
		Amount:      Money{Cents: in.Amount},
		Description: description,
		Date:        date,
	}, nil
}

// Build validates the input and returns the goal it describes.
func (in GoalInput) Build(userID int64) (Goal, error) {
	v := NewValidationError()
	checkName(v, "name", in.Name)
	checkAmount(v, "target_amount", "target amount", in.TargetAmount)
	deadline, err := ParseDate(in.Deadline)
	if err != nil {
		v.Add("deadline", "The deadline is not a valid date.")
	}
	if err := v.OrNil(); err != nil {
		return Goal{}, err
	}
	return Goal{
		UserID:       userID,
		Name:         strings.TrimSpace(in.Name),
		TargetAmount: Money{Cents: in.TargetAmount},
		Deadline:     deadline,
	}, nil
}

// Build validates the input and returns the category it describes.
func (in CategoryInput) Build(userID int64) (Category, error) {
	v := NewValidationError()
	checkName(v, "name", in.Name)
	if in.Priority < 0 {
		v.Add("priority", "The priority must be at least 0.")
	}
	if err := v.OrNil(); err != nil {
		return Category{}, err
	}
	return Category{
		UserID:   userID,
		Name:     strings.TrimSpace(in.Name),
		Priority: in.Priority,
	}, nil
}

// ValidateEmail checks a lone e-mail field, as sent to the forgot-password form.
func ValidateEmail(email string) error {
	v := NewValidationError()
	checkEmail(v, "email", email)
	return v.OrNil()
}

// NormalizeEmail lower-cases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkName(v *ValidationError, field, value string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		v.Add(field, "The "+field+" field is required.")
	case len(value) > maxNameLength:
		v.Add(field, "The "+field+" may not be greater than 255 characters.")
	}
}

func checkEmail(v *ValidationError, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		v.Add(field, "The "+field+" field is required.")
		return
	}
	at := strings.LastIndex(value, "@")
	if at < 1 || at == len(value)-1 || strings.ContainsAny(value, " \t\r\n") || !strings.Contains(value[at+1:], ".") {
		v.Add(field, "The "+field+" must be a valid email address.")
		return
	}
	if len(value) > maxNameLength {
		v.Add(field, "The "+field+" may not be greater than 255 characters.")
	}
}

func checkPassword(v *ValidationError, field, value string) {
	switch {
	case value == "":
		v.Add(field, "The "+field+" field is required.")
	case len(value) < minPasswordLength:
		v.Add(field, "The "+field+" must be at least 8 characters.")
	}
}

func checkAmount(v *ValidationError, field, label string, cents int64) {
	switch {
	case cents < 0:
		v.Add(field, "The "+label+" must be at least 0.")
	case cents > MaxAmount:
		v.Add(field, "The "+label+" may not be greater than 1000000000000.")
	}
}
