package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budgetly/internal/auth"
	"budgetly/internal/core"
	applog "budgetly/internal/log"
	"budgetly/internal/notify"
	"budgetly/internal/store"
)

const (
	msgEmailTaken      = "The email has already been taken."
	msgWrongPassword   = "The current password is incorrect."
	msgInvalidResetTok = "This password reset token is invalid."
)

type AccountStore interface {
	store.UserStore
	store.PasswordResetStore
}

// AccountService covers registration, login, profile and password flows.
type AccountService struct {
	store      AccountStore
	issuer     *auth.Issuer
	sender     notify.Sender
	invalidate Invalidator
	resetTTL   time.Duration
	now        func() time.Time
}

func NewAccountService(st AccountStore, issuer *auth.Issuer, sender notify.Sender, inv Invalidator, resetTTL time.Duration) *AccountService {
	if sender == nil {
		sender = notify.LogSender{}
	}
	return &AccountService{
		store:      st,
		issuer:     issuer,
		sender:     sender,
		invalidate: orNoop(inv),
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

// Register creates the user and returns a token for it.
func (s *AccountService) Register(ctx context.Context, in core.RegisterInput) (core.User, string, error) {
	if err := in.Validate(); err != nil {
		return core.User{}, "", err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return core.User{}, "", err
	}

	u, err := s.store.CreateUser(ctx, core.User{Name: strings.TrimSpace(in.Name), Email: in.Email, PasswordHash: hash})
	if errors.Is(err, core.ErrEmailTaken) {
		return core.User{}, "", core.FieldError("email", msgEmailTaken)
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.issuer.Issue(u.ID)
	if err != nil {
		return core.User{}, "", err
	}

	slog.InfoContext(ctx, "User registered", applog.FieldComponent, applog.ComponentAccount, "user_id", u.ID)
	return u, token, nil
}

// Login returns core.ErrUnauthorized for an unknown e-mail or a wrong password.
func (s *AccountService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, "", core.ErrUnauthorized
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("find user: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return core.User{}, "", err
	}

	token, err := s.issuer.Issue(u.ID)
	if err != nil {
		return core.User{}, "", err
	}
	return u, token, nil
}

func (s *AccountService) Profile(ctx context.Context, userID int64) (core.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateProfile changes name and e-mail. A changed address is notified at
// both the old and the new address.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, in core.ProfileInput) (core.User, error) {
	if err := in.Validate(); err != nil {
		return core.User{}, err
	}

	before, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}

	after, err := s.store.UpdateUser(ctx, userID, strings.TrimSpace(in.Name), in.Email)
	if errors.Is(err, core.ErrEmailTaken) {
		return core.User{}, core.FieldError("email", msgEmailTaken)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("update user: %w", err)
	}

	if after.Email != before.Email {
		s.send(ctx, notify.Notification{Kind: notify.KindEmailChanged, To: before.Email, Name: after.Name})
		s.send(ctx, notify.Notification{Kind: notify.KindEmailChanged, To: after.Email, Name: after.Name})
	}
	return after, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, userID int64, in core.PasswordChangeInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, in.CurrentPassword); err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			return core.FieldError("current_password", msgWrongPassword)
		}
		return err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// DeleteAccount removes the user and all owned records.
func (s *AccountService) DeleteAccount(ctx context.Context, userID int64) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.invalidate.Invalidate(userID)
	s.send(ctx, notify.Notification{Kind: notify.KindAccountDeleted, To: u.Email, Name: u.Name})

	slog.InfoContext(ctx, "User deleted", applog.FieldComponent, applog.ComponentAccount, "user_id", userID)
	return nil
}

// ForgotPassword issues a reset token when email belongs to a user. It
// reports success either way so callers cannot probe for accounts.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	if err := core.ValidateEmail(email); err != nil {
		return err
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Password reset requested for unknown e-mail", applog.FieldComponent, applog.ComponentAccount)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	token, hash, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	if err := s.store.PutResetToken(ctx, core.PasswordReset{Email: u.Email, TokenHash: hash, CreatedAt: s.now()}); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	s.send(ctx, notify.Notification{Kind: notify.KindPasswordReset, To: u.Email, Name: u.Name, Token: token})
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *AccountService) ResetPassword(ctx context.Context, in core.PasswordResetInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	invalid := core.FieldError("email", msgInvalidResetTok)

	pending, err := s.store.GetResetToken(ctx, in.Email)
	if errors.Is(err, core.ErrNotFound) {
		return invalid
	}
	if err != nil {
		return fmt.Errorf("get reset token: %w", err)
	}

	if s.now().Sub(pending.CreatedAt) > s.resetTTL {
		if err := s.store.DeleteResetToken(ctx, in.Email); err != nil {
			slog.WarnContext(ctx, "Failed to drop expired reset token", applog.FieldComponent, applog.ComponentAccount, "error", err)
		}
		return invalid
	}
	if err := auth.CheckPassword(pending.TokenHash, strings.TrimSpace(in.Token)); err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			return invalid
		}
		return err
	}

	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, core.ErrNotFound) {
		return invalid
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.store.DeleteResetToken(ctx, in.Email); err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}

	slog.InfoContext(ctx, "Password reset", applog.FieldComponent, applog.ComponentAccount, "user_id", u.ID)
	return nil
}

func (s *AccountService) send(ctx context.Context, n notify.Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = s.now()
	}
	if err := s.sender.Send(ctx, n); err != nil {
		slog.ErrorContext(ctx, "Failed to send notification",
			applog.FieldComponent, applog.ComponentAccount,
			"kind", n.Kind,
			"error", err)
	}
}
