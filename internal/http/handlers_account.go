package http

import (
	"errors"
	"net/http"

	"budgetly/internal/core"
)

const (
	msgResetSent     = "If that e-mail address is registered, a password reset code has been sent."
	msgPasswordReset = "Your password has been reset."
	msgBadLogin      = "These credentials do not match our records."
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, token, err := s.deps.Accounts.Register(r.Context(), core.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(authView{Token: token, User: newUserView(user)}).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, token, err := s.deps.Accounts.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, core.ErrUnauthorized) {
		ErrorResponse(http.StatusUnauthorized, msgBadLogin).Write(w)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(authView{Token: token, User: newUserView(user)}).Write(w)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.deps.Accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(messageView{Message: msgResetSent}).Write(w)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := s.deps.Accounts.ResetPassword(r.Context(), core.PasswordResetInput{
		Email:    req.Email,
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(messageView{Message: msgPasswordReset}).Write(w)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Accounts.Profile(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newUserView(user)).Write(w)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.deps.Accounts.UpdateProfile(r.Context(), currentUser(r), core.ProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newUserView(user)).Write(w)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := s.deps.Accounts.ChangePassword(r.Context(), currentUser(r), core.PasswordChangeInput{
		CurrentPassword: req.CurrentPassword,
		Password:        req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Accounts.DeleteAccount(r.Context(), currentUser(r)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
