package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"finflow/internal/auth"
	"finflow/internal/core"
	flog "finflow/internal/log"
)

var (
	ErrMissingFields     = core.Invalid("form", "All fields are required.")
	ErrPasswordMismatch  = core.Invalid("password2", "Passwords do not match.")
	ErrPasswordTooShort  = core.Invalid("password1", fmt.Sprintf("Password must be at least %d characters long.", auth.MinPasswordLength))
	ErrInvalidEmail      = core.Invalid("email", "Enter a valid email address.")
	ErrInvalidCredential = core.Invalid("username", "Invalid username or password.")
)

// RegisterInput is the raw sign-up form.
type RegisterInput struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	ConfirmPassword string
}

// AuthService verifies credentials and creates accounts.
type AuthService struct {
	users  UserStore
	hasher auth.Hasher
}

func NewAuthService(users UserStore, hasher auth.Hasher) *AuthService {
	return &AuthService{users: users, hasher: hasher}
}

// Register checks the form in the order users see the messages, then stores
// the account and its empty profile together.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (core.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	// Names are optional; they can be filled in on the settings page.
	if in.Username == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return core.User{}, ErrMissingFields
	}
	if in.Password != in.ConfirmPassword {
		return core.User{}, ErrPasswordMismatch
	}
	if len(in.Password) < auth.MinPasswordLength {
		return core.User{}, ErrPasswordTooShort
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return core.User{}, ErrInvalidEmail
	}

	usernameTaken, emailTaken, err := s.users.UserTaken(ctx, in.Username, in.Email)
	if err != nil {
		return core.User{}, classify("check user", err)
	}
	if usernameTaken {
		return core.User{}, core.ErrUsernameTaken
	}
	if emailTaken {
		return core.User{}, core.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return core.User{}, core.Upstream(err)
	}

	// The unique indexes still decide races between concurrent sign-ups.
	u, err := s.users.CreateUser(ctx, core.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	})
	if err != nil {
		return core.User{}, classify("create user", err)
	}
	slog.InfoContext(ctx, "User registered", flog.FieldComponent, flog.ComponentAuth, flog.FieldUserID, u.ID, "username", u.Username)
	return u, nil
}

// Login returns the user when password matches. Unknown users and wrong
// passwords give the same ErrInvalidCredential.
func (s *AuthService) Login(ctx context.Context, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return core.User{}, ErrInvalidCredential
	}

	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFoundOrForbidden) {
		return core.User{}, ErrInvalidCredential
	}
	if err != nil {
		return core.User{}, classify("get user", err)
	}

	if err := s.hasher.Check(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			slog.WarnContext(ctx, "Failed login", flog.FieldComponent, flog.ComponentAuth, "username", username)
			return core.User{}, ErrInvalidCredential
		}
		return core.User{}, core.Upstream(err)
	}
	return u, nil
}

// User resolves a session's user id.
func (s *AuthService) User(ctx context.Context, id int64) (core.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	return u, classify("get user", err)
}
