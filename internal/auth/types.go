package auth

import (
	"context"
	"errors"
	"time"

	"github.com/letsssgooo/surveySite/internal/client"
	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// API определяет запросы, нужные для входа и регистрации
type API interface {
	// Login обменивает логин и пароль на токен
	Login(ctx context.Context, creds client.Credentials) (*client.LoginResult, error)

	// Register создаёт учётную запись
	Register(ctx context.Context, req client.RegisterRequest) error
}

// Session хранит данные вошедшего пользователя
type Session interface {
	SignIn(ctx context.Context, identity models.Identity) error
	SignOut(ctx context.Context) error
}

// Ошибки авторизации
var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAdmin           = errors.New("not an admin")
	ErrNoToken            = errors.New("no token returned")
	ErrRegistration       = errors.New("registration failed")
)

// Сообщения для пользователя
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgEnterCredentials   = "Please enter username and password."
	MsgNotAdmin           = "You are not authorized as an admin."
	MsgNoToken            = "Authentication succeeded but no token was returned by the server."
	MsgRegistered         = "Registration successful! Redirecting to login..."
	MsgRegisterFailed     = "Registration failed. Try again."

	MsgFirstName   = "First Name must be at least 3 characters."
	MsgLastName    = "Last Name must be at least 3 characters."
	MsgDateOfBirth = "Date of Birth is required."
	MsgTooYoung    = "You must be at least 16 years old to register."
	MsgEmail       = "A valid email is required."
	MsgUsername    = "Username must be at least 6 characters."
	MsgPassword    = "Password must be at least 6 characters."
	MsgMismatch    = "Passwords do not match."
)

// Куда перейти после действия
const (
	RouteHome  = "/"
	RouteAdmin = "/admin"
	RouteLogin = "/login"
)

// Ограничения регистрации
const (
	minNameLength     = 3
	minUsernameLength = 6
	minPasswordLength = 6
	minAge            = 16
	dateLayout        = "2006-01-02"
)

// Таймаут
const timeoutAuth = 10 * time.Second

// Error — ошибка с сообщением, которое показывается пользователю как есть.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message возвращает сообщение для пользователя, если оно есть.
func Message(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Message
	}

	return ""
}

// RegisterForm — поля формы регистрации.
type RegisterForm struct {
	FirstName       string
	MiddleName      string
	LastName        string
	DateOfBirth     string
	Email           string
	PhoneNumber     string
	Username        string
	Password        string
	ConfirmPassword string
}

// Result — итог входа: кто вошёл и куда перейти.
type Result struct {
	Identity models.Identity
	Redirect string
}
