package auth

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/letsssgooo/surveySite/internal/client"
	"github.com/letsssgooo/surveySite/internal/domain/models"
)

var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ParseRegistration валидирует форму регистрации и отдает тело запроса.
// Проверки идут по порядку полей, возвращается первая ошибка.
func ParseRegistration(form RegisterForm, now time.Time) (client.RegisterRequest, error) {
	firstName := strings.TrimSpace(form.FirstName)
	if utf8.RuneCountInString(firstName) < minNameLength {
		return client.RegisterRequest{}, invalid(MsgFirstName)
	}

	lastName := strings.TrimSpace(form.LastName)
	if utf8.RuneCountInString(lastName) < minNameLength {
		return client.RegisterRequest{}, invalid(MsgLastName)
	}

	dobRaw := strings.TrimSpace(form.DateOfBirth)
	if dobRaw == "" {
		return client.RegisterRequest{}, invalid(MsgDateOfBirth)
	}

	dob, err := time.ParseInLocation(dateLayout, dobRaw, now.Location())
	if err != nil {
		return client.RegisterRequest{}, invalid(MsgDateOfBirth)
	}

	if Age(dob, now) < minAge {
		return client.RegisterRequest{}, invalid(MsgTooYoung)
	}

	email := strings.TrimSpace(form.Email)
	if !emailRe.MatchString(email) {
		return client.RegisterRequest{}, invalid(MsgEmail)
	}

	username := strings.TrimSpace(form.Username)
	if utf8.RuneCountInString(username) < minUsernameLength {
		return client.RegisterRequest{}, invalid(MsgUsername)
	}

	if utf8.RuneCountInString(form.Password) < minPasswordLength {
		return client.RegisterRequest{}, invalid(MsgPassword)
	}

	if form.Password != form.ConfirmPassword {
		return client.RegisterRequest{}, invalid(MsgMismatch)
	}

	return client.RegisterRequest{
		FirstName:       firstName,
		MiddleName:      optional(form.MiddleName),
		LastName:        lastName,
		DateOfBirth:     dobRaw,
		Email:           email,
		PhoneNumber:     optional(form.PhoneNumber),
		Username:        username,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
		Role:            models.RoleUser,
	}, nil
}

// Age возвращает число полных лет на момент now.
func Age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}

	return years
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	return &value
}

func invalid(msg string) error {
	return &Error{Message: msg, Err: ErrValidation}
}
