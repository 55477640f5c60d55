package session

import (
	"errors"
	"strconv"
)

// Ключи постоянного хранилища.
const (
	KeyToken       = "token"
	KeyRole        = "role"
	KeyUsername    = "username"
	KeySurveyShare = "surveyShares"
)

// Ключи хранилища текущего сеанса.
const (
	KeyActiveShare = "active_share"
)

// Префикс одноразовых флагов "не показывать просмотр".
const skipReviewPrefix = "skip_review_"

// Значение отметки о прохождении опроса.
const completedValue = "completed"

// ErrCorrupted возвращается, если сохранённое значение не удалось разобрать.
var ErrCorrupted = errors.New("corrupted session value")

// CompletionKey возвращает ключ отметки о прохождении опроса surveyID пользователем username.
func CompletionKey(surveyID int, username string) string {
	return "survey_" + strconv.Itoa(surveyID) + "_" + username
}

// SkipReviewKey возвращает ключ одноразового флага "не показывать просмотр".
func SkipReviewKey(surveyID int) string {
	return skipReviewPrefix + strconv.Itoa(surveyID)
}
