package survey

import (
	"strings"

	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// IsConsentQuestion сообщает, что вопрос собирает согласие и не должен
// показываться: согласие даётся отдельной отметкой.
// Старые опросы не выставляют флаг, для них проверяется текст вопроса.
func IsConsentQuestion(q models.Question) bool {
	if q.IsConsentQuestion {
		return true
	}

	text := strings.ToLower(q.QuestionText)

	if strings.Contains(text, "privacy") || strings.Contains(text, "consent") {
		return true
	}

	return strings.Contains(text, "terms") && strings.Contains(text, "conditions")
}

// VisibleQuestions возвращает вопросы без вопросов о согласии, сохраняя порядок.
func VisibleQuestions(questions []models.Question) []models.Question {
	visible := make([]models.Question, 0, len(questions))

	for _, q := range questions {
		if !IsConsentQuestion(q) {
			visible = append(visible, q)
		}
	}

	return visible
}
