package survey

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// isAnswered проверяет, что у вопроса есть непустой ответ.
func isAnswered(q models.Question, value Value, ok bool) bool {
	if !ok {
		return false
	}

	switch q.QuestionType {
	case models.QuestionRating:
		return value.Rating != nil
	case models.QuestionText, models.QuestionMultipleChoice:
		return strings.TrimSpace(value.Text) != ""
	default:
		return true
	}
}

// unansweredRequired возвращает id обязательных вопросов без ответа в порядке вопросов.
func unansweredRequired(questions []models.Question, answers map[int]Value) []int {
	var invalid []int

	for _, q := range questions {
		if !q.IsRequired {
			continue
		}

		value, ok := answers[q.ID]
		if !isAnswered(q, value, ok) {
			invalid = append(invalid, q.ID)
		}
	}

	return invalid
}

// parseValue проверяет ввод пользователя для вопроса q.
// Для MultipleChoice принимает текст варианта или его номер начиная с 1
// и возвращает вариант в том виде, в каком он объявлен.
func parseValue(q models.Question, raw string) (Value, error) {
	switch q.QuestionType {
	case models.QuestionRating:
		rating, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return Value{}, fmt.Errorf("%w, rating must be a number", ErrInvalidAnswer)
		}

		if rating < models.RatingMin || rating > models.RatingMax {
			return Value{}, fmt.Errorf("%w, rating must be between %d and %d",
				ErrInvalidAnswer, models.RatingMin, models.RatingMax)
		}

		return Value{Rating: &rating}, nil

	case models.QuestionMultipleChoice:
		choices := q.Choices()
		input := strings.TrimSpace(raw)

		for _, choice := range choices {
			if choice == input {
				return Value{Text: choice}, nil
			}
		}

		if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(choices) {
			return Value{Text: choices[n-1]}, nil
		}

		return Value{}, fmt.Errorf("%w, %q is not one of the options", ErrInvalidAnswer, input)

	default:
		return Value{Text: raw}, nil
	}
}

// buildAnswers собирает по одному ответу на каждый видимый вопрос.
// Неотвеченные необязательные вопросы уходят пустой строкой или null.
func buildAnswers(questions []models.Question, answers map[int]Value) []models.Answer {
	result := make([]models.Answer, 0, len(questions))

	for _, q := range questions {
		value := answers[q.ID]
		answer := models.Answer{QuestionID: q.ID}

		switch q.QuestionType {
		case models.QuestionRating:
			if value.Rating != nil {
				rating := *value.Rating
				answer.RatingValue = &rating
			}
		default:
			text := value.Text
			answer.AnswerText = &text
		}

		result = append(result, answer)
	}

	return result
}

// reviewValues переводит сохранённые ответы в строки для показа.
func reviewValues(questions []models.Question, answers []models.Answer) map[int]string {
	types := make(map[int]models.QuestionType, len(questions))
	for _, q := range questions {
		types[q.ID] = q.QuestionType
	}

	values := make(map[int]string, len(answers))

	for _, a := range answers {
		qt, ok := types[a.QuestionID]
		if !ok {
			continue
		}

		switch {
		case qt == models.QuestionRating && a.RatingValue != nil:
			values[a.QuestionID] = strconv.Itoa(*a.RatingValue)
		case a.AnswerText != nil:
			values[a.QuestionID] = *a.AnswerText
		case a.RatingValue != nil:
			values[a.QuestionID] = strconv.Itoa(*a.RatingValue)
		}
	}

	return values
}

// latestResponseOf возвращает самый поздний ответ пользователя username.
func latestResponseOf(responses []models.Response, username string) (*models.Response, bool) {
	var latest *models.Response

	for i := range responses {
		r := &responses[i]
		if !strings.EqualFold(r.DisplayUsername(), username) {
			continue
		}

		if latest == nil || !r.SubmittedAt.Before(latest.SubmittedAt.Time) {
			latest = r
		}
	}

	return latest, latest != nil
}
