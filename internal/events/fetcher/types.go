package fetcher

import (
	"context"
	"errors"
)

// Command — одна введённая команда: имя и аргументы.
type Command struct {
	Name string
	Args []string
	Raw  string
}

// Fetcher определяет основной интерфейс для получения команд.
type Fetcher interface {
	// Next блокируется до следующей команды. Конец ввода — io.EOF.
	Next(ctx context.Context) (*Command, error)
}

// Ошибки разбора
var ErrUnbalancedQuote = errors.New("unbalanced quote")
