package sender

// Style — оформление текста.
type Style int

const (
	StylePlain Style = iota
	StyleTitle
	StyleSuccess
	StyleError
	StyleMuted
	StyleHighlight
)

// Sender определяет основной интерфейс для вывода.
type Sender interface {
	// Message выводит текст в заданном оформлении.
	Message(style Style, text string) error

	// Table выводит таблицу с выровненными колонками.
	Table(header []string, rows [][]string) error
}
