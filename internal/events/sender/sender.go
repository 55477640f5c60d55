package sender

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/fatih/color"
)

// ConsoleSender реализует вывод в терминал с цветами fatih/color.
type ConsoleSender struct {
	mu     sync.Mutex
	out    io.Writer
	styles map[Style]*color.Color
}

// NewConsoleSender создает новый объект структуры ConsoleSender.
// При colored == false вывод идёт без управляющих последовательностей.
func NewConsoleSender(out io.Writer, colored bool) *ConsoleSender {
	styles := map[Style]*color.Color{
		StylePlain:     color.New(color.Reset),
		StyleTitle:     color.New(color.FgHiBlue, color.Bold),
		StyleSuccess:   color.New(color.FgGreen),
		StyleError:     color.New(color.FgRed),
		StyleMuted:     color.New(color.FgHiBlack),
		StyleHighlight: color.New(color.FgYellow),
	}

	for _, c := range styles {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return &ConsoleSender{out: out, styles: styles}
}

// Message выводит текст в заданном оформлении.
func (s *ConsoleSender) Message(style Style, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.styles[style]
	if !ok {
		c = s.styles[StylePlain]
	}

	if _, err := c.Fprintln(s.out, text); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// Table выводит таблицу. Заголовок отделяется чертой.
func (s *ConsoleSender) Table(header []string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)

	if len(header) > 0 {
		rule := make([]string, len(header))
		for i, h := range header {
			rule[i] = strings.Repeat("-", len(h))
		}

		if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
			return err
		}

		if _, err := fmt.Fprintln(tw, strings.Join(rule, "\t")); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}

	return nil
}
