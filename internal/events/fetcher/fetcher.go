package fetcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"
)

type line struct {
	text string
	err  error
}

// LineFetcher читает команды построчно. Пустые строки и строки,
// начинающиеся с #, пропускаются.
type LineFetcher struct {
	scanner *bufio.Scanner
	prompt  io.Writer
	text    string

	once  sync.Once
	lines chan line
	next  chan struct{}
	err   error
}

// NewLineFetcher создаёт новый объект LineFetcher. Если prompt не nil,
// перед каждой строкой в него пишется приглашение.
func NewLineFetcher(in io.Reader, prompt io.Writer) *LineFetcher {
	return &LineFetcher{
		scanner: bufio.NewScanner(in),
		prompt:  prompt,
		text:    "> ",
		lines:   make(chan line, 1),
		next:    make(chan struct{}),
	}
}

// Next возвращает следующую команду с учётом ctx.
func (f *LineFetcher) Next(ctx context.Context) (*Command, error) {
	f.once.Do(func() {
		go f.read()
	})

	for {
		if f.err != nil {
			return nil, f.err
		}

		if f.prompt != nil {
			_, _ = io.WriteString(f.prompt, f.text)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case f.next <- struct{}{}:
		}

		var l line
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case l = <-f.lines:
		}

		if l.err != nil {
			f.err = l.err
			return nil, l.err
		}

		cmd, err := ParseCommand(l.text)
		if err != nil {
			return nil, err
		}

		if cmd != nil {
			return cmd, nil
		}
	}
}

// read читает строку только по запросу из Next, чтобы не терять ввод,
// если Next больше не вызовут.
func (f *LineFetcher) read() {
	for range f.next {
		if f.scanner.Scan() {
			f.lines <- line{text: f.scanner.Text()}
			continue
		}

		err := f.scanner.Err()
		if err == nil {
			err = io.EOF
		}

		f.lines <- line{err: err}

		return
	}
}

// ParseCommand разбирает строку на имя команды и аргументы.
// Аргументы с пробелами берутся в двойные или одинарные кавычки.
// Для пустой строки и комментария возвращает nil.
func ParseCommand(raw string) (*Command, error) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.HasPrefix(text, "#") {
		return nil, nil
	}

	fields, err := split(text)
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, nil
	}

	return &Command{
		Name: strings.ToLower(fields[0]),
		Args: fields[1:],
		Raw:  text,
	}, nil
}

func split(text string) ([]string, error) {
	var (
		fields  []string
		current strings.Builder
		quote   rune
		inField bool
	)

	for _, r := range text {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)

		case r == '"' || r == '\'':
			quote = r
			inField = true

		case unicode.IsSpace(r):
			if inField {
				fields = append(fields, current.String())
				current.Reset()
				inField = false
			}

		default:
			current.WriteRune(r)
			inField = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("%w in %q", ErrUnbalancedQuote, text)
	}

	if inField {
		fields = append(fields, current.String())
	}

	return fields, nil
}
