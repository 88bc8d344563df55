// Package prompt reads note fields interactively for the client shell.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/QuoteKeeper/internal/client/syncer"
)

// ErrNoInput is returned when the input stream ends before a field is read.
var ErrNoInput = errors.New("no input")

// Prompter asks questions on w and reads answers line by line from r.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// New returns a Prompter. The shell passes its own scanner so buffered input is not lost.
func New(scanner *bufio.Scanner, out io.Writer) *Prompter {
	return &Prompter{scanner: scanner, out: out}
}

// NewFromReader wraps r in a fresh scanner.
func NewFromReader(r io.Reader, out io.Writer) *Prompter {
	return New(bufio.NewScanner(r), out)
}

func (p *Prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", ErrNoInput
	}
	return p.scanner.Text(), nil
}

// content reads the note text either from a file path or typed on the next line.
func (p *Prompter) content(question string) (string, error) {
	path, err := p.ask("File to load content from (leave empty for manual input): ")
	if err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return p.ask(question)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", path, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// ForNote asks for a new note. Empty author or category fall back to the defaults later.
func (p *Prompter) ForNote() (syncer.NewNote, error) {
	var in syncer.NewNote
	var err error

	if in.Content, err = p.content("Quote: "); err != nil {
		return syncer.NewNote{}, err
	}
	if in.Author, err = p.ask("Author (empty for Anonymous): "); err != nil {
		return syncer.NewNote{}, err
	}
	if in.Category, err = p.ask("Category (empty for General): "); err != nil {
		return syncer.NewNote{}, err
	}
	return in, nil
}

// EditNote asks for replacement fields. An empty answer keeps the current value.
func (p *Prompter) EditNote() (syncer.EditNote, error) {
	var out syncer.EditNote

	text, err := p.content("New quote (empty to keep): ")
	if err != nil {
		return syncer.EditNote{}, err
	}
	if text != "" {
		out.Content = &text
	}

	author, err := p.ask("New author (empty to keep): ")
	if err != nil {
		return syncer.EditNote{}, err
	}
	if author = strings.TrimSpace(author); author != "" {
		out.Author = &author
	}

	category, err := p.ask("New category (empty to keep): ")
	if err != nil {
		return syncer.EditNote{}, err
	}
	if category = strings.TrimSpace(category); category != "" {
		out.Category = &category
	}
	return out, nil
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompter) Confirm(question string) bool {
	answer, err := p.ask(question + " [y/N]: ")
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
