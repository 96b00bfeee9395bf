package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// prompter reads answers line by line, re-asking until the input is acceptable.
type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{scanner: bufio.NewScanner(in), out: out}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// nonEmpty repeats label until a non-blank answer arrives.
func (p *prompter) nonEmpty(label string) (string, error) {
	for {
		value, err := p.line(label)
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
		fmt.Fprintln(p.out, "Input cannot be empty. Try again.")
	}
}

// integer repeats label until the answer parses as a base-10 integer.
func (p *prompter) integer(label string) (int, error) {
	for {
		value, err := p.line(label)
		if err != nil {
			return 0, err
		}
		if n, convErr := strconv.Atoi(value); convErr == nil {
			return n, nil
		}
		fmt.Fprintln(p.out, "Invalid number. Try again.")
	}
}
