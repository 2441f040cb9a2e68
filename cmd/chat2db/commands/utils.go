// ABOUTME: Shared helpers for interactive CLI commands
// ABOUTME: Line, block and yes/no prompts read from the command's stdin
package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// prompter reads operator answers from one input stream
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// line prints label and returns the next trimmed line. io.EOF is
// returned only when nothing was read.
func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.in.ReadString('\n')
	if err == io.EOF && s != "" {
		err = nil
	}
	return strings.TrimSpace(s), err
}

// block reads lines until an empty line or end of input
func (p *prompter) block(label string) (string, error) {
	fmt.Fprintln(p.out, label)
	var lines []string
	for {
		s, err := p.in.ReadString('\n')
		trimmed := strings.TrimRight(s, "\r\n")
		if strings.TrimSpace(trimmed) == "" {
			if err == io.EOF && len(lines) == 0 {
				return "", io.EOF
			}
			if err != nil && err != io.EOF {
				return "", err
			}
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, trimmed)
		if err == io.EOF {
			return strings.Join(lines, "\n"), nil
		}
		if err != nil {
			return "", err
		}
	}
}

// confirm asks a yes/no question; anything but y or yes is no
func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.line(question + " [y/N] ")
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
