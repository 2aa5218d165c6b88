// Package prompt asks the user yes/no questions.
package prompt

import (
	"bufio"
	"fmt"
	"io"
)

// Asker poses a question and reports whether the answer was affirmative.
type Asker interface {
	Ask(question string) bool
}

// Terminal reads answers a line at a time. End of input counts as "no".
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) Ask(question string) bool {
	fmt.Fprint(t.out, question)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return IsYes(line)
}

// IsYes reports whether response starts with y or Y.
func IsYes(response string) bool {
	return response != "" && (response[0] == 'y' || response[0] == 'Y')
}

// Scripted answers from a fixed list and remembers what it was asked.
// Once Answers is exhausted it answers Default.
type Scripted struct {
	Answers []bool
	Default bool
	Asked   []string
}

func (s *Scripted) Ask(question string) bool {
	s.Asked = append(s.Asked, question)
	if len(s.Answers) == 0 {
		return s.Default
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return a
}
