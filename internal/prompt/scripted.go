package prompt

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Notice is one message delivered through Notify.
type Notice struct {
	Level   Level
	Title   string
	Message string
}

// Scripted answers prompts from preset values, for flags and tests. A
// question without a preset answer is treated as cancelled.
type Scripted struct {
	Directory   string
	Environment string
	// Answers is consumed in order by Confirm; when exhausted, Yes is used.
	Answers []bool
	Yes     bool
	Out     io.Writer

	mu      sync.Mutex
	notices []Notice
	asked   []string
}

func (s *Scripted) SelectDirectory(title string) (string, error) {
	s.record(title)
	return s.Directory, nil
}

func (s *Scripted) Confirm(message string, _ bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, message)
	if len(s.Answers) > 0 {
		answer := s.Answers[0]
		s.Answers = s.Answers[1:]
		return answer, nil
	}
	return s.Yes, nil
}

func (s *Scripted) ChooseEnvironment(options []string, _ string) (string, error) {
	s.record("environment")
	if s.Environment == "" {
		return "", nil
	}
	for _, opt := range options {
		if strings.EqualFold(opt, s.Environment) {
			return opt, nil
		}
	}
	return "", fmt.Errorf("unknown environment %q (want %s)", s.Environment, strings.Join(options, " or "))
}

func (s *Scripted) Progress(title string) Progress {
	s.write("%s\n", title)
	return scriptedProgress{s: s}
}

func (s *Scripted) Notify(level Level, title, message string) {
	s.mu.Lock()
	s.notices = append(s.notices, Notice{Level: level, Title: title, Message: message})
	s.mu.Unlock()
	if message == "" {
		s.write("[%s] %s\n", level, title)
		return
	}
	s.write("[%s] %s: %s\n", level, title, message)
}

// Notices returns the messages delivered so far.
func (s *Scripted) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notice(nil), s.notices...)
}

// Asked returns the prompts shown so far.
func (s *Scripted) Asked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.asked...)
}

func (s *Scripted) record(prompt string) {
	s.mu.Lock()
	s.asked = append(s.asked, prompt)
	s.mu.Unlock()
}

func (s *Scripted) write(format string, args ...any) {
	if s.Out == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.Out, format, args...)
}

type scriptedProgress struct{ s *Scripted }

func (p scriptedProgress) Update(text string) { p.s.write("  %s\n", text) }

func (p scriptedProgress) Done(success bool, text string) {
	mark := "done"
	if !success {
		mark = "failed"
	}
	p.s.write("  %s: %s\n", mark, text)
}
