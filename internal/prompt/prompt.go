package prompt

import (
	"os"

	"github.com/mattn/go-isatty"
)

// Level classifies a notice shown to the operator.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Progress is a status indicator for a running step.
type Progress interface {
	Update(text string)
	Done(success bool, text string)
}

// Prompter is everything the workflows need from the operator. Cancelled
// selections return an empty string and a nil error.
type Prompter interface {
	SelectDirectory(title string) (string, error)
	Confirm(message string, defaultYes bool) (bool, error)
	ChooseEnvironment(options []string, defaultValue string) (string, error)
	Progress(title string) Progress
	Notify(level Level, title, message string)
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var (
	_ Prompter = (*Terminal)(nil)
	_ Prompter = (*Scripted)(nil)
)
