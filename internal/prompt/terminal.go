package prompt

import (
	"strings"

	"github.com/pterm/pterm"
)

const cancelOption = "Cancel"

// Terminal prompts on the controlling terminal.
type Terminal struct{}

// NewTerminal returns a terminal prompter.
func NewTerminal() *Terminal { return &Terminal{} }

func (*Terminal) SelectDirectory(title string) (string, error) {
	value, err := pterm.DefaultInteractiveTextInput.
		WithDefaultText(title + " (leave empty to cancel)").
		Show()
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(value), `"'`), nil
}

func (*Terminal) Confirm(message string, defaultYes bool) (bool, error) {
	return pterm.DefaultInteractiveConfirm.
		WithDefaultText(message).
		WithDefaultValue(defaultYes).
		Show()
}

func (*Terminal) ChooseEnvironment(options []string, defaultValue string) (string, error) {
	choices := append(append([]string(nil), options...), cancelOption)
	sel := pterm.DefaultInteractiveSelect.
		WithOptions(choices).
		WithDefaultText("Select the server environment")
	if defaultValue != "" {
		sel = sel.WithDefaultOption(defaultValue)
	}
	choice, err := sel.Show()
	if err != nil {
		return "", err
	}
	if choice == cancelOption {
		return "", nil
	}
	return choice, nil
}

func (*Terminal) Progress(title string) Progress {
	spinner, err := pterm.DefaultSpinner.Start(title)
	if err != nil {
		pterm.Info.Println(title)
		return plainProgress{}
	}
	return &spinnerProgress{spinner: spinner}
}

func (*Terminal) Notify(level Level, title, message string) {
	text := title
	if message != "" {
		text = title + "\n" + message
	}
	switch level {
	case LevelSuccess:
		pterm.Success.Println(text)
	case LevelWarning:
		pterm.Warning.Println(text)
	case LevelError:
		pterm.Error.Println(text)
	default:
		pterm.Info.Println(text)
	}
}

type spinnerProgress struct {
	spinner *pterm.SpinnerPrinter
}

func (p *spinnerProgress) Update(text string) {
	p.spinner.UpdateText(text)
}

func (p *spinnerProgress) Done(success bool, text string) {
	if success {
		p.spinner.Success(text)
		return
	}
	p.spinner.Fail(text)
}

type plainProgress struct{}

func (plainProgress) Update(text string) { pterm.Info.Println(text) }

func (plainProgress) Done(success bool, text string) {
	if success {
		pterm.Success.Println(text)
		return
	}
	pterm.Error.Println(text)
}
