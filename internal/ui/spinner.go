package ui

import (
	"github.com/charmbracelet/huh/spinner"
)

// WithSpinner runs fn behind a spinner with the given title. In CI the
// spinner is skipped and fn runs directly, keeping logs clean.
func WithSpinner(title string, fn func() error) error {
	if IsCI() {
		return fn()
	}
	var actionErr error
	err := spinner.New().
		Title(title).
		Action(func() {
			actionErr = fn()
		}).
		Run()
	if err != nil {
		return err
	}
	return actionErr
}
