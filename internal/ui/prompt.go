package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"

	"github.com/instructionkit/instructionkit/internal/conflict"
)

// ErrCancelled is returned when the operator aborts a prompt.
var ErrCancelled = errors.New("cancelled by user")

// IsCI returns true if running in a CI environment.
// gitlab-ci-local sets GITLAB_CI=false, which should not be treated as CI.
func IsCI() bool {
	return isTruthy(os.Getenv("CI")) ||
		isTruthy(os.Getenv("INSTRUCTIONKIT_CI")) ||
		isTruthy(os.Getenv("GITHUB_ACTIONS")) ||
		isTruthy(os.Getenv("GITLAB_CI"))
}

func isTruthy(v string) bool {
	return v != "" && v != "false" && v != "0"
}

// PromptCredential asks the operator for a credential value with masked
// input. The value is returned for substitution only and must never be
// persisted by the caller.
func PromptCredential(name, description string) (string, error) {
	title := fmt.Sprintf("Enter value for %s", name)
	if description != "" {
		title += " (" + description + ")"
	}

	var value string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&value).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrCancelled
		}
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return "", ErrCancelled
	}
	return value, nil
}

// PromptString asks for a single line of text with a default value.
func PromptString(title, defaultValue string) (string, error) {
	value := defaultValue
	err := huh.NewInput().
		Title(title).
		Value(&value).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrCancelled
		}
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// Confirm prompts the user for a yes/no confirmation.
func Confirm(title string) (bool, error) {
	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, ErrCancelled
		}
		return false, err
	}
	return confirmed, nil
}

// ConflictPrompter asks the operator what to do with a conflicting file. It
// satisfies conflict.Prompter.
type ConflictPrompter struct {
	Out *Output
}

// ChooseAction shows file details and returns the chosen strategy.
func (p *ConflictPrompter) ChooseAction(req conflict.PromptRequest) (conflict.Strategy, error) {
	if p.Out != nil {
		p.Out.Warning("conflict: %s already exists", req.Path)
		for _, line := range conflictDetails(req) {
			p.Out.Info("  %s", line)
		}
	}

	var choice string
	err := huh.NewSelect[string]().
		Title(fmt.Sprintf("File %s already exists", req.Path)).
		Options(
			huh.NewOption("Skip (keep existing)", string(conflict.Skip)),
			huh.NewOption("Overwrite (backup kept)", string(conflict.Overwrite)),
			huh.NewOption("Rename (install alongside)", string(conflict.Rename)),
		).
		Value(&choice).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return conflict.Skip, ErrCancelled
		}
		return conflict.Skip, err
	}
	return conflict.Strategy(choice), nil
}

// conflictDetails renders the side-by-side comparison shown before the
// conflict select: size, modification time, and checksum of each side.
func conflictDetails(req conflict.PromptRequest) []string {
	lines := []string{
		fmt.Sprintf("existing: %s, modified %s, %s",
			humanize.IBytes(uint64(req.Existing.SizeBytes)),
			req.Existing.ModTime.Format("2006-01-02 15:04"),
			req.Existing.Checksum),
		fmt.Sprintf("incoming: %s, %s",
			humanize.IBytes(uint64(req.Incoming.SizeBytes)),
			req.Incoming.Checksum),
	}
	if req.Binary {
		lines = append(lines, "binary file: overwriting keeps both copies")
	}
	return lines
}
