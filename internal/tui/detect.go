package tui

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Mode represents the interaction mode for moviepipe.
type Mode int

const (
	// ModeNonInteractive is used for cron, containers, CI and redirected output.
	ModeNonInteractive Mode = iota
	// ModeInteractive is used when a human is at the terminal.
	ModeInteractive
)

// DetectMode determines whether moviepipe may draw a live progress view.
//
// Returns ModeNonInteractive if:
//   - MOVIEPIPE_NON_INTERACTIVE=1 is set
//   - CI is set (common CI/CD convention)
//   - NO_COLOR is set (accessibility/automation indicator)
//   - stdin or stdout is not a terminal
//
// Returns ModeInteractive otherwise.
func DetectMode() Mode {
	if os.Getenv("MOVIEPIPE_NON_INTERACTIVE") == "1" {
		return ModeNonInteractive
	}
	if os.Getenv("CI") != "" {
		return ModeNonInteractive
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModeNonInteractive
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ModeNonInteractive
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return ModeNonInteractive
	}

	return ModeInteractive
}

// IsInteractive is a convenience function that returns true if running in interactive mode.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}

// Progress flag values.
const (
	ProgressAuto = "auto"
	ProgressOn   = "on"
	ProgressOff  = "off"
)

// ShowProgress resolves the --progress flag against the detected mode.
func ShowProgress(flag string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "", ProgressAuto:
		return IsInteractive(), nil
	case ProgressOn, "true", "yes":
		return true, nil
	case ProgressOff, "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid argument %q for --progress: want auto, on or off", flag)
	}
}
