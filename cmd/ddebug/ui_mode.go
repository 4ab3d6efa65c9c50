package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is the --ui setting for the live reduction progress view.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

// readUIMode parses --ui. An empty value means auto.
func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("%w: invalid --ui value %q (expected auto|on|off)", errUsage, value)
	}
}

// shouldUseTUI decides on the progress view. The view draws on stderr since
// stdout carries the minimized program.
func shouldUseTUI(mode uiMode, quiet bool) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return !quiet && isTerminal(os.Stderr)
	}
}
