package main

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// uiMode is the value of --ui.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	v := uiMode(strings.ToLower(strings.TrimSpace(value)))
	if v == "" {
		return uiModeAuto, nil
	}
	if !slices.Contains([]uiMode{uiModeAuto, uiModeOn, uiModeOff}, v) {
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
	return v, nil
}

// shouldUseTUI decides whether the progress view is drawn. In auto mode it
// needs an interactive stderr, since that is where the view is drawn.
func shouldUseTUI(mode uiMode) bool {
	if mode != uiModeAuto {
		return mode == uiModeOn
	}
	return os.Getenv("TERM") != "dumb" && isTerminal(os.Stderr)
}
