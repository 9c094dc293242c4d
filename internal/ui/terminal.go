package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether stdout should get ANSI colors.
func ShouldUseColor() bool {
	return colorDecision(os.Getenv, term.IsTerminal(int(os.Stdout.Fd())))
}

// colorDecision applies NO_COLOR, then CLICOLOR_FORCE, then CLICOLOR,
// and falls back to whether the output is a terminal.
func colorDecision(getenv func(string) string, isTTY bool) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(getenv("CLICOLOR")) == "0" {
		return false
	}
	return isTTY
}
