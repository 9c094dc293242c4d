package ui

import "strconv"

// Style is an ANSI 256-color foreground.
type Style uint8

// Palette used by the CLI output.
const (
	Accent  Style = 74  // folder and schema identifiers
	Command Style = 250 // command names in help
	Muted   Style = 245 // timestamps, ids, secondary text
	Success Style = 114 // created, valid
	Failure Style = 167 // validation failures
)

var noColor bool

// Render wraps s in the style's escape sequence unless color is disabled.
func (st Style) Render(s string) string {
	if noColor || s == "" {
		return s
	}
	return "\x1b[38;5;" + strconv.Itoa(int(st)) + "m" + s + "\x1b[0m"
}

func RenderAccent(s string) string  { return Accent.Render(s) }
func RenderMuted(s string) string   { return Muted.Render(s) }
func RenderCommand(s string) string { return Command.Render(s) }
func RenderSuccess(s string) string { return Success.Render(s) }
func RenderFailure(s string) string { return Failure.Render(s) }

// RenderState colors a folder link outcome: "created" in the success
// color, anything else muted.
func RenderState(state string) string {
	if state == "created" {
		return Success.Render(state)
	}
	return Muted.Render(state)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// ColorEnabled reports whether Render emits escape sequences.
func ColorEnabled() bool { return !noColor }
