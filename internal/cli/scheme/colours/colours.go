package colours

import "github.com/fatih/color"

// Color scheme for the console
var (
	Title     = color.New(color.FgCyan, color.Bold)
	Assistant = color.New(color.FgMagenta)
	User      = color.New(color.FgWhite)
	Prompt    = color.New(color.FgGreen, color.Bold)
	Error     = color.New(color.FgRed, color.Bold)
	Success   = color.New(color.FgGreen)
	Info      = color.New(color.FgBlue)
	Warning   = color.New(color.FgYellow)

	// Speaking formats output produced while audio plays.
	Speaking = color.New(color.FgYellow).SprintfFunc()
	// Marker highlights the message that is currently being read aloud.
	Marker = color.New(color.FgGreen, color.Bold).SprintFunc()
)
