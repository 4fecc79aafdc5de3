package colors

import "github.com/fatih/color"

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
)

// HttpStatus colors 'status' red for errors, yellow for client errors and green otherwise
func HttpStatus(status int) string {
	switch {
	case status >= 500:
		return Red(status)
	case status >= 400:
		return Yellow(status)
	}
	return Green(status)
}
