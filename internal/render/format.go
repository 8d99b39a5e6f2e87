package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
)

var (
	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// ShowHeader displays a formatted header
func ShowHeader(title string) {
	fmt.Printf("\n%s %s\n", ColorBold("▶"), ColorBold(title))
	fmt.Println(strings.Repeat("─", 50))
}

// ShowError displays a formatted error message
func ShowError(err error) {
	fmt.Printf("\n%s\n", ColorError("ERROR:"))

	for i, line := range strings.Split(err.Error(), "\n") {
		if i == 0 {
			fmt.Printf("  %s\n", line)
		} else {
			fmt.Printf("  %s\n", ColorDim(line))
		}
	}
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	fmt.Printf("%s %s\n", ColorSuccess("✓"), message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	fmt.Printf("%s %s\n", ColorWarning("⚠"), message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	fmt.Printf("%s %s\n", ColorInfo("i"), message)
}

// ShowCellExecution displays the cell currently being evaluated
func ShowCellExecution(name string, current, total int) {
	fmt.Printf("\n%s Running [%d/%d]: %s\n",
		ColorProgress("►"),
		current,
		total,
		ColorBold(name),
	)
}

// ShowCellResult displays the outcome of one cell
func ShowCellResult(name string, success bool, detail string, duration string) {
	if success {
		fmt.Printf("  %s %s (%s)\n",
			ColorSuccess("✓"),
			name,
			ColorDim(duration),
		)
		if detail != "" {
			fmt.Printf("    %s\n", ColorDim(detail))
		}
	} else {
		fmt.Printf("  %s %s\n",
			ColorError("✗"),
			name,
		)
		if detail != "" {
			fmt.Printf("    %s\n", ColorError(detail))
		}
	}
}

// PrintKeyValue prints a key-value pair in a formatted way
func PrintKeyValue(key, value string) {
	fmt.Printf("  %-20s %s\n", ColorDim(key+":"), value)
}
