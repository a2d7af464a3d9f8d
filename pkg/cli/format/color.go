package format

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

// Output colors. fatih/color already turns them off when stdout is not a
// terminal or NO_COLOR is set.
var (
	ErrorColor   = color.New(color.FgRed, color.Bold)
	WarningColor = color.New(color.FgYellow, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen, color.Bold)
	FatalColor   = color.New(color.FgHiRed, color.Bold, color.ReverseVideo)
	HeadingColor = color.New(color.FgHiWhite, color.Bold)
	PathColor    = color.New(color.FgCyan, color.Bold)
	HintColor    = color.New(color.FgGreen, color.Italic)
	DimColor     = color.New(color.FgHiBlack)
)

func init() {
	if _, ok := os.LookupEnv("KEEL_NO_COLOR"); ok {
		color.NoColor = true
	}
	if _, ok := os.LookupEnv("KEEL_FORCE_COLOR"); ok {
		color.NoColor = false
	}
}

// EnableColor turns colored output on or off, for tables too.
func EnableColor(enable bool) {
	color.NoColor = !enable
	if enable {
		pterm.EnableStyling()
	} else {
		pterm.DisableStyling()
	}
}

func Success(format string, a ...interface{}) string { return SuccessColor.Sprintf(format, a...) }

func Warning(format string, a ...interface{}) string { return WarningColor.Sprintf(format, a...) }

func Error(format string, a ...interface{}) string { return ErrorColor.Sprintf(format, a...) }

func Info(format string, a ...interface{}) string { return InfoColor.Sprintf(format, a...) }

func Header(format string, a ...interface{}) string { return HeadingColor.Sprintf(format, a...) }

// Label formats "key: value" with a colored key.
func Label(key, value string) string {
	return fmt.Sprintf("%s %s", PathColor.Sprint(key+":"), value)
}

// StatusSymbol returns a check mark or a cross.
func StatusSymbol(ok bool) string {
	if ok {
		return SuccessColor.Sprint("✓")
	}
	return ErrorColor.Sprint("✗")
}
