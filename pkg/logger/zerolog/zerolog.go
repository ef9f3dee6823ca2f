package zerolog

import (
	"os"
	"strings"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
)

// New builds a zerolog-backed logger writing colored console output.
// Level accepts the usual zerolog names: debug, info, warn, error.
func New(level string, colored bool) (*Adapter, error) {
	logMode, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    !colored,
		TimeFormat: "2006-01-02 15:04:05",
	}
	if colored {
		output.FormatLevel = formatLevel
	}

	logger := zerolog.New(output).
		Level(logMode).
		With().
		Timestamp().
		Logger()

	return &Adapter{&logger}, nil
}

func formatLevel(i any) string {
	levelStr, ok := i.(string)
	if !ok {
		return "[???]"
	}

	tag := "[" + strings.ToUpper(levelStr)[:min(3, len(levelStr))] + "]"
	switch levelStr {
	case zerolog.LevelDebugValue:
		return term.Cyanf("%s", tag)
	case zerolog.LevelInfoValue:
		return term.Greenf("%s", tag)
	case zerolog.LevelWarnValue:
		return term.Yellowf("%s", tag)
	case zerolog.LevelErrorValue, zerolog.LevelFatalValue, zerolog.LevelPanicValue:
		return term.Redf("%s", tag)
	default:
		return term.Whitef("%s", tag)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
