package logger

type Level int8

const (
	Disabled   Level = -1   // Disabled turns logging off entirely.
	DebugLevel Level = iota // DebugLevel is used for debugging information.
	InfoLevel               // InfoLevel is used for informational messages.
	WarnLevel               // WarnLevel is used for warning messages.
	ErrorLevel              // ErrorLevel is used for error messages.
)

// Logger is the minimal structured logging surface the engine needs.
// Adapters for concrete backends live in subpackages.
type Logger interface {
	WithField(key string, value any) Logger  // WithField returns a logger with the given key-value pair.
	WithFields(fields map[string]any) Logger // WithFields returns a logger with the given fields.
	WithError(err error) Logger              // WithError returns a logger with the given error.

	Debug(args ...any) // Debug logs the message with the debug level.
	Info(args ...any)  // Info logs the message with the info level.
	Warn(args ...any)  // Warn logs the message with the warning level.
	Error(args ...any) // Error logs the message with the error level.

	Debugf(format string, args ...any) // Debugf formats and logs at the debug level.
	Infof(format string, args ...any)  // Infof formats and logs at the info level.
	Warnf(format string, args ...any)  // Warnf formats and logs at the warning level.
	Errorf(format string, args ...any) // Errorf formats and logs at the error level.

	SetLevel(level Level) // SetLevel sets the logging level for the logger.
}

// Nop returns a logger that discards everything. Useful as a default
// when a component is constructed without a logger.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) WithField(string, any) Logger      { return nopLogger{} }
func (nopLogger) WithFields(map[string]any) Logger  { return nopLogger{} }
func (nopLogger) WithError(error) Logger            { return nopLogger{} }
func (nopLogger) Debug(...any)                      {}
func (nopLogger) Info(...any)                       {}
func (nopLogger) Warn(...any)                       {}
func (nopLogger) Error(...any)                      {}
func (nopLogger) Debugf(string, ...any)             {}
func (nopLogger) Infof(string, ...any)              {}
func (nopLogger) Warnf(string, ...any)              {}
func (nopLogger) Errorf(string, ...any)             {}
func (nopLogger) SetLevel(Level)                    {}
