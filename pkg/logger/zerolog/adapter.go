package zerolog

import (
	"fmt"

	"github.com/quantlab-io/backtune/pkg/logger"
	"github.com/rs/zerolog"
)

// Adapter bridges a zerolog.Logger to the engine's logger.Logger
// interface.
type Adapter struct {
	*zerolog.Logger
}

// NewAdapter wraps an existing zerolog logger.
func NewAdapter(l *zerolog.Logger) *Adapter {
	return &Adapter{l}
}

// WithField implements logger.Logger.
func (z *Adapter) WithField(key string, value any) logger.Logger {
	l := z.Logger.With().Interface(key, value).Logger()
	return &Adapter{&l}
}

// WithFields implements logger.Logger.
func (z *Adapter) WithFields(fields map[string]any) logger.Logger {
	ctx := z.Logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	l := ctx.Logger()
	return &Adapter{&l}
}

// WithError implements logger.Logger.
func (z *Adapter) WithError(err error) logger.Logger {
	l := z.Logger.With().Err(err).Logger()
	return &Adapter{&l}
}

// Debug implements logger.Logger.
func (z *Adapter) Debug(args ...any) { z.Logger.Debug().Msg(fmt.Sprint(args...)) }

// Info implements logger.Logger.
func (z *Adapter) Info(args ...any) { z.Logger.Info().Msg(fmt.Sprint(args...)) }

// Warn implements logger.Logger.
func (z *Adapter) Warn(args ...any) { z.Logger.Warn().Msg(fmt.Sprint(args...)) }

// Error implements logger.Logger.
func (z *Adapter) Error(args ...any) { z.Logger.Error().Msg(fmt.Sprint(args...)) }

// Debugf implements logger.Logger.
func (z *Adapter) Debugf(format string, args ...any) { z.Logger.Debug().Msgf(format, args...) }

// Infof implements logger.Logger.
func (z *Adapter) Infof(format string, args ...any) { z.Logger.Info().Msgf(format, args...) }

// Warnf implements logger.Logger.
func (z *Adapter) Warnf(format string, args ...any) { z.Logger.Warn().Msgf(format, args...) }

// Errorf implements logger.Logger.
func (z *Adapter) Errorf(format string, args ...any) { z.Logger.Error().Msgf(format, args...) }

// SetLevel implements logger.Logger.
func (z *Adapter) SetLevel(level logger.Level) {
	l := z.Logger.Level(toZerologLevel(level))
	z.Logger = &l
}

func toZerologLevel(level logger.Level) zerolog.Level {
	switch level {
	case logger.Disabled:
		return zerolog.Disabled
	case logger.DebugLevel:
		return zerolog.DebugLevel
	case logger.InfoLevel:
		return zerolog.InfoLevel
	case logger.WarnLevel:
		return zerolog.WarnLevel
	case logger.ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
