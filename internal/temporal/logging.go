package temporal

import (
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// LogAdapter routes Temporal SDK logs through zerolog.
type LogAdapter struct {
	logger zerolog.Logger
}

func NewLogAdapter(logger zerolog.Logger) *LogAdapter {
	return &LogAdapter{
		logger: logger.With().Str("component", "temporal-sdk").Logger(),
	}
}

func appendKeyvals(ctx zerolog.Context, keyvals []interface{}) zerolog.Context {
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "MISSING_VALUE")
	}
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = "INVALID_KEY"
		}
		ctx = ctx.Interface(key, keyvals[i+1])
	}
	return ctx
}

func (a *LogAdapter) event(e *zerolog.Event, keyvals []interface{}) *zerolog.Event {
	if len(keyvals) == 0 {
		return e
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "MISSING_VALUE")
	}
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = "INVALID_KEY"
		}
		e = e.Interface(key, keyvals[i+1])
	}
	return e
}

func (a *LogAdapter) Debug(msg string, keyvals ...interface{}) {
	a.event(a.logger.Debug(), keyvals).Msg(msg)
}

func (a *LogAdapter) Info(msg string, keyvals ...interface{}) {
	a.event(a.logger.Info(), keyvals).Msg(msg)
}

func (a *LogAdapter) Warn(msg string, keyvals ...interface{}) {
	a.event(a.logger.Warn(), keyvals).Msg(msg)
}

func (a *LogAdapter) Error(msg string, keyvals ...interface{}) {
	a.event(a.logger.Error(), keyvals).Msg(msg)
}

// With implements log.WithLogger so workflow and activity loggers keep
// their tags.
func (a *LogAdapter) With(keyvals ...interface{}) log.Logger {
	return &LogAdapter{logger: appendKeyvals(a.logger.With(), keyvals).Logger()}
}
