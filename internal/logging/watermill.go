package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// Watermill adapts a zerolog logger to watermill's LoggerAdapter.
type Watermill struct {
	logger zerolog.Logger
}

var _ watermill.LoggerAdapter = Watermill{}

func NewWatermill(logger zerolog.Logger) Watermill {
	return Watermill{logger: logger.With().Str("component", "watermill").Logger()}
}

func (w Watermill) Error(msg string, err error, fields watermill.LogFields) {
	w.logger.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w Watermill) Info(msg string, fields watermill.LogFields) {
	w.logger.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w Watermill) Debug(msg string, fields watermill.LogFields) {
	w.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w Watermill) Trace(msg string, fields watermill.LogFields) {
	w.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w Watermill) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return Watermill{logger: w.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}
