package notification

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"
)

type watermillLogger struct {
	logger *zap.Logger
	fields watermill.LogFields
}

func NewWatermillLogger(logger *zap.Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: logger, fields: watermill.LogFields{}}
}

func (a *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(a.zapFields(fields), zap.Error(err))...)
}

func (a *watermillLogger) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, a.zapFields(fields)...)
}

func (a *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, a.zapFields(fields)...)
}

func (a *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, a.zapFields(fields)...)
}

func (a *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{logger: a.logger, fields: a.fields.Add(fields)}
}

func (a *watermillLogger) zapFields(fields watermill.LogFields) []zap.Field {
	all := a.fields.Add(fields)
	out := make([]zap.Field, 0, len(all))
	for k, v := range all {
		out = append(out, zap.Any(k, v))
	}
	return out
}
