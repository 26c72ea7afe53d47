package worker

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger routes asynq's internal logging through zerolog
type logger struct {
	zl zerolog.Logger
}

func newLogger() *logger {
	return &logger{zl: log.With().Str("component", "asynq").Logger()}
}

func (l *logger) Debug(args ...interface{}) { l.zl.Debug().Msg(fmt.Sprint(args...)) }
func (l *logger) Info(args ...interface{})  { l.zl.Info().Msg(fmt.Sprint(args...)) }
func (l *logger) Warn(args ...interface{})  { l.zl.Warn().Msg(fmt.Sprint(args...)) }
func (l *logger) Error(args ...interface{}) { l.zl.Error().Msg(fmt.Sprint(args...)) }
func (l *logger) Fatal(args ...interface{}) { l.zl.Fatal().Msg(fmt.Sprint(args...)) }
