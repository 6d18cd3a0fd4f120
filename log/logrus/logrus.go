// Package logrus adapts a *logrus.Entry to remotecoll.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/remotecoll"
)

var _ remotecoll.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New tags every entry with component=remotecoll.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "remotecoll")}
}

func (l Logger) Debug(msg string, f remotecoll.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f remotecoll.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f remotecoll.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f remotecoll.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f remotecoll.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}
