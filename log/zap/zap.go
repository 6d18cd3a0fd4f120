// Package zap adapts a *zap.Logger to remotecoll.Logger.
package zap

import (
	"github.com/unkn0wn-root/remotecoll"
	"go.uber.org/zap"
)

var _ remotecoll.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New names the logger "remotecoll" so its entries can be filtered.
func New(l *zap.Logger) Logger { return Logger{L: l.Named("remotecoll")} }

func (z Logger) Debug(msg string, f remotecoll.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f remotecoll.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f remotecoll.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f remotecoll.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f remotecoll.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
