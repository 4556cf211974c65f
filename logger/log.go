package logger

import (
	"github.com/sirupsen/logrus"
)

type Logger struct {
	flag   bool
	proto  string
	fields logrus.Fields
}

func New(flag bool, proto string) *Logger {
	if flag {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return &Logger{
		flag:  flag,
		proto: proto,
	}
}

// With returns a logger that also carries key=value.
func (l *Logger) With(key string, value interface{}) *Logger {
	fields := make(logrus.Fields, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Logger{
		flag:   l.flag,
		proto:  l.proto,
		fields: fields,
	}
}

func (l *Logger) entry() *logrus.Entry {
	e := logrus.WithFields(logrus.Fields{
		"protocol": l.proto,
	})
	if len(l.fields) > 0 {
		e = e.WithFields(l.fields)
	}
	return e
}

func (l *Logger) Info(args ...interface{}) {
	if l.flag {
		l.entry().Info(args...)
	}
}

func (l *Logger) Debug(args ...interface{}) {
	if l.flag {
		l.entry().Debug(args...)
	}
}

func (l *Logger) Warn(args ...interface{}) {
	l.entry().Warn(args...)
}

func (l *Logger) Error(args ...interface{}) {
	l.entry().Error(args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.flag {
		l.entry().Infof(format, args...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.flag {
		l.entry().Debugf(format, args...)
	}
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry().Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry().Errorf(format, args...)
}
