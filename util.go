package socketio

import (
	"log"
	"os"
)

var (
	Log           = DefaultLogger
	VerboseLogger = &Logger{debugLogger, infoLogger, warnLogger}
	DefaultLogger = &Logger{nil, infoLogger, warnLogger}

	debugLogger = log.New(os.Stderr, "[DEBUG] ", log.Ldate|log.Ltime)
	infoLogger  = log.New(os.Stderr, "[INFO]  ", log.Ldate|log.Ltime)
	warnLogger  = log.New(os.Stderr, "[WARN]  ", log.Ldate|log.Ltime)
)

// Logger is the package's logging sink. Debug is nil by default (silent);
// swap in VerboseLogger, or a custom *Logger, to see debug traffic.
type Logger struct {
	Debug, Info, Warn *log.Logger
}

func (l *Logger) debug(v ...interface{}) {
	if l.Debug != nil {
		l.Debug.Print(v...)
	}
}

func (l *Logger) debugf(format string, v ...interface{}) {
	if l.Debug != nil {
		l.Debug.Printf(format, v...)
	}
}

func (l *Logger) info(v ...interface{}) {
	if l.Info != nil {
		l.Info.Print(v...)
	}
}

func (l *Logger) infof(format string, v ...interface{}) {
	if l.Info != nil {
		l.Info.Printf(format, v...)
	}
}

func (l *Logger) warn(v ...interface{}) {
	if l.Warn != nil {
		l.Warn.Print(v...)
	}
}

func (l *Logger) warnf(format string, v ...interface{}) {
	if l.Warn != nil {
		l.Warn.Printf(format, v...)
	}
}
