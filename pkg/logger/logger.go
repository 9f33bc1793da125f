package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level      string
	Format     string
	File       string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
}

var log = logrus.New()

func NewLogger(opts Options) {
	if opts.File == "" {
		opts.File = "router.log"
	}
	if opts.MaxSize == 0 {
		opts.MaxSize = 50
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 3
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = 28
	}

	logFile := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
	}

	// Set log output to the file and console
	SetOutput(io.MultiWriter(os.Stdout, logFile))

	if opts.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.Info("Logging has been initialized...")
}

// SetOutput redirects the process logger, mainly for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Debug(msg string, keyvals ...any) {
	log.WithFields(fields(keyvals)).Debug(msg)
}

func Info(msg string, keyvals ...any) {
	log.WithFields(fields(keyvals)).Info(msg)
}

func Warn(msg string, keyvals ...any) {
	log.WithFields(fields(keyvals)).Warn(msg)
}

func Error(msg string, keyvals ...any) {
	log.WithFields(fields(keyvals)).Error(msg)
}

// fields turns alternating key/value pairs into logrus fields. A trailing
// key without a value is kept under "extra".
func fields(keyvals []any) logrus.Fields {
	f := make(logrus.Fields, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		if i+1 == len(keyvals) {
			f["extra"] = keyvals[i]
			break
		}
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		f[key] = keyvals[i+1]
	}
	return f
}
