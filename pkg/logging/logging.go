// Package logging builds the logrus loggers handed to the rest of copyit.
package logging

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultLevel = "WARNING"

// Levels lists the accepted verbosity names, most verbose first.
var Levels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

var levels = map[string]logrus.Level{
	"DEBUG":    logrus.DebugLevel,
	"INFO":     logrus.InfoLevel,
	"WARNING":  logrus.WarnLevel,
	"ERROR":    logrus.ErrorLevel,
	"CRITICAL": logrus.FatalLevel,
}

// ParseLevel maps a verbosity name to a logrus level. Names are matched
// case-insensitively.
func ParseLevel(name string) (logrus.Level, error) {
	lvl, ok := levels[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return logrus.PanicLevel, errors.Errorf("invalid log level %q (choose from %s)", name, strings.Join(Levels, ", "))
	}
	return lvl, nil
}

// New returns a logger writing to out at the given verbosity.
func New(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	return log, nil
}
