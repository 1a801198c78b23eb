package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"DEBUG":    logrus.DebugLevel,
		"INFO":     logrus.InfoLevel,
		"WARNING":  logrus.WarnLevel,
		"ERROR":    logrus.ErrorLevel,
		"CRITICAL": logrus.FatalLevel,
		"info":     logrus.InfoLevel,
		" Error ":  logrus.ErrorLevel,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"", "WARN", "TRACE", "verbose"} {
		_, err := ParseLevel(name)
		assert.Error(t, err, name)
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("ERROR", &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = New("LOUD", &buf)
	assert.Error(t, err)
}

func TestNewIsolated(t *testing.T) {
	var a, b bytes.Buffer
	quiet, err := New(DefaultLevel, &a)
	require.NoError(t, err)
	loud, err := New("DEBUG", &b)
	require.NoError(t, err)

	quiet.Info("quiet")
	loud.Info("loud")
	assert.Empty(t, a.String())
	assert.Contains(t, b.String(), "loud")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel(), "standard logger must be untouched")
}
