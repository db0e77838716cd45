package common

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
)

// testWriter forwards each log line to t.Log, so output only shows for
// failing or verbose tests.
type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

// NewTestLogger returns a logger that writes through t.Log at the given level.
func NewTestLogger(t testing.TB, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(testWriter{t: t})
	logger.SetLevel(level)
	return logger
}

// NewTestEntry is NewTestLogger wrapped in an entry carrying the test name as
// its prefix, the shape components expect.
func NewTestEntry(t testing.TB, level logrus.Level) *logrus.Entry {
	return NewTestLogger(t, level).WithField("prefix", t.Name())
}
