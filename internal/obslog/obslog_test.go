package obslog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSinkDiscardsOutput(t *testing.T) {
	// No SetSink call yet in this test binary's default state would be
	// order-dependent across tests, so explicitly reset to nil first.
	SetSink(nil)
	Errorf("should not panic or block: %d", 1)
}

func TestSetSinkWritesFormattedOutput(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(nil)

	Infof("grid %s ready", "wave")
	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "grid wave ready")
}

func TestSeverityLevelsAreDistinguishable(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(nil)

	Errorf("e")
	Warnf("w")
	Debugf("d")

	out := buf.String()
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "DEBUG")
}
