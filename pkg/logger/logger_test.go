package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)

	Warn("attempt failed", "backend", "groq", "attempt", 2, "dangling")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "attempt failed", entry["msg"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "groq", entry["backend"])
	assert.Equal(t, 2.0, entry["attempt"])
	assert.Equal(t, "dangling", entry["extra"])
}

func TestDebugFilteredByLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	log.SetLevel(logrus.InfoLevel)

	Debug("hidden", "k", "v")
	assert.Zero(t, buf.Len())
}
