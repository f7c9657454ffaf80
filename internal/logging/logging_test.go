package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/quochiep16/mini-e/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.Log{Level: "info", Format: "json"})

	logger.Debug("hidden")
	logger.Info("checkout created", "tracking_code", "PM1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "checkout created", line["msg"])
	assert.Equal(t, "PM1", line["tracking_code"])
	assert.Equal(t, "mini-e", line["service"])
}

func TestNew_TextDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.Log{Level: "DEBUG", Format: "text"})

	logger.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}
