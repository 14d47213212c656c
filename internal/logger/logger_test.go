package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	buf.Reset()
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestLogGrpcRequest(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "info", Output: &buf})

	l.LogGrpcRequest("/how.v1.Catalog/GetUnits", 5*time.Millisecond, nil)
	line := decodeLine(t, &buf)
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "howcatalog", line["service"])
	assert.Equal(t, "/how.v1.Catalog/GetUnits", line["method"])

	l.LogGrpcRequest("/how.v1.Catalog/GetUnit", time.Millisecond, errors.New("not found"))
	line = decodeLine(t, &buf)
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "not found", line["error"])
}

func TestLogHTTPRequestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "debug", Output: &buf})

	for status, level := range map[int]string{200: "info", 404: "warn", 500: "error"} {
		l.LogHTTPRequest("GET", "/v1/units", status, time.Millisecond)
		line := decodeLine(t, &buf)
		assert.Equal(t, level, line["level"], status)
		assert.Equal(t, "/v1/units", line["route"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "info", Output: &buf})

	l.LogCatalogOperation("GetUnits", time.Millisecond, 3, nil)
	assert.Zero(t, buf.Len())

	l.Component("seed").Info("done").Send()
	line := decodeLine(t, &buf)
	assert.Equal(t, "seed", line["component"])
}
