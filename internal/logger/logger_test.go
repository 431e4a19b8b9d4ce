package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rpattn/memberimport/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerAppliesLevelAndFormat(t *testing.T) {
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "debug", Format: "json"}}
	log := NewLogger(cfg)

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	_, isJSON := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	log := NewLogger(&config.Config{Logging: config.LoggingConfig{Level: "loud", Format: "text"}})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	_, isText := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}

func TestFieldHelpers(t *testing.T) {
	log := NewLogger(&config.Config{Logging: config.LoggingConfig{Level: "info", Format: "json"}})
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithImport("imp-1", "biodata").WithField("rows", 3).Info("validated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "imp-1", entry["import_id"])
	assert.Equal(t, "biodata", entry["catalog"])
	assert.Equal(t, "validated", entry["msg"])

	buf.Reset()
	log.WithOrganization("org-9").Warn("scope")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "org-9", entry["organization_id"])
}
