package logsvc

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(&buf, "API", &core.Config{Env: "TEST"})
	logger.Enable(false)

	logger.Error("saving draft", errors.New("disk full"), map[string]interface{}{"session": "s1"}, core.Person{ID: "u1"}, 42)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "API", line["component"])
	assert.Equal(t, "saving draft", line["message"])
	assert.Equal(t, "disk full", line["error"])
	assert.Equal(t, "s1", line["session"])
	assert.Equal(t, "u1", line["person"])
	assert.Equal(t, float64(42), line["arg4"])
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewRollbarLogger(new(bytes.Buffer), "API", &core.Config{Env: "TEST"})
	logger.Enable(false)

	err := errors.New("boom")
	got := logger.prepare("msg", []interface{}{err, core.Person{ID: "u1"}, core.Person{ID: "u2"}})
	assert.Equal(t, []interface{}{"msg", err}, got)
}

func TestRollbarLogger_testModeLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(&buf, "API", &core.Config{Env: "TEST", TestMode: true})
	logger.Enable(false)

	logger.Info("quiet")
	assert.Empty(t, buf.String())
	logger.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}
