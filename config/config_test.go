package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScales(t *testing.T) {
	scales, err := ParseScales("x4:1, x1:0.2 ,x2:0.5")
	require.NoError(t, err)
	assert.Equal(t, []Scale{{Key: "x1", FPS: 0.2}, {Key: "x2", FPS: 0.5}, {Key: "x4", FPS: 1}}, scales)
}

func TestParseScalesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "missing fps", raw: "x1"},
		{name: "zero fps", raw: "x1:0"},
		{name: "not a number", raw: "x1:fast"},
		{name: "duplicate key", raw: "x1:1,x1:2"},
		{name: "missing key", raw: ":1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScales(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/vedit")
	t.Setenv("FFMPEG_PATH", "/opt/bin/ffmpeg")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/vedit/chunks", cfg.ChunkDir)
	assert.Equal(t, "/opt/bin/ffprobe", cfg.FFprobePath)
	assert.Equal(t, 5*time.Minute, cfg.JobTTL)
	assert.Equal(t, 60*time.Second, cfg.AdmissionTTL)
	assert.Equal(t, "memory", cfg.JobStore)
	assert.Len(t, cfg.Scales, 4)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadRejectsUnknownJobStore(t *testing.T) {
	t.Setenv("JOB_STORE", "etcd")
	_, err := Load()
	assert.Error(t, err)
}
