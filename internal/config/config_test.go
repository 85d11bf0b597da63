package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labeltool/internal/polyedit"
)

// chdir moves the test into an empty directory so no labeltool.yaml is
// found by the search path.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	return dir
}

func TestDefaults(t *testing.T) {
	chdir(t)

	s, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "", s.Session.IDPrefix)
	assert.Equal(t, time.Duration(0), s.Assist.PollInterval)
	assert.Equal(t, time.Second, s.Store.SaveDelay)
	assert.Equal(t, polyedit.DefaultSettings(), s.EditSettings())
}

func TestConfigFile(t *testing.T) {
	dir := chdir(t)
	yaml := `
session:
  idprefix: bench
brush:
  radius: 25
  segments: 24
assist:
  pollinterval: 500ms
store:
  dir: out/labels
  savedelay: 2s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labeltool.yaml"), []byte(yaml), 0644))

	s, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "bench", s.Session.IDPrefix)
	assert.Equal(t, 25.0, s.Brush.Radius)
	assert.Equal(t, 24, s.Brush.Segments)
	assert.Equal(t, 0.025, s.Brush.WheelRate, "unset keys keep defaults")
	assert.Equal(t, 500*time.Millisecond, s.Assist.PollInterval)
	assert.Equal(t, "out/labels", s.Store.Dir)
	assert.Equal(t, 2*time.Second, s.Store.SaveDelay)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brush:\n  radius: 25\n"), 0644))
	t.Setenv("LABELTOOL_BRUSH_RADIUS", "40")
	t.Setenv("LABELTOOL_ASSIST_POLLINTERVAL", "1s")

	s, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 40.0, s.Brush.Radius)
	assert.Equal(t, time.Second, s.Assist.PollInterval)
}

func TestExplicitFileMissing(t *testing.T) {
	dir := chdir(t)
	_, err := Load(New(), filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero min radius", func(s *Settings) { s.Brush.MinRadius = 0 }},
		{"radius below minimum", func(s *Settings) { s.Brush.Radius = 0.5 }},
		{"too few segments", func(s *Settings) { s.Brush.Segments = 2 }},
		{"negative poll interval", func(s *Settings) { s.Assist.PollInterval = -time.Second }},
		{"negative save delay", func(s *Settings) { s.Store.SaveDelay = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t)
			s, err := Load(New(), "")
			require.NoError(t, err)
			require.NoError(t, s.Validate())

			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}
