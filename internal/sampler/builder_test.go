//go:build linux

package sampler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/tamzrod/dust-sensor/internal/config"
	"github.com/tamzrod/dust-sensor/internal/gpio"
)

// sensorTree lays out an exported pin 17 under a temp sysfs root. Regular
// files cannot be registered with epoll, so opening a source always fails.
func sensorTree(t *testing.T) cfg.SensorConfig {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{"export", "unexport"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o644))
	}
	dir := filepath.Join(root, "gpio17")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, v := range map[string]string{"direction": "out\n", "edge": "none\n", "value": "1\n"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(v), 0o644))
	}

	pin := 17
	no := false
	c := &cfg.Config{Sensor: cfg.SensorConfig{
		ID:        "pm25",
		Pin:       &pin,
		Mode:      cfg.ModeSync,
		SysfsRoot: root,
		Reexport:  &no,
	}}
	cfg.Normalize(c)
	return c.Sensor
}

func readAttr(t *testing.T, sc cfg.SensorConfig, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(sc.SysfsRoot, name))
	require.NoError(t, err)
	return string(b)
}

func TestBuild_OpenFailureUnexports(t *testing.T) {
	sc := sensorTree(t)

	s, closer, err := Build(context.Background(), sc, nil)
	assert.Nil(t, s)
	assert.Nil(t, closer)
	assert.ErrorIs(t, err, gpio.ErrResourceUnavailable)

	// The pin was configured before the open attempt.
	assert.Equal(t, "in", readAttr(t, sc, "gpio17/direction"))
	assert.Equal(t, "both", readAttr(t, sc, "gpio17/edge"))
	assert.Equal(t, "17", readAttr(t, sc, "unexport"))
}

func TestBuild_OpenFailureKeepsExport(t *testing.T) {
	sc := sensorTree(t)
	no := false
	sc.UnexportOnExit = &no

	_, _, err := Build(context.Background(), sc, nil)
	assert.ErrorIs(t, err, gpio.ErrResourceUnavailable)
	assert.Empty(t, readAttr(t, sc, "unexport"))
}

func TestBuild_AsyncOpenFailureUnexports(t *testing.T) {
	sc := sensorTree(t)
	sc.Mode = cfg.ModeAsync

	_, _, err := Build(context.Background(), sc, nil)
	assert.ErrorIs(t, err, gpio.ErrResourceUnavailable)
	assert.Equal(t, "17", readAttr(t, sc, "unexport"))
}

func TestBuild_PinRequired(t *testing.T) {
	_, _, err := Build(context.Background(), cfg.SensorConfig{ID: "pm25"}, nil)
	assert.Error(t, err)
}
