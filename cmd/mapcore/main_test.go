package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTiles(t *testing.T, args ...string) string {
	t.Helper()
	chdir(t, t.TempDir())

	var out bytes.Buffer
	a := newApp()
	a.Writer = &out
	require.NoError(t, a.Run(append([]string{"mapcore", "tiles"}, args...)))
	return out.String()
}

func TestTilesCommand(t *testing.T) {
	out := runTiles(t, "--lat", "0", "--lon", "0", "--z", "1", "--width", "256", "--height", "256")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "view EPSG:3857"), lines[0])
	assert.Contains(t, out, "osm matrix z1 [0,0]-[1,1]")
	assert.Contains(t, out, "osm 1/0/0 https://tile.openstreetmap.org/1/0/0.png")
	assert.Contains(t, out, "osm 1/1/1 https://tile.openstreetmap.org/1/1/1.png")
}

func TestTilesCommandFromEnv(t *testing.T) {
	t.Setenv("LAYER_URL_TEMPLATE", "https://example.com/{z}/{x}/{y}.png")
	t.Setenv("MAP_ZOOM_LEVEL", "2")

	out := runTiles(t, "--lat", "0", "--lon", "0", "--width", "256", "--height", "256")
	assert.Contains(t, out, "osm matrix z2 ")
	assert.Contains(t, out, "https://example.com/2/")
}

func TestTilesCommandRejectsUnknownProjection(t *testing.T) {
	chdir(t, t.TempDir())
	a := newApp()
	a.Writer = &bytes.Buffer{}
	err := a.Run([]string{"mapcore", "tiles", "--projection", "EPSG:1234"})
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
