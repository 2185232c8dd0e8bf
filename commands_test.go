package main

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogging(t *testing.T) {
	require.NoError(t, setupLogging("debug"))
	require.NoError(t, setupLogging("info"))
	assert.Error(t, setupLogging("loud"))
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "replay"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestReplayCommandEndToEnd(t *testing.T) {
	pc, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer pc.Close()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	dir := t.TempDir()
	frames := filepath.Join(dir, "frames.ndjson")
	require.NoError(t, os.WriteFile(frames, []byte(
		`{"timestamp_ms":1,"blendshapes":[{"category_name":"mouthPucker","score":0.9}]}`+"\n"+
			`{"timestamp_ms":2,"blendshapes":[{"category_name":"jawOpen","score":0.3}]}`+"\n"), 0o644))
	conf := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("ingest:\n  first_frame_warn_ms: 0\n"), 0o644))

	root := newRootCmd()
	root.SetArgs([]string{
		"replay", frames,
		"--realtime=false",
		"--no-console",
		"--config", conf,
		"--vmc-host", "127.0.0.1",
		"--vmc-port", strconv.Itoa(port),
		"--out", filepath.Join(dir, "rec"),
		"--log-level", "warn",
	})
	require.NoError(t, root.Execute())

	_, err = os.Stat(filepath.Join(dir, "rec"))
	assert.True(t, os.IsNotExist(err), "nothing was recorded, so nothing is exported")
}

func TestReplayMissingFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"replay", filepath.Join(t.TempDir(), "none.ndjson"), "--no-console", "--log-level", "error"})
	assert.Error(t, root.Execute())
}
