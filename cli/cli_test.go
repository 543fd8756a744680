package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConsole struct {
	calls []string
}

func (f *fakeConsole) Nodes() []string { return []string{"h1", "h2", "s1"} }
func (f *fakeConsole) PingAll() error  { f.calls = append(f.calls, "pingall"); return nil }
func (f *fakeConsole) PingPair() error { f.calls = append(f.calls, "pingpair"); return nil }
func (f *fakeConsole) Iperf() error    { f.calls = append(f.calls, "iperf"); return nil }

func TestLoop_DispatchesCommandsUntilExit(t *testing.T) {
	console := &fakeConsole{}
	in := strings.NewReader("pingall\niperf\nexit\npingpair\n")

	require.NoError(t, loop(console, in, io.Discard))
	assert.Equal(t, []string{"pingall", "iperf"}, console.calls, "nothing runs after exit")
}

func TestLoop_SkipsBlanksAndComments(t *testing.T) {
	console := &fakeConsole{}
	in := strings.NewReader("\n# a comment\npingpair\n")

	require.NoError(t, loop(console, in, io.Discard))
	assert.Equal(t, []string{"pingpair"}, console.calls)
}

func TestLoop_UnknownCommandDoesNotEndSession(t *testing.T) {
	console := &fakeConsole{}
	in := strings.NewReader("frobnicate\npingall\n")

	require.NoError(t, loop(console, in, io.Discard))
	assert.Equal(t, []string{"pingall"}, console.calls)
}

func TestLoop_EOFEndsSession(t *testing.T) {
	console := &fakeConsole{}
	require.NoError(t, loop(console, strings.NewReader("pingall\n"), io.Discard))
	assert.Equal(t, []string{"pingall"}, console.calls)
}

func TestRun_ScriptFile(t *testing.T) {
	console := &fakeConsole{}
	script := filepath.Join(t.TempDir(), "session.cli")
	require.NoError(t, os.WriteFile(script, []byte("pingall\npingpair\n"), 0o644))

	require.NoError(t, Run(console, script))
	assert.Equal(t, []string{"pingall", "pingpair"}, console.calls)
}

func TestRun_MissingScript(t *testing.T) {
	err := Run(&fakeConsole{}, "/nonexistent/session.cli")
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "session.cli")
}
