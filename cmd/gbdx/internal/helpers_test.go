package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dangazineu/gbdx/internal/registry/registrytest"
)

const testToken = "test-token"

// testEnv isolates a command from the user's settings and points it at a fake API.
type testEnv struct {
	server     *registrytest.Server
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("GBDX_ENDPOINT", "")
	t.Setenv("GBDX_TOKEN", "")
	t.Setenv("DOCKER_HOST", "")

	server := registrytest.NewServer(testToken)
	t.Cleanup(server.Close)

	configPath := filepath.Join(t.TempDir(), "config.yml")
	settings := "endpoint: " + server.URL() + "\ntoken: " + testToken + "\nwait_timeout: 5m\n"
	if err := os.WriteFile(configPath, []byte(settings), 0600); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}

	return &testEnv{server: server, configPath: configPath}
}

// run executes the root command with a fake container runtime.
func (e *testEnv) run(t *testing.T, rt *fakeRuntime, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCmd(rt.factory())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
