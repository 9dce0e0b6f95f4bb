package internal

import (
	"bytes"
	"strings"
	"testing"
)

func TestExecute(t *testing.T) {
	cmd := NewRootCmd()
	b := bytes.NewBufferString("")
	cmd.SetOut(b)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, sub := range []string{"worker", "workflow", "task", "catalog", "ordering", "idaho", "s3", "s3temp", "version"} {
		if !strings.Contains(b.String(), sub) {
			t.Errorf("expected help to list %q, got:\n%s", sub, b.String())
		}
	}
}

func TestCompletionCmd(t *testing.T) {
	testCases := []struct {
		name      string
		args      []string
		expectErr bool
	}{
		{name: "bash completion", args: []string{"completion", "bash"}},
		{name: "zsh completion", args: []string{"completion", "zsh"}},
		{name: "fish completion", args: []string{"completion", "fish"}},
		{name: "powershell completion", args: []string{"completion", "powershell"}},
		{name: "unknown flag", args: []string{"completion", "bash", "--bogus"}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := NewRootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs(tc.args)

			err := cmd.Execute()

			if tc.expectErr {
				if err == nil {
					t.Errorf("Expected error, but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), "gbdx") {
				t.Errorf("Expected output to contain a completion script for gbdx, but it did not")
			}
		})
	}
}

func TestVerboseLogsAPIRequests(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		wantLogs bool
	}{
		{name: "task ls verbose", args: []string{"--verbose", "task", "ls"}, wantLogs: true},
		{name: "workflow ls verbose after subcommand", args: []string{"workflow", "ls", "--verbose"}, wantLogs: true},
		{name: "quiet by default", args: []string{"task", "ls"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, errOut, err := env.run(t, &fakeRuntime{}, tc.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strings.Contains(errOut, "api request"); got != tc.wantLogs {
				t.Errorf("expected api request logs=%v, stderr:\n%s", tc.wantLogs, errOut)
			}
		})
	}
}
