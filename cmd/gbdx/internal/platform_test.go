package internal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gerrors "github.com/dangazineu/gbdx/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addS3Credentials(env *testEnv) {
	env.server.SetS3Credentials(map[string]interface{}{
		"bucket":           "gbd-customer-data",
		"prefix":           "abc123",
		"S3_access_key":    "AKIA",
		"S3_secret_key":    "secret",
		"S3_session_token": "session",
	})
}

func TestCatalogAndIdahoCommands(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "strip footprint",
			args:     []string{"catalog", "strip-footprint", "-c", "1030010"},
			contains: []string{`"POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))"`},
		},
		{
			name:     "strip footprint underscore alias",
			args:     []string{"catalog", "strip_footprint", "--catalog-id", "1030010"},
			contains: []string{"POLYGON"},
		},
		{
			name:     "idaho images",
			args:     []string{"idaho", "get-images-by-catid", "-c", "1030010"},
			contains: []string{`"identifier": "idaho-7"`, `"searchAreaWkt": "POLYGON`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.server.AddCatalogRecord(map[string]interface{}{
				"identifier": "1030010",
				"properties": map[string]interface{}{"footprintWkt": "POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))"},
			})
			env.server.AddIdahoImage("1030010", map[string]interface{}{"identifier": "idaho-7"})

			out, _, err := env.run(t, &fakeRuntime{}, tc.args...)
			require.NoError(t, err)
			for _, want := range tc.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestCatalogRequiresCatalogID(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, &fakeRuntime{}, "catalog", "strip-footprint")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"catalog-id" not set`)
	assert.Empty(t, env.server.Requests())
}

func TestOrderingCommands(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, &fakeRuntime{}, "ordering", "order", "-c", "A", "-c", "B")
	require.NoError(t, err)
	var orderID string
	require.NoError(t, json.Unmarshal([]byte(out), &orderID))
	assert.Equal(t, "order-1001", orderID)

	out, _, err = env.run(t, &fakeRuntime{}, "ordering", "status", "-o", orderID)
	require.NoError(t, err)
	assert.Contains(t, out, `"acquisition_id": "B"`)

	_, _, err = env.run(t, &fakeRuntime{}, "ordering", "status", "-o", "unknown")
	require.Error(t, err)
	assert.True(t, gerrors.HasCode(err, gerrors.CodeTaskAPI))
}

func TestS3Info(t *testing.T) {
	for _, group := range []string{"s3", "s3creds"} {
		t.Run(group, func(t *testing.T) {
			env := newTestEnv(t)
			addS3Credentials(env)

			out, _, err := env.run(t, &fakeRuntime{}, group, "info")
			require.NoError(t, err)
			assert.Contains(t, out, `"bucket": "gbd-customer-data"`)
			assert.Contains(t, out, `"S3_session_token": "session"`)
			assert.Contains(t, env.server.Requests(), "GET /s3creds/v1/prefix?duration=36000")
		})
	}
}

func TestS3TempSet(t *testing.T) {
	env := newTestEnv(t)
	addS3Credentials(env)
	home := os.Getenv("HOME")
	s3cfg := filepath.Join(t.TempDir(), "s3cfg")

	out, _, err := env.run(t, &fakeRuntime{}, "s3temp", "set",
		"--awscli", "--awscli-profile", "gbdx",
		"--s3cmd", "--s3cmd-config", s3cfg,
		"--environ", "--environ-export",
		"--duration", "900")
	require.NoError(t, err)

	assert.Equal(t, "export AWS_ACCESS_KEY_ID=AKIA\nexport AWS_SECRET_ACCESS_KEY=secret\nexport AWS_SESSION_TOKEN=session\n", out)
	assert.Contains(t, env.server.Requests(), "GET /s3creds/v1/prefix?duration=900")

	aws, err := os.ReadFile(filepath.Join(home, ".aws", "credentials"))
	require.NoError(t, err)
	assert.Contains(t, string(aws), "[gbdx]")
	assert.Contains(t, string(aws), "aws_session_token")

	cfg, err := os.ReadFile(s3cfg)
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "[default]")
	assert.Contains(t, string(cfg), "access_token")
}

func TestS3TempErrors(t *testing.T) {
	testCases := []struct {
		name        string
		args        []string
		errContains string
		code        string
	}{
		{name: "no target", args: []string{"s3temp", "set"}, errContains: "at least one of"},
		{name: "duration too short", args: []string{"s3temp", "set", "-e", "-d", "60"}, errContains: "duration must be between"},
		{name: "clear", args: []string{"s3temp", "clear"}, code: gerrors.CodeNotImplemented},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			addS3Credentials(env)

			out, _, err := env.run(t, &fakeRuntime{}, tc.args...)
			require.Error(t, err)
			if tc.errContains != "" {
				assert.Contains(t, err.Error(), tc.errContains)
			}
			if tc.code != "" {
				assert.True(t, gerrors.HasCode(err, tc.code))
			}
			assert.Empty(t, strings.TrimSpace(out))
			assert.Empty(t, env.server.Requests())
		})
	}
}
