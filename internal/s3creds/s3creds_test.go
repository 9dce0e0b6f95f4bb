package s3creds

import (
	"testing"

	"github.com/dangazineu/gbdx/internal/registry"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

var testCreds = &registry.S3Credentials{
	Bucket:       "gbd-customer-data",
	Prefix:       "abc123",
	AccessKey:    "AKIA",
	SecretKey:    "secret",
	SessionToken: "session",
}

func readINI(t *testing.T, fs afero.Fs, path string) *ini.File {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	cfg, err := ini.Load(data)
	require.NoError(t, err)
	return cfg
}

func TestWriteAWSCLI(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := AWSCredentialsPath("/home/u")
	require.NoError(t, afero.WriteFile(fs, path, []byte("[default]\naws_access_key_id = KEEP\n"), 0600))

	require.NoError(t, WriteAWSCLI(fs, path, "", testCreds))

	cfg := readINI(t, fs, path)
	assert.Equal(t, "KEEP", cfg.Section("default").Key("aws_access_key_id").String())
	temp := cfg.Section(DefaultAWSProfile)
	assert.Equal(t, "AKIA", temp.Key("aws_access_key_id").String())
	assert.Equal(t, "secret", temp.Key("aws_secret_access_key").String())
	assert.Equal(t, "session", temp.Key("aws_session_token").String())
}

func TestWriteS3cmd(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := ExpandHome(DefaultS3cmdConfig, "/home/u")
	assert.Equal(t, "/home/u/.s3cfg", path)
	require.NoError(t, afero.WriteFile(fs, path, []byte("[default]\nhost_base = s3.amazonaws.com\naccess_key = old\n"), 0600))

	require.NoError(t, WriteS3cmd(fs, path, testCreds))

	section := readINI(t, fs, path).Section("default")
	assert.Equal(t, "s3.amazonaws.com", section.Key("host_base").String())
	assert.Equal(t, "AKIA", section.Key("access_key").String())
	assert.Equal(t, "secret", section.Key("secret_key").String())
	assert.Equal(t, "session", section.Key("access_token").String())
}

func TestWriteCreatesMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, WriteAWSCLI(fs, "/home/u/.aws/credentials", "work", testCreds))
	assert.Equal(t, "AKIA", readINI(t, fs, "/home/u/.aws/credentials").Section("work").Key("aws_access_key_id").String())
}

func TestWriteRejectsMalformedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/c", []byte("[unterminated\n"), 0600))

	err := WriteS3cmd(fs, "/c", testCreds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not parse /c")
}

func TestEnviron(t *testing.T) {
	assert.Equal(t, "AWS_ACCESS_KEY_ID=AKIA\nAWS_SECRET_ACCESS_KEY=secret\nAWS_SESSION_TOKEN=session\n", Environ(testCreds, false))
	assert.Equal(t, "export AWS_ACCESS_KEY_ID=AKIA\nexport AWS_SECRET_ACCESS_KEY=secret\nexport AWS_SESSION_TOKEN=session\n", Environ(testCreds, true))
}

func TestExpandHome(t *testing.T) {
	assert.Equal(t, "/home/u", ExpandHome("~", "/home/u"))
	assert.Equal(t, "/etc/s3cfg", ExpandHome("/etc/s3cfg", "/home/u"))
	assert.Equal(t, "/home/u/cfg/s3", ExpandHome("~/cfg/s3", "/home/u"))
}
