// Package s3creds writes temporary GBDX S3 credentials into the config files
// of common S3 clients.
package s3creds

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dangazineu/gbdx/internal/registry"
	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

const (
	DefaultAWSProfile   = "temp"
	DefaultS3cmdConfig  = "~/.s3cfg"
	awsCredentialsFile  = ".aws/credentials"
	s3cmdDefaultSection = "default"
)

// AWSCredentialsPath is the awscli shared credentials file under home.
func AWSCredentialsPath(home string) string {
	return filepath.Join(home, awsCredentialsFile)
}

// ExpandHome replaces a leading ~ with home.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// WriteAWSCLI stores creds in profile of the awscli credentials file at path.
// Other profiles are preserved.
func WriteAWSCLI(fs afero.Fs, path, profile string, creds *registry.S3Credentials) error {
	if profile == "" {
		profile = DefaultAWSProfile
	}
	return update(fs, path, func(cfg *ini.File) {
		section := cfg.Section(profile)
		section.Key("aws_access_key_id").SetValue(creds.AccessKey)
		section.Key("aws_secret_access_key").SetValue(creds.SecretKey)
		section.Key("aws_session_token").SetValue(creds.SessionToken)
	})
}

// WriteS3cmd stores creds in the default section of the s3cmd config at path.
// Unrelated s3cmd settings are preserved.
func WriteS3cmd(fs afero.Fs, path string, creds *registry.S3Credentials) error {
	return update(fs, path, func(cfg *ini.File) {
		section := cfg.Section(s3cmdDefaultSection)
		section.Key("access_key").SetValue(creds.AccessKey)
		section.Key("secret_key").SetValue(creds.SecretKey)
		section.Key("access_token").SetValue(creds.SessionToken)
	})
}

// Environ renders creds as shell variable assignments, one per line.
func Environ(creds *registry.S3Credentials, export bool) string {
	prefix := ""
	if export {
		prefix = "export "
	}

	var b strings.Builder
	for _, kv := range [][2]string{
		{"AWS_ACCESS_KEY_ID", creds.AccessKey},
		{"AWS_SECRET_ACCESS_KEY", creds.SecretKey},
		{"AWS_SESSION_TOKEN", creds.SessionToken},
	} {
		fmt.Fprintf(&b, "%s%s=%s\n", prefix, kv[0], kv[1])
	}
	return b.String()
}

func update(fs afero.Fs, path string, apply func(cfg *ini.File)) error {
	cfg, err := load(fs, path)
	if err != nil {
		return err
	}
	apply(cfg)

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return fmt.Errorf("could not render %s: %w", path, err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return nil
}

func load(fs afero.Fs, path string) (*ini.File, error) {
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return ini.Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	return cfg, nil
}
