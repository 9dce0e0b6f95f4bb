package docker

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/docker/docker/api/types/registry"
	"github.com/spf13/afero"
)

const dockerHub = "docker.io"

// configFile is the subset of ~/.docker/config.json used for pulls.
type configFile struct {
	Auths map[string]registry.AuthConfig `json:"auths"`
}

// Credentials holds registry logins read from a docker config file.
type Credentials struct {
	auths map[string]registry.AuthConfig
}

// LoadCredentials reads a docker config file. A missing file yields empty credentials.
func LoadCredentials(fs afero.Fs, path string) (*Credentials, error) {
	creds := &Credentials{auths: make(map[string]registry.AuthConfig)}
	if path == "" {
		return creds, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return nil, fmt.Errorf("failed to read docker config: %w", err)
	}

	var cfg configFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse docker config: %w", err)
	}

	for server, auth := range cfg.Auths {
		if auth.Auth != "" && auth.Username == "" {
			decoded, err := base64.StdEncoding.DecodeString(auth.Auth)
			if err == nil {
				if user, pass, ok := strings.Cut(string(decoded), ":"); ok {
					auth.Username = user
					auth.Password = pass
				}
			}
		}
		auth.Auth = ""
		auth.ServerAddress = server
		creds.auths[normalizeRegistry(server)] = auth
	}

	return creds, nil
}

// Lookup returns the login for the registry that serves image.
func (c *Credentials) Lookup(image string) (registry.AuthConfig, bool) {
	auth, ok := c.auths[registryHost(image)]
	return auth, ok
}

// EncodedAuth returns the X-Registry-Auth value for pulling image, or "" when
// no login is configured for its registry.
func (c *Credentials) EncodedAuth(image string) (string, error) {
	auth, ok := c.Lookup(image)
	if !ok {
		return "", nil
	}
	return registry.EncodeAuthConfig(auth)
}

// normalizeRegistry strips scheme, path and the Docker Hub aliases from a registry address.
func normalizeRegistry(server string) string {
	server = strings.TrimPrefix(server, "https://")
	server = strings.TrimPrefix(server, "http://")
	if host, _, found := strings.Cut(server, "/"); found {
		server = host
	}

	switch server {
	case "", "index.docker.io", "registry-1.docker.io":
		return dockerHub
	}
	return server
}

// registryHost extracts the registry from an image reference. References
// without a host component resolve to Docker Hub.
func registryHost(image string) string {
	first, _, found := strings.Cut(image, "/")
	if !found {
		return dockerHub
	}
	if strings.ContainsAny(first, ".:") || first == "localhost" {
		return normalizeRegistry(first)
	}
	return dockerHub
}
