package config

import (
	"testing"

	gerrors "github.com/dangazineu/gbdx/internal/errors"
)

func TestParseTaskDescriptor(t *testing.T) {
	body := `{
		"name": "echoTask",
		"containerDescriptors": [{"type": "DOCKER", "properties": {"image": "demo/echo:latest"}, "command": "python /run.py --verbose"}],
		"inputPortDescriptors": [{"name": "msg", "type": "string"}, {"name": "data", "type": "directory", "required": true}],
		"outputPortDescriptors": [{"name": "result", "type": "directory"}]
	}`

	descriptor, err := ParseTaskDescriptor([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(descriptor.InputPortDescriptors) != 2 {
		t.Fatalf("expected 2 input ports, got %d", len(descriptor.InputPortDescriptors))
	}
	if descriptor.InputPortDescriptors[0].IsDirectory() {
		t.Errorf("expected 'msg' to be a scalar port")
	}
	if !descriptor.InputPortDescriptors[1].IsDirectory() {
		t.Errorf("expected 'data' to be a directory port")
	}

	container, err := descriptor.DockerContainer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if container.Properties.Image != "demo/echo:latest" {
		t.Errorf("unexpected image %q", container.Properties.Image)
	}
	if container.Command != "python /run.py --verbose" {
		t.Errorf("unexpected command %q", container.Command)
	}
}

func TestParseTaskDescriptor_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `nope`},
		{name: "unnamed input port", body: `{"containerDescriptors":[],"inputPortDescriptors":[{"type":"string"}]}`},
		{name: "unnamed output port", body: `{"containerDescriptors":[],"inputPortDescriptors":[],"outputPortDescriptors":[{"type":"directory"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTaskDescriptor([]byte(tt.body)); err == nil {
				t.Errorf("expected error, got nil")
			}
		})
	}
}

func TestDockerContainer(t *testing.T) {
	docker := ContainerDescriptor{Type: "DOCKER", Properties: ContainerProperties{Image: "img"}}

	tests := []struct {
		name     string
		cds      []ContainerDescriptor
		wantCode string
	}{
		{name: "single docker", cds: []ContainerDescriptor{docker}},
		{name: "none", cds: nil, wantCode: gerrors.CodeUnsupportedContainerType},
		{
			name:     "docker plus other type",
			cds:      []ContainerDescriptor{docker, {Type: "GCE", Properties: ContainerProperties{Image: "img"}}},
			wantCode: gerrors.CodeUnsupportedContainerType,
		},
		{name: "two docker", cds: []ContainerDescriptor{docker, docker}, wantCode: gerrors.CodeUnsupportedContainerType},
		{name: "missing image", cds: []ContainerDescriptor{{Type: "DOCKER"}}, wantCode: gerrors.CodeInvalidWorkflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &TaskDescriptor{ContainerDescriptors: tt.cds}
			_, err := d.DockerContainer()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !gerrors.HasCode(err, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}
