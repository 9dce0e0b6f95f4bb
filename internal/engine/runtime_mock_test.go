package engine

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"path"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRuntime struct {
	mock.Mock
}

var _ Runtime = (*MockRuntime)(nil)

func (m *MockRuntime) PullImage(ctx context.Context, image string) error {
	args := m.Called(ctx, image)
	return args.Error(0)
}

func (m *MockRuntime) CreateContainer(ctx context.Context, spec *ContainerSpec) (string, error) {
	args := m.Called(ctx, spec)
	return args.String(0), args.Error(1)
}

func (m *MockRuntime) StartContainer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRuntime) WaitContainer(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRuntime) CopyFromContainer(ctx context.Context, id, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, id, path)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *MockRuntime) ContainerLogs(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockRuntime) RemoveContainer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// tarArchive builds the single-file archive the runtime returns for a copied path.
func tarArchive(t *testing.T, name, content string) io.ReadCloser {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: name,
		Mode: 0644,
		Size: int64(len(content)),
	}))
	_, err := tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	return io.NopCloser(&buf)
}

// expectArtifacts registers the archive lookups for both artifacts. A nil
// content means the path does not exist in the container.
func expectArtifacts(t *testing.T, m *MockRuntime, id string, ports, status *string) {
	t.Helper()

	for p, content := range map[string]*string{PortsArtifactPath: ports, StatusArtifactPath: status} {
		if content == nil {
			m.On("CopyFromContainer", mock.Anything, id, p).Return(nil, ErrArtifactNotFound).Once()
			continue
		}
		m.On("CopyFromContainer", mock.Anything, id, p).Return(tarArchive(t, path.Base(p), *content), nil).Once()
	}
}

func strPtr(s string) *string {
	return &s
}
