package engine

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	NoPortsFileMessage  = "No output ports file found"
	NoStatusFileMessage = "No status.json file found"

	// LocalPortsFile is the name of the ports artifact copy under the output root.
	LocalPortsFile = "ports.json"

	maxArtifactSize = 16 << 20
)

// PortsOutcome is the result of extracting the ports artifact. When Found is
// false, Err says why: it wraps ErrArtifactNotFound when the file was absent.
type PortsOutcome struct {
	Found     bool
	Ports     interface{}
	LocalPath string
	Err       error
}

func (o PortsOutcome) String() string {
	if !o.Found {
		return NoPortsFileMessage
	}
	return o.LocalPath
}

// MarshalJSON renders the decoded ports, or the not-found message.
func (o PortsOutcome) MarshalJSON() ([]byte, error) {
	if !o.Found {
		return json.Marshal(NoPortsFileMessage)
	}
	return json.Marshal(o.Ports)
}

// StatusOutcome is the result of extracting the status artifact.
type StatusOutcome struct {
	Found  bool
	Status interface{}
	Err    error
}

func (o StatusOutcome) String() string {
	if !o.Found {
		return NoStatusFileMessage
	}
	return fmt.Sprintf("%s %s", o.State(), o.Reason())
}

// MarshalJSON renders the decoded status, or the not-found message.
func (o StatusOutcome) MarshalJSON() ([]byte, error) {
	if !o.Found {
		return json.Marshal(NoStatusFileMessage)
	}
	return json.Marshal(o.Status)
}

// State returns the "status" field of the status artifact when it is an object.
func (o StatusOutcome) State() string {
	return o.field("status")
}

// Reason returns the "reason" field of the status artifact, if any.
func (o StatusOutcome) Reason() string {
	return o.field("reason")
}

func (o StatusOutcome) field(name string) string {
	if !o.Found {
		return ""
	}
	obj, ok := o.Status.(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := obj[name].(string)
	return s
}

// ArtifactReader reads files out of a container as tar archives.
type ArtifactReader interface {
	CopyFromContainer(ctx context.Context, id, path string) (io.ReadCloser, error)
}

// OutputExtractor recovers the ports and status artifacts from a stopped
// container. Extraction is best effort: failures become not-found outcomes.
type OutputExtractor struct {
	reader ArtifactReader
	fs     afero.Fs
	logger *zap.Logger
}

func NewOutputExtractor(reader ArtifactReader, fs afero.Fs, logger *zap.Logger) *OutputExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutputExtractor{reader: reader, fs: fs, logger: logger}
}

// Extract reads both artifacts independently. A ports artifact that decodes is
// copied to <outputRoot>/ports.json.
func (e *OutputExtractor) Extract(ctx context.Context, containerID, outputRoot string) (PortsOutcome, StatusOutcome) {
	return e.extractPorts(ctx, containerID, outputRoot), e.extractStatus(ctx, containerID)
}

func (e *OutputExtractor) extractPorts(ctx context.Context, containerID, outputRoot string) PortsOutcome {
	raw, ports, err := e.readArtifact(ctx, containerID, PortsArtifactPath)
	if err != nil {
		e.logDegraded(PortsArtifactPath, err)
		return PortsOutcome{Err: err}
	}

	localPath := filepath.Join(outputRoot, LocalPortsFile)
	if err := afero.WriteFile(e.fs, localPath, raw, 0644); err != nil {
		err = fmt.Errorf("failed to write %s: %w", localPath, err)
		e.logDegraded(PortsArtifactPath, err)
		return PortsOutcome{Err: err}
	}

	e.logger.Debug("extracted ports artifact", zap.String("path", localPath))
	return PortsOutcome{Found: true, Ports: ports, LocalPath: localPath}
}

func (e *OutputExtractor) extractStatus(ctx context.Context, containerID string) StatusOutcome {
	_, status, err := e.readArtifact(ctx, containerID, StatusArtifactPath)
	if err != nil {
		e.logDegraded(StatusArtifactPath, err)
		return StatusOutcome{Err: err}
	}
	e.logger.Debug("extracted status artifact", zap.Any("status", status))
	return StatusOutcome{Found: true, Status: status}
}

// readArtifact fetches the single-file archive for p and decodes its entry as JSON.
func (e *OutputExtractor) readArtifact(ctx context.Context, containerID, p string) ([]byte, interface{}, error) {
	rc, err := e.reader.CopyFromContainer(ctx, containerID, p)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = rc.Close()
	}()

	want := path.Base(p)
	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading tar for %s: %w", p, err)
		}
		if strings.TrimPrefix(hdr.Name, "./") != want || hdr.Typeflag == tar.TypeDir {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(tr, maxArtifactSize+1))
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if len(data) > maxArtifactSize {
			return nil, nil, fmt.Errorf("%s exceeds %d bytes", p, maxArtifactSize)
		}

		var decoded interface{}
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		return data, decoded, nil
	}

	return nil, nil, fmt.Errorf("%w: %s not in archive", ErrArtifactNotFound, p)
}

func (e *OutputExtractor) logDegraded(p string, err error) {
	if errors.Is(err, ErrArtifactNotFound) {
		e.logger.Debug("artifact not present", zap.String("path", p))
		return
	}
	e.logger.Warn("could not extract artifact", zap.String("path", p), zap.Error(err))
}
