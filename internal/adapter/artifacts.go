package adapter

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	m "qlty.dev/pkg/qlty/internal/model"
)

// Artifact file names inside a test directory.
const (
	PageSourceFile = "page_source.txt"
	SystemLogFile  = "system.log"
	ScreenshotFile = "screenshot.png"
)

// ArtifactCollector captures diagnostic files for a finished test while its session is alive.
type ArtifactCollector interface {
	Collect(ctx context.Context, runID string, record m.TestRecord, handle DriverHandle) ([]m.Artifact, error)
}

type localArtifactCollector struct {
	root m.Path
}

// NewLocalArtifactCollector stores artifacts under root/<run id>/<class>/<method>.
func NewLocalArtifactCollector(root m.Path) ArtifactCollector {
	return &localArtifactCollector{root: root}
}

// ArtifactDir returns the directory holding a test's artifacts.
func ArtifactDir(root m.Path, runID string, id m.TestID) m.Path {
	class := id.Class()
	if class == "" {
		class = "_"
	}

	return m.Path(filepath.Join(string(root), runID, class, id.Method()))
}

type logEntry struct {
	Timestamp int64  `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

func (c *localArtifactCollector) Collect(ctx context.Context, runID string, record m.TestRecord, handle DriverHandle) ([]m.Artifact, error) {
	if handle == nil {
		return nil, nil
	}

	dir := ArtifactDir(c.root, runID, record.ID)
	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	var (
		artifacts []m.Artifact
		result    *multierror.Error
	)

	if path, err := c.pageSource(ctx, dir, handle); err != nil {
		result = multierror.Append(result, err)
	} else {
		artifacts = append(artifacts, m.Artifact{Kind: m.ArtifactPageSource, Path: path})
	}

	if logType := systemLogType(handle.Platform()); logType != "" {
		if path, err := c.systemLog(ctx, dir, handle, logType); err != nil {
			result = multierror.Append(result, err)
		} else {
			artifacts = append(artifacts, m.Artifact{Kind: m.ArtifactSystemLog, Path: path})
		}
	}

	if record.Status == m.Failed || record.Status == m.Errored {
		if path, err := c.screenshot(ctx, dir, handle); err != nil {
			result = multierror.Append(result, err)
		} else {
			artifacts = append(artifacts, m.Artifact{Kind: m.ArtifactScreenshot, Path: path})
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		slog.Warn("Artifact collection incomplete", "test", record.ID, "session", handle.SessionID(), "error", err)
		return artifacts, err
	}

	return artifacts, nil
}

func (c *localArtifactCollector) pageSource(ctx context.Context, dir m.Path, handle DriverHandle) (m.Path, error) {
	var source string
	if err := handle.Command(ctx, http.MethodGet, "source", nil, &source); err != nil {
		return "", fmt.Errorf("page source: %w", err)
	}

	return writeArtifact(dir, PageSourceFile, []byte(source))
}

func (c *localArtifactCollector) systemLog(ctx context.Context, dir m.Path, handle DriverHandle, logType string) (m.Path, error) {
	var entries []logEntry
	if err := handle.Command(ctx, http.MethodPost, "se/log", map[string]string{"type": logType}, &entries); err != nil {
		return "", fmt.Errorf("%s: %w", logType, err)
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d %s %s\n", e.Timestamp, e.Level, e.Message)
	}

	return writeArtifact(dir, SystemLogFile, []byte(b.String()))
}

func (c *localArtifactCollector) screenshot(ctx context.Context, dir m.Path, handle DriverHandle) (m.Path, error) {
	var encoded string
	if err := handle.Command(ctx, http.MethodGet, "screenshot", nil, &encoded); err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}

	return writeArtifact(dir, ScreenshotFile, data)
}

func systemLogType(p m.Platform) string {
	switch {
	case p.IsAndroid():
		return "logcat"
	case p.IsIOS():
		return "syslog"
	}

	return ""
}

func writeArtifact(dir m.Path, name string, data []byte) (m.Path, error) {
	path := filepath.Join(string(dir), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	return m.Path(path), nil
}
