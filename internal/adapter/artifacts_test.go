package adapter_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qlty.dev/pkg/qlty/internal/adapter"
	"qlty.dev/pkg/qlty/internal/adapter/mocks"
	m "qlty.dev/pkg/qlty/internal/model"
)

func fill[T any](value T) func(mock.Arguments) {
	return func(args mock.Arguments) {
		*(args.Get(4).(*T)) = value
	}
}

func TestArtifactDir(t *testing.T) {
	assert.Equal(t, m.Path(filepath.Join("out", "run-1", "LoginTest", "testValid")),
		adapter.ArtifactDir("out", "run-1", m.NewTestID("LoginTest", "testValid")))
	assert.Equal(t, m.Path(filepath.Join("out", "run-1", "_", "standalone")),
		adapter.ArtifactDir("out", "run-1", m.TestID("standalone")))
}

func TestLocalArtifactCollector_FailedAndroidTest(t *testing.T) {
	root := m.Path(t.TempDir())
	ctx := context.Background()

	handle := mocks.NewMockDriverHandle(t)
	handle.On("Platform").Return(m.PlatformAndroid)
	handle.On("Command", mock.Anything, http.MethodGet, "source", nil, mock.Anything).
		Run(fill("<hierarchy/>")).Return(nil)
	handle.On("Command", mock.Anything, http.MethodPost, "se/log", map[string]string{"type": "logcat"}, mock.Anything).
		Return(nil)
	handle.On("Command", mock.Anything, http.MethodGet, "screenshot", nil, mock.Anything).
		Run(fill(base64.StdEncoding.EncodeToString([]byte("png")))).Return(nil)

	record := m.TestRecord{ID: m.NewTestID("LoginTest", "testValid"), Status: m.Failed}

	artifacts, err := adapter.NewLocalArtifactCollector(root).Collect(ctx, "run-1", record, handle)
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	kinds := make([]m.ArtifactKind, 0, len(artifacts))
	for _, a := range artifacts {
		kinds = append(kinds, a.Kind)
	}

	assert.Equal(t, []m.ArtifactKind{m.ArtifactPageSource, m.ArtifactSystemLog, m.ArtifactScreenshot}, kinds)

	source, err := os.ReadFile(string(artifacts[0].Path))
	require.NoError(t, err)
	assert.Equal(t, "<hierarchy/>", string(source))

	image, err := os.ReadFile(string(artifacts[2].Path))
	require.NoError(t, err)
	assert.Equal(t, "png", string(image))
}

func TestLocalArtifactCollector_PassedBrowserTest(t *testing.T) {
	root := m.Path(t.TempDir())

	handle := mocks.NewMockDriverHandle(t)
	handle.On("Platform").Return(m.PlatformChrome)
	handle.On("Command", mock.Anything, http.MethodGet, "source", nil, mock.Anything).
		Run(fill("<html/>")).Return(nil)

	record := m.TestRecord{ID: m.NewTestID("SearchTest", "testQuery"), Status: m.Passed}

	artifacts, err := adapter.NewLocalArtifactCollector(root).Collect(context.Background(), "run-1", record, handle)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, m.ArtifactPageSource, artifacts[0].Kind)
	assert.Equal(t, filepath.Join(string(root), "run-1", "SearchTest", "testQuery", adapter.PageSourceFile), string(artifacts[0].Path))
}

func TestLocalArtifactCollector_PartialFailure(t *testing.T) {
	root := m.Path(t.TempDir())

	handle := mocks.NewMockDriverHandle(t)
	handle.On("Platform").Return(m.PlatformIOS)
	handle.On("SessionID").Return("s-1").Maybe()
	handle.On("Command", mock.Anything, http.MethodGet, "source", nil, mock.Anything).
		Return(errors.New("session gone"))
	handle.On("Command", mock.Anything, http.MethodPost, "se/log", map[string]string{"type": "syslog"}, mock.Anything).
		Return(nil)

	record := m.TestRecord{ID: m.NewTestID("CartTest", "testAdd"), Status: m.Passed}

	artifacts, err := adapter.NewLocalArtifactCollector(root).Collect(context.Background(), "run-1", record, handle)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session gone")
	require.Len(t, artifacts, 1)
	assert.Equal(t, m.ArtifactSystemLog, artifacts[0].Kind)
}

func TestLocalArtifactCollector_NoSession(t *testing.T) {
	artifacts, err := adapter.NewLocalArtifactCollector(m.Path(t.TempDir())).
		Collect(context.Background(), "run-1", m.TestRecord{ID: "Api.test"}, nil)
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}
