package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func chdir(t *testing.T, dir string) {
	t.Helper()

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(originalWD)) })
}

func executeInit(t *testing.T) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	cmd.AddCommand(newInitCmd())

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init"})

	err := cmd.Execute()

	return out.String(), err
}

func TestInitCmd_WritesConfigFiles(t *testing.T) {
	tempDir := t.TempDir()
	chdir(t, tempDir)

	output, err := executeInit(t)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote")

	contents, err := os.ReadFile(filepath.Join(tempDir, configFileName))
	require.NoError(t, err)
	assert.Contains(t, string(contents), "driver_timeout")

	capsData, err := os.ReadFile(filepath.Join(tempDir, defaultCapabilitiesFile))
	require.NoError(t, err)

	var caps map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal(capsData, &caps))
	assert.Equal(t, "UiAutomator2", caps["android"]["appium:automationName"])
}

func TestInitCmd_ErrorsWhenFileExists(t *testing.T) {
	tempDir := t.TempDir()
	chdir(t, tempDir)

	targetPath := filepath.Join(tempDir, configFileName)
	require.NoError(t, os.WriteFile(targetPath, []byte("existing: true\n"), 0o644))

	_, err := executeInit(t)
	require.Error(t, err)
}

func TestWriteCapabilities_KeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caps.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chrome: {}\n"), 0o600))

	require.NoError(t, writeCapabilities(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "chrome: {}\n", string(data))
}
