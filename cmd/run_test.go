package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qlty.dev/pkg/qlty/internal/domain"
	domainmocks "qlty.dev/pkg/qlty/internal/domain/mocks"
	m "qlty.dev/pkg/qlty/internal/model"
)

// setConfig overrides a viper key for the duration of the test.
func setConfig(t *testing.T, key string, value interface{}) {
	t.Helper()

	previous := viper.Get(key)
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, previous) })
}

// withEnv replaces the process environment seen by the run command.
func withEnv(t *testing.T, env map[string]string) {
	t.Helper()

	original := getenv
	getenv = func(key string) string { return env[key] }
	t.Cleanup(func() { getenv = original })
}

type capturedRun struct {
	cfg  settings
	opts runOptions
}

func withOrchestrator(t *testing.T, orchestrator domain.Orchestrator) *capturedRun {
	t.Helper()

	captured := &capturedRun{}
	original := newOrchestrator
	newOrchestrator = func(_ *cobra.Command, cfg settings, opts runOptions) (domain.Orchestrator, error) {
		captured.cfg = cfg
		captured.opts = opts

		return orchestrator, nil
	}
	t.Cleanup(func() { newOrchestrator = original })

	return captured
}

func newTestRunCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := newRootCmd()
	cmd.AddCommand(newRunCmd())

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	return cmd, out, errOut
}

func passedResult(ids ...m.TestID) domain.RunResult {
	result := domain.RunResult{Run: m.TestRun{ID: "run-1", Platform: m.PlatformAndroid, Finalized: true}}
	for _, id := range ids {
		result.Records = append(result.Records, m.TestRecord{ID: id, Status: m.Passed})
	}

	return result
}

func TestRunCmd_PassesArgs(t *testing.T) {
	withEnv(t, nil)

	orchestrator := domainmocks.NewMockOrchestrator(t)
	captured := withOrchestrator(t, orchestrator)

	orchestrator.On("Run", mock.Anything, domain.RunArgs{
		Platform: m.PlatformAndroid,
		Filter:   "LoginTest.testValid",
		Workers:  3,
	}).Return(passedResult("LoginTest.testValid"), nil)

	cmd, _, _ := newTestRunCmd()
	cmd.SetArgs([]string{"run", "-p", "Android", "-t", "LoginTest.testValid", "--parallel", "3", "-d", "-f"})

	require.NoError(t, cmd.Execute())
	assert.True(t, captured.opts.managed)
	assert.True(t, captured.opts.reportOnFail)
	assert.False(t, captured.opts.slack)
	assert.False(t, captured.opts.jenkins)
}

func TestRunCmd_PlatformIsRequired(t *testing.T) {
	withEnv(t, nil)
	withOrchestrator(t, domainmocks.NewMockOrchestrator(t))

	cmd, _, _ := newTestRunCmd()
	cmd.SetArgs([]string{"run"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitRunFault, exitCode(err))
}

func TestRunCmd_UnknownPlatform(t *testing.T) {
	withEnv(t, nil)
	withOrchestrator(t, domainmocks.NewMockOrchestrator(t))

	cmd, _, _ := newTestRunCmd()
	cmd.SetArgs([]string{"run", "-p", "windows"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitRunFault, exitCode(err))
	assert.Contains(t, err.Error(), "windows")
}

func TestRunCmd_InvalidIntegrationSettings(t *testing.T) {
	withEnv(t, nil)
	withOrchestrator(t, domainmocks.NewMockOrchestrator(t))
	setConfig(t, slackTokenKey, "")
	setConfig(t, slackChannelKey, "")
	setConfig(t, jiraURLKey, "")

	cmd, _, _ := newTestRunCmd()
	cmd.SetArgs([]string{"run", "-p", "ios", "-s", "-u"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitRunFault, exitCode(err))
	assert.Contains(t, err.Error(), slackTokenKey)
	assert.Contains(t, err.Error(), slackChannelKey)
	assert.Contains(t, err.Error(), jiraURLKey)
}

func TestRunCmd_JenkinsAutoDetect(t *testing.T) {
	withEnv(t, map[string]string{
		"JENKINS_URL":  "https://ci.example.com/",
		"JOB_NAME":     "mobile/e2e",
		"BUILD_NUMBER": "42",
		"BUILD_URL":    "https://ci.example.com/job/mobile/42/",
	})

	orchestrator := domainmocks.NewMockOrchestrator(t)
	captured := withOrchestrator(t, orchestrator)
	orchestrator.On("Run", mock.Anything, mock.Anything).Return(passedResult("A.one"), nil)

	cmd, _, _ := newTestRunCmd()
	cmd.SetArgs([]string{"run", "-p", "chrome"})

	require.NoError(t, cmd.Execute())
	assert.True(t, captured.opts.jenkins)
	assert.Equal(t, "mobile/e2e", captured.cfg.Jenkins.Job)
	assert.Equal(t, int64(42), captured.cfg.Jenkins.BuildNumber)
	assert.Equal(t, "https://ci.example.com/job/mobile/42/", captured.cfg.Jenkins.BuildURL)
}

func TestRunCmd_JenkinsAutoDetectDisabled(t *testing.T) {
	withEnv(t, map[string]string{"JENKINS_URL": "https://ci.example.com/", "JOB_NAME": "e2e", "BUILD_NUMBER": "1"})
	setConfig(t, jenkinsAutoDetectKey, false)

	orchestrator := domainmocks.NewMockOrchestrator(t)
	captured := withOrchestrator(t, orchestrator)
	orchestrator.On("Run", mock.Anything, mock.Anything).Return(passedResult("A.one"), nil)

	cmd, _, _ := newTestRunCmd()
	cmd.SetArgs([]string{"run", "-p", "chrome"})

	require.NoError(t, cmd.Execute())
	assert.False(t, captured.opts.jenkins)
}

func TestRunCmd_ExitCodes(t *testing.T) {
	sinkFailure := m.DispatchReport{Outcomes: []m.SinkOutcome{
		{Sink: m.SinkChat, State: m.SinkFailed, Reason: "channel_not_found", Attempts: 1},
	}}

	tests := []struct {
		name       string
		args       []string
		result     domain.RunResult
		err        error
		wantCode   int
		wantStderr string
	}{
		{
			name:     "all passed",
			result:   passedResult("A.one", "A.two"),
			wantCode: ExitSuccess,
		},
		{
			name: "test failure",
			result: domain.RunResult{Records: []m.TestRecord{
				{ID: "A.one", Status: m.Passed},
				{ID: "A.two", Status: m.Failed},
			}},
			wantCode: ExitTestFailure,
		},
		{
			name:     "errored test",
			result:   domain.RunResult{Records: []m.TestRecord{{ID: "A.one", Status: m.Errored}}},
			wantCode: ExitTestFailure,
		},
		{
			name:       "sink failure is a warning",
			result:     domain.RunResult{Records: []m.TestRecord{{ID: "A.one", Status: m.Passed}}, Dispatch: sinkFailure},
			wantCode:   ExitSuccess,
			wantStderr: "Warning: chat sink failed: channel_not_found",
		},
		{
			name:       "strict sinks",
			args:       []string{"--strict-sinks"},
			result:     domain.RunResult{Records: []m.TestRecord{{ID: "A.one", Status: m.Passed}}, Dispatch: sinkFailure},
			wantCode:   ExitSinkFailure,
			wantStderr: "Warning: chat sink failed",
		},
		{
			name:     "test failures win over strict sinks",
			args:     []string{"--strict-sinks"},
			result:   domain.RunResult{Records: []m.TestRecord{{ID: "A.one", Status: m.Failed}}, Dispatch: sinkFailure},
			wantCode: ExitTestFailure,
		},
		{
			name: "aborted",
			result: domain.RunResult{Records: []m.TestRecord{
				{ID: "A.one", Status: m.Passed},
				{ID: "A.two", Status: m.Skipped, Message: domain.RunAbortedMessage},
			}},
			err:      domain.ErrRunAborted,
			wantCode: ExitRunFault,
		},
		{
			name:     "test not found",
			err:      domain.ErrTestNotFound,
			wantCode: ExitRunFault,
		},
		{
			name:     "driver unavailable",
			err:      domain.ErrDriverUnavailable,
			wantCode: ExitRunFault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, nil)

			orchestrator := domainmocks.NewMockOrchestrator(t)
			withOrchestrator(t, orchestrator)
			orchestrator.On("Run", mock.Anything, mock.Anything).Return(tt.result, tt.err)

			cmd, _, errOut := newTestRunCmd()
			cmd.SetArgs(append([]string{"run", "-p", "android"}, tt.args...))

			err := cmd.Execute()
			assert.Equal(t, tt.wantCode, exitCode(err))

			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}

			if tt.wantStderr != "" {
				assert.Contains(t, errOut.String(), tt.wantStderr)
			}
		})
	}
}

func TestRunCmd_AbortMessage(t *testing.T) {
	result := domain.RunResult{Records: []m.TestRecord{
		{ID: "A.one", Status: m.Passed},
		{ID: "A.two", Status: m.Skipped},
		{ID: "A.three", Status: m.Skipped},
	}}

	err := runOutcome(&cobra.Command{}, result, domain.ErrRunAborted, false)
	require.ErrorIs(t, err, domain.ErrRunAborted)
	assert.EqualError(t, err, "run aborted after 1 of 3 test(s)")
}

func TestRunCmd_SignalContextIsCancellable(t *testing.T) {
	withEnv(t, nil)

	orchestrator := domainmocks.NewMockOrchestrator(t)
	withOrchestrator(t, orchestrator)
	orchestrator.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Done() != nil
	}), mock.Anything).Return(passedResult("A.one"), nil)

	cmd, _, _ := newTestRunCmd()
	cmd.SetArgs([]string{"run", "-p", "firefox"})

	require.NoError(t, cmd.Execute())
}

func TestRunCmd_OrchestratorBuildFails(t *testing.T) {
	withEnv(t, nil)

	original := newOrchestrator
	newOrchestrator = func(*cobra.Command, settings, runOptions) (domain.Orchestrator, error) {
		return nil, errors.New("bad capabilities")
	}
	t.Cleanup(func() { newOrchestrator = original })

	cmd, _, _ := newTestRunCmd()
	cmd.SetArgs([]string{"run", "-p", "ios"})

	err := cmd.Execute()
	require.EqualError(t, err, "bad capabilities")
	assert.Equal(t, ExitRunFault, exitCode(err))
}

func TestBuildSinks(t *testing.T) {
	cfg := loadSettings()
	cfg.Jira.URL = "https://jira.example.com"

	sinks, err := buildSinks(cfg, runOptions{slack: true, saucelabs: true, jira: true, jenkins: true, metrics: true})
	require.NoError(t, err)

	kinds := make([]m.SinkKind, 0, len(sinks))
	for _, s := range sinks {
		kinds = append(kinds, s.Kind())
	}

	assert.Equal(t, []m.SinkKind{m.SinkChat, m.SinkCloudRun, m.SinkIssueTracker, m.SinkBuild, m.SinkMetrics}, kinds)

	none, err := buildSinks(cfg, runOptions{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBuildOrchestrator(t *testing.T) {
	cfg := loadSettings()
	cfg.Output = t.TempDir()

	orchestrator, err := buildOrchestrator(&cobra.Command{}, cfg, runOptions{saucelabs: true})
	require.NoError(t, err)
	assert.NotNil(t, orchestrator)
}

func TestBuildName(t *testing.T) {
	var cfg settings
	assert.Equal(t, "LOCAL", buildName(cfg))

	cfg.Jenkins.BuildNumber = 7
	assert.Equal(t, "#7", buildName(cfg))
}
