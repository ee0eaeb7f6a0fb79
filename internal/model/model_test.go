package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Platform
		wantErr bool
	}{
		{"android", "android", PlatformAndroid, false},
		{"upper case", "IOS", PlatformIOS, false},
		{"padded", "  chrome ", PlatformChrome, false},
		{"mobile web", "android_web", PlatformAndroidWeb, false},
		{"unknown", "safari", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlatform(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "android_web")

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlatformCategories(t *testing.T) {
	assert.True(t, PlatformIOS.IsNative())
	assert.True(t, PlatformIOS.IsIOS())
	assert.False(t, PlatformIOS.IsMobileWeb())
	assert.True(t, PlatformAndroidWeb.IsMobileWeb())
	assert.True(t, PlatformAndroidWeb.IsAndroid())
	assert.True(t, PlatformFirefox.IsDesktopBrowser())
	assert.False(t, PlatformFirefox.IsNative())
	assert.Len(t, Platforms(), 6)
}

func TestStatus(t *testing.T) {
	assert.False(t, Pending.IsTerminal())

	for _, s := range []Status{Passed, Failed, Errored, Skipped} {
		assert.True(t, s.IsTerminal(), s.String())
	}

	assert.Equal(t, "status(42)", Status(42).String())
}

func TestStatusYAML(t *testing.T) {
	rec := TestRecord{ID: "Login.test_valid", Status: Errored, Duration: 1500 * time.Millisecond}

	out, err := yaml.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), "status: errored")

	var back TestRecord
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, Errored, back.Status)
	assert.Equal(t, rec.Duration, back.Duration)

	var s Status
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}

func TestTestID(t *testing.T) {
	id := NewTestID("checkout.CartTest", "test_add_item")
	assert.Equal(t, TestID("checkout.CartTest.test_add_item"), id)
	assert.Equal(t, "checkout.CartTest", id.Class())
	assert.Equal(t, "test_add_item", id.Method())

	bare := TestID("orphan")
	assert.Equal(t, "", bare.Class())
	assert.Equal(t, "orphan", bare.Method())
}

func TestParseTarget(t *testing.T) {
	got, err := ParseTarget("api")
	require.NoError(t, err)
	assert.Equal(t, TargetAPI, got)

	_, err = ParseTarget("desktop")
	assert.Error(t, err)
}

func TestTestRecordClone(t *testing.T) {
	orig := TestRecord{
		ID:        "A.b",
		CaseIDs:   []string{"C1", "C2"},
		Artifacts: []Artifact{{Kind: ArtifactScreenshot, Path: "a.png"}},
	}

	clone := orig.Clone()
	clone.CaseIDs[0] = "changed"
	clone.Artifacts[0].Path = "b.png"

	assert.Equal(t, "C1", orig.CaseIDs[0])
	assert.Equal(t, Path("a.png"), orig.Artifacts[0].Path)
}

func TestTotals(t *testing.T) {
	records := []TestRecord{
		{Status: Passed},
		{Status: Passed},
		{Status: Failed},
		{Status: Errored},
		{Status: Skipped},
	}

	totals := Totals(records)
	assert.Equal(t, RunTotals{Total: 5, Passed: 2, Failed: 1, Errored: 1, Skipped: 1}, totals)
	assert.True(t, totals.HasFailures())
	assert.InDelta(t, 50.0, totals.PassRate(), 0.001)
	assert.InDelta(t, 50.0, totals.FailRate(), 0.001)

	empty := Totals(nil)
	assert.False(t, empty.HasFailures())
	assert.Zero(t, empty.PassRate())
}

func TestReadableDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{time.Hour + 3*time.Second, "1h 0m 3s"},
		{1499 * time.Millisecond, "1s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ReadableDuration(tt.in))
	}
}

func TestRunName(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 7, 0, 0, time.UTC)
	assert.Equal(t, "[09:07] android - LOCAL | alice", RunName(start, PlatformAndroid, "", "alice"))
	assert.Equal(t, "[09:07] ios - 118", RunName(start, PlatformIOS, "118", ""))
}

func TestTestRunDuration(t *testing.T) {
	start := time.Now()
	run := TestRun{StartTime: start}
	assert.Zero(t, run.Duration())

	run.EndTime = start.Add(3 * time.Second)
	assert.Equal(t, 3*time.Second, run.Duration())
}

func TestDispatchReport(t *testing.T) {
	report := DispatchReport{Outcomes: []SinkOutcome{
		{Sink: SinkChat, State: SinkFailed, Reason: "boom"},
		{Sink: SinkCloudRun, State: SinkSucceeded},
		{Sink: SinkBuild, State: SinkSkipped},
	}}

	assert.True(t, report.Failed())
	require.Len(t, report.Failures(), 1)
	assert.Equal(t, SinkChat, report.Failures()[0].Sink)

	out, ok := report.Outcome(SinkCloudRun)
	require.True(t, ok)
	assert.Equal(t, SinkSucceeded, out.State)

	_, ok = report.Outcome(SinkMetrics)
	assert.False(t, ok)
}
