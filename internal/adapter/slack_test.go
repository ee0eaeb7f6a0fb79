package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "qlty.dev/pkg/qlty/internal/model"
)

func sampleSummary(records []m.TestRecord) m.RunSummary {
	start := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	run := m.TestRun{
		ID:        "1a2b3c4d",
		Name:      m.RunName(start, m.PlatformAndroid, "CI", ""),
		Platform:  m.PlatformAndroid,
		StartTime: start,
		EndTime:   start.Add(2 * time.Minute),
		Finalized: true,
	}

	return m.NewRunSummary(run, records)
}

func TestSlackNotifier_Publish(t *testing.T) {
	var got slackMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, slackResponse{OK: true})
	}))
	defer srv.Close()

	sink := NewSlackNotifier(SlackConfig{
		Token:        "xoxb-1",
		ChannelID:    "C42",
		BaseURL:      srv.URL,
		ReportOnFail: true,
		Project:      Project{Name: "Shop", Release: "24.1", Environment: "staging"},
		BuildURL:     "https://ci/job/1",
	})
	assert.Equal(t, m.SinkChat, sink.Kind())

	records := []m.TestRecord{
		{ID: "LoginTest.testValid", Status: m.Passed},
		{ID: "LoginTest.testInvalid", Status: m.Failed, Message: "banner missing\nstack"},
	}

	require.NoError(t, sink.Publish(context.Background(), sampleSummary(records), records))

	assert.Equal(t, "C42", got.Channel)
	assert.Equal(t, "[1a2b3c] Shop | 24.1: 1/2 passed", got.Text)
	require.NotEmpty(t, got.Blocks)
	assert.Equal(t, "header", got.Blocks[0].Type)
	assert.Equal(t, "Test Summary - [1a2b3c] Shop | 24.1", got.Blocks[0].Text.Text)

	var failures, actions bool

	for _, b := range got.Blocks {
		if b.Type == "section" && b.Text != nil {
			failures = true
			assert.Equal(t, "• `LoginTest.testInvalid` failed: banner missing", b.Text.Text)
		}

		if b.Type == "actions" {
			actions = true
			assert.Len(t, b.Elements, 1)
		}
	}

	assert.True(t, failures)
	assert.True(t, actions)
}

func TestSlackNotifier_SkipsFailedRunsByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	records := []m.TestRecord{{ID: "A.b", Status: m.Errored}}

	err := NewSlackNotifier(SlackConfig{BaseURL: srv.URL}).Publish(context.Background(), sampleSummary(records), records)
	require.ErrorIs(t, err, ErrSinkSkipped)
}

func TestSlackNotifier_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, slackResponse{OK: false, Error: "channel_not_found"})
	}))
	defer srv.Close()

	records := []m.TestRecord{{ID: "A.b", Status: m.Passed}}

	err := NewSlackNotifier(SlackConfig{BaseURL: srv.URL}).Publish(context.Background(), sampleSummary(records), records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
	assert.False(t, errors.Is(err, ErrSinkSkipped))

	var slackErr *SlackError
	require.ErrorAs(t, err, &slackErr)
	assert.Equal(t, "channel_not_found", slackErr.Code)
	assert.False(t, IsTemporary(err))
}

func TestFailureLines(t *testing.T) {
	records := make([]m.TestRecord, 0, maxFailureLines+3)
	for i := 0; i < maxFailureLines+3; i++ {
		records = append(records, m.TestRecord{ID: m.NewTestID("T", fmt.Sprintf("t%d", i)), Status: m.Failed})
	}

	records = append(records, m.TestRecord{ID: "T.ok", Status: m.Passed})

	lines := strings.Split(failureLines(records), "\n")
	require.Len(t, lines, maxFailureLines+1)
	assert.Equal(t, "…and 3 more", lines[maxFailureLines])
	assert.Empty(t, failureLines(records[len(records)-1:]))
}

func TestBuildLabel(t *testing.T) {
	project := Project{Name: "Shop", Release: "24.1"}

	assert.Equal(t, "[abcdef] Shop | 24.1", BuildLabel(m.TestRun{ID: "abcdef123"}, project))
	assert.Equal(t, "[abc] Shop | 24.1", BuildLabel(m.TestRun{ID: "abc"}, project))
}
