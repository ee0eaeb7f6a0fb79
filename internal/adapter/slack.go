package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	m "qlty.dev/pkg/qlty/internal/model"
)

// DefaultSlackURL is the Slack Web API base URL.
const DefaultSlackURL = "https://slack.com/api"

// maxFailureLines caps the failure list in a chat message.
const maxFailureLines = 20

// SlackConfig configures the chat notifier.
type SlackConfig struct {
	Token        string
	ChannelID    string
	BaseURL      string
	ReportOnFail bool
	Timeout      time.Duration
	Project      Project
	// Optional links rendered as buttons.
	DashboardURL string
	BuildURL     string
}

type slackNotifier struct {
	cfg    SlackConfig
	client *HTTPClient
}

// NewSlackNotifier creates the chat sink posting Block Kit messages through chat.postMessage.
func NewSlackNotifier(cfg SlackConfig) Sink {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSlackURL
	}

	return &slackNotifier{
		cfg: cfg,
		client: NewHTTPClient(
			WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
			WithBearerToken(cfg.Token),
			WithTimeout(cfg.Timeout),
		),
	}
}

func (s *slackNotifier) Kind() m.SinkKind {
	return m.SinkChat
}

type slackMessage struct {
	Channel   string       `json:"channel"`
	Text      string       `json:"text"`
	IconEmoji string       `json:"icon_emoji,omitempty"`
	Blocks    []slackBlock `json:"blocks"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type     string     `json:"type"`
	Text     *slackText `json:"text,omitempty"`
	URL      string     `json:"url,omitempty"`
	ActionID string     `json:"action_id,omitempty"`
}

type slackBlock struct {
	Type     string        `json:"type"`
	Text     *slackText    `json:"text,omitempty"`
	Fields   []slackText   `json:"fields,omitempty"`
	Elements []interface{} `json:"elements,omitempty"`
}

// slackRateLimited is the only Web API error code worth retrying.
const slackRateLimited = "ratelimited"

// SlackError is an ok:false reply of the Slack Web API.
type SlackError struct {
	Method string
	Code   string
}

func (e *SlackError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Code)
}

// Temporary reports whether the call may succeed later.
func (e *SlackError) Temporary() bool {
	return e.Code == slackRateLimited
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (s *slackNotifier) Publish(ctx context.Context, summary m.RunSummary, records []m.TestRecord) error {
	if summary.Totals.HasFailures() && !s.cfg.ReportOnFail {
		slog.Warn("Failed test results detected, skipping slack notification", "run", summary.Run.ID)
		return skipped("run has failures and report-on-fail is off")
	}

	msg := s.buildMessage(summary, records)

	var resp slackResponse
	if _, err := s.client.Post(ctx, "/chat.postMessage", WithBody(msg), WithResult(&resp)); err != nil {
		return err
	}

	if !resp.OK {
		return &SlackError{Method: "chat.postMessage", Code: resp.Error}
	}

	slog.Info("Posted run summary to slack", "channel", s.cfg.ChannelID, "run", summary.Run.ID)

	return nil
}

func (s *slackNotifier) buildMessage(summary m.RunSummary, records []m.TestRecord) slackMessage {
	totals := summary.Totals
	label := BuildLabel(summary.Run, s.cfg.Project)
	spaces := "   "

	counts := fmt.Sprintf(":sigma:%s*%d*%s:white_check_mark:%s*%d* (%.0f%%)",
		spaces, totals.Total, spaces, spaces, totals.Passed, totals.PassRate())
	if totals.HasFailures() {
		counts += fmt.Sprintf("%s:x:%s*%d* (%.0f%%)", spaces, spaces, totals.Failed+totals.Errored, totals.FailRate())
	}

	if totals.Skipped > 0 {
		counts += fmt.Sprintf("%s:fast_forward:%s*%d*", spaces, spaces, totals.Skipped)
	}

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "Test Summary - " + label}},
		{Type: "context", Elements: []interface{}{
			slackText{Type: "mrkdwn", Text: "Platform:  " + platformEmoji(summary.Run.Platform)},
			slackText{Type: "mrkdwn", Text: "Release:  " + s.cfg.Project.Release},
			slackText{Type: "mrkdwn", Text: "Environment:  " + s.cfg.Project.Environment},
			slackText{Type: "mrkdwn", Text: "Run time:  " + m.ReadableDuration(summary.Run.Duration())},
		}},
		{Type: "divider"},
		{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: counts}}},
	}

	if failures := failureLines(records); failures != "" {
		blocks = append(blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: failures}})
	}

	if actions := s.buttons(); len(actions) > 0 {
		blocks = append(blocks, slackBlock{Type: "actions", Elements: actions})
	}

	blocks = append(blocks,
		slackBlock{Type: "divider"},
		slackBlock{Type: "context", Elements: []interface{}{
			slackText{Type: "mrkdwn", Text: "Powered by *qlty* test automation"},
		}},
	)

	return slackMessage{
		Channel:   s.cfg.ChannelID,
		Text:      fmt.Sprintf("%s: %d/%d passed", label, totals.Passed, totals.Total),
		IconEmoji: ":robot_face:",
		Blocks:    blocks,
	}
}

func (s *slackNotifier) buttons() []interface{} {
	var actions []interface{}

	if s.cfg.DashboardURL != "" {
		actions = append(actions, slackElement{
			Type:     "button",
			Text:     &slackText{Type: "plain_text", Text: "Saucelabs"},
			URL:      s.cfg.DashboardURL,
			ActionID: "qlty-saucelabs",
		})
	}

	if s.cfg.BuildURL != "" {
		actions = append(actions, slackElement{
			Type:     "button",
			Text:     &slackText{Type: "plain_text", Text: "Jenkins"},
			URL:      s.cfg.BuildURL,
			ActionID: "qlty-jenkins",
		})
	}

	return actions
}

func failureLines(records []m.TestRecord) string {
	var (
		b     strings.Builder
		shown int
		total int
	)

	for _, r := range records {
		if r.Status != m.Failed && r.Status != m.Errored {
			continue
		}

		total++
		if shown == maxFailureLines {
			continue
		}

		shown++

		fmt.Fprintf(&b, "• `%s` %s", r.ID, r.Status)
		if r.Message != "" {
			fmt.Fprintf(&b, ": %s", firstLine(r.Message))
		}

		b.WriteString("\n")
	}

	if total > shown {
		fmt.Fprintf(&b, "…and %d more\n", total-shown)
	}

	return strings.TrimRight(b.String(), "\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}

	return s
}

func platformEmoji(p m.Platform) string {
	switch p {
	case m.PlatformAndroid:
		return ":android:"
	case m.PlatformAndroidWeb:
		return ":android::chrome:"
	case m.PlatformIOS:
		return ":apple:"
	case m.PlatformIOSWeb:
		return ":apple::safari:"
	case m.PlatformChrome:
		return ":chrome:"
	case m.PlatformFirefox:
		return ":firefox:"
	}

	return string(p)
}
