package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/hashicorp/go-multierror"

	m "qlty.dev/pkg/qlty/internal/model"
)

// DefaultJiraLabel marks issues covered by automation.
const DefaultJiraLabel = "qlty-automated"

// JiraConfig configures the issue tracker updater.
type JiraConfig struct {
	URL      string
	Username string
	Token    string
	Label    string
	Timeout  time.Duration
	Project  Project
}

type jiraUpdater struct {
	cfg    JiraConfig
	client *jira.Client

	mu       sync.Mutex
	progress map[string]*jiraProgress
}

// jiraProgress holds the issues already updated for one run, so a retried
// Publish only touches the issues that failed.
type jiraProgress struct {
	commented map[string]bool
	labelled  map[string]bool
}

// NewJiraUpdater creates the issue-tracker sink. Each distinct case ID is
// treated as an issue key: it receives a run comment and the automation label.
func NewJiraUpdater(cfg JiraConfig) (Sink, error) {
	if cfg.Label == "" {
		cfg.Label = DefaultJiraLabel
	}

	transport := jira.BasicAuthTransport{
		Username: cfg.Username,
		Password: cfg.Token,
	}

	httpClient := transport.Client()
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	client, err := jira.NewClient(httpClient, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("create jira client: %w", err)
	}

	return &jiraUpdater{cfg: cfg, client: client, progress: make(map[string]*jiraProgress)}, nil
}

func (j *jiraUpdater) Kind() m.SinkKind {
	return m.SinkIssueTracker
}

func (j *jiraUpdater) Publish(ctx context.Context, summary m.RunSummary, records []m.TestRecord) error {
	keys, byCase := groupByCase(records)
	if len(keys) == 0 {
		return skipped("no records reference a case id")
	}

	var result *multierror.Error

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return multierror.Append(result, err).ErrorOrNil()
		}

		if err := j.updateIssue(ctx, summary, key, byCase[key]); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	slog.Info("Updated jira issues", "run", summary.Run.ID, "issues", len(keys))

	return nil
}

// updateIssue comments on and labels one issue, skipping the steps an
// earlier attempt for the same run already completed.
func (j *jiraUpdater) updateIssue(ctx context.Context, summary m.RunSummary, key string, records []m.TestRecord) error {
	if !j.done(summary.Run.ID, key, false) {
		comment := &jira.Comment{Body: j.commentBody(summary, records)}
		if _, resp, err := j.client.Issue.AddCommentWithContext(ctx, key, comment); err != nil {
			err = fmt.Errorf("comment %s: %w", key, jiraError(resp, err))
			slog.Error("Failed to comment on jira issue", "issue", key, "error", err.Error())

			return err
		}

		j.markDone(summary.Run.ID, key, false)
	}

	if j.done(summary.Run.ID, key, true) {
		return nil
	}

	labels := map[string]interface{}{
		"update": map[string]interface{}{
			"labels": []map[string]interface{}{{"add": j.cfg.Label}},
		},
	}
	if resp, err := j.client.Issue.UpdateIssueWithContext(ctx, key, labels); err != nil {
		err = fmt.Errorf("label %s: %w", key, jiraError(resp, err))
		slog.Error("Failed to label jira issue", "issue", key, "error", err.Error())

		return err
	}

	j.markDone(summary.Run.ID, key, true)

	return nil
}

func (j *jiraUpdater) runProgress(runID string) *jiraProgress {
	p, ok := j.progress[runID]
	if !ok {
		p = &jiraProgress{commented: map[string]bool{}, labelled: map[string]bool{}}
		j.progress[runID] = p
	}

	return p
}

func (j *jiraUpdater) done(runID, key string, label bool) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	p := j.runProgress(runID)
	if label {
		return p.labelled[key]
	}

	return p.commented[key]
}

func (j *jiraUpdater) markDone(runID, key string, label bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	p := j.runProgress(runID)
	if label {
		p.labelled[key] = true
		return
	}

	p.commented[key] = true
}

func (j *jiraUpdater) commentBody(summary m.RunSummary, records []m.TestRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Automated run* %s\n", BuildLabel(summary.Run, j.cfg.Project))
	fmt.Fprintf(&b, "Platform: %s | Environment: %s | Finished: %s\n",
		summary.Run.Platform, j.cfg.Project.Environment, summary.Run.EndTime.UTC().Format(time.RFC3339))

	for _, r := range records {
		fmt.Fprintf(&b, "* %s: *%s* (%s)", r.ID, strings.ToUpper(r.Status.String()), m.ReadableDuration(r.Duration))
		if r.Message != "" {
			fmt.Fprintf(&b, " - %s", firstLine(r.Message))
		}

		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// groupByCase returns the distinct case IDs in first-seen order and the records referencing each.
func groupByCase(records []m.TestRecord) ([]string, map[string][]m.TestRecord) {
	var keys []string

	byCase := make(map[string][]m.TestRecord)

	for _, r := range records {
		for _, id := range r.CaseIDs {
			if _, ok := byCase[id]; !ok {
				keys = append(keys, id)
			}

			byCase[id] = append(byCase[id], r)
		}
	}

	return keys, byCase
}

// jiraError keeps the status code so the dispatcher can tell transient failures apart.
func jiraError(resp *jira.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return err
	}

	httpErr := &HTTPError{
		Code:   resp.StatusCode,
		Status: http.StatusText(resp.StatusCode),
		Detail: err.Error(),
	}
	if resp.Request != nil {
		httpErr.Method = resp.Request.Method
		httpErr.URL = resp.Request.URL.String()
	}

	return httpErr
}
