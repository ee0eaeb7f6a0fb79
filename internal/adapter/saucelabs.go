package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	m "qlty.dev/pkg/qlty/internal/model"
)

// Sauce Labs defaults.
const (
	DefaultSauceLabsAPIURL       = "https://api.us-west-1.saucelabs.com"
	DefaultSauceLabsDashboardURL = "https://app.saucelabs.com/dashboard/tests"
)

// SauceLabsConfig configures the cloud run linker.
type SauceLabsConfig struct {
	Username  string
	AccessKey string
	APIURL    string
	Timeout   time.Duration
	Project   Project
}

// CapabilityDecorator adjusts the capabilities used to open a session for one test.
type CapabilityDecorator func(run m.TestRun, id m.TestID, caps Capabilities) Capabilities

type sauceLabsLinker struct {
	cfg    SauceLabsConfig
	client *HTTPClient
}

// NewSauceLabsLinker creates the cloud-run sink that marks each remote job passed or failed.
func NewSauceLabsLinker(cfg SauceLabsConfig) Sink {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultSauceLabsAPIURL
	}

	return &sauceLabsLinker{
		cfg: cfg,
		client: NewHTTPClient(
			WithBaseURL(strings.TrimRight(cfg.APIURL, "/")),
			WithBasicAuth(cfg.Username, cfg.AccessKey),
			WithTimeout(cfg.Timeout),
		),
	}
}

func (s *sauceLabsLinker) Kind() m.SinkKind {
	return m.SinkCloudRun
}

type sauceJobUpdate struct {
	Name   string   `json:"name"`
	Build  string   `json:"build,omitempty"`
	Passed bool     `json:"passed"`
	Tags   []string `json:"tags,omitempty"`
}

func (s *sauceLabsLinker) Publish(ctx context.Context, summary m.RunSummary, records []m.TestRecord) error {
	var (
		result  *multierror.Error
		updated int
	)

	for _, r := range records {
		if r.SessionID == "" || !r.Status.IsTerminal() || r.Status == m.Skipped {
			continue
		}

		update := sauceJobUpdate{
			Name:   SauceJobName(summary.Run, s.cfg.Project, r.ID),
			Build:  s.cfg.Project.Release,
			Passed: r.Status == m.Passed,
			Tags:   append([]string{r.Status.String()}, r.CaseIDs...),
		}

		_, err := s.client.Put(ctx, "/rest/v1/{user}/jobs/{job}",
			WithPathParam("user", s.cfg.Username),
			WithPathParam("job", r.SessionID),
			WithBody(update),
		)
		if err != nil {
			slog.Error("Failed to update saucelabs job", "test", r.ID, "session", r.SessionID, "error", err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", r.ID, err))

			continue
		}

		updated++
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	if updated == 0 {
		return skipped("no records with a remote session")
	}

	slog.Info("Updated saucelabs jobs", "run", summary.Run.ID, "jobs", updated)

	return nil
}

// SauceJobName names a remote job after the run and test.
func SauceJobName(run m.TestRun, project Project, id m.TestID) string {
	return fmt.Sprintf("%s - %s", BuildLabel(run, project), id)
}

// SauceCapabilities returns a decorator adding sauce:options to the session capabilities.
func SauceCapabilities(project Project) CapabilityDecorator {
	return func(run m.TestRun, id m.TestID, caps Capabilities) Capabilities {
		out := caps.Clone()

		options, _ := out["sauce:options"].(map[string]interface{})
		if options == nil {
			options = map[string]interface{}{}
		}

		options["name"] = SauceJobName(run, project, id)
		options["build"] = project.Release

		if run.Platform.IsNative() {
			options["phoneOnly"] = true
		}

		out["sauce:options"] = options

		return out
	}
}
