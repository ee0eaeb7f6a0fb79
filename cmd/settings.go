package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"qlty.dev/pkg/qlty/internal/adapter"
	m "qlty.dev/pkg/qlty/internal/model"
)

const sauceCapabilitiesSuffix = "_saucelabs"

// settings is the validated configuration of one invocation, read once from viper.
type settings struct {
	Output           string
	Capabilities     string
	DriverURL        string
	DriverTimeout    time.Duration
	SessionTimeout   time.Duration
	TestTimeout      time.Duration
	SinkTimeout      time.Duration
	SinkRetries      uint64
	CollectArtifacts bool
	Project          adapter.Project
	Slack            adapter.SlackConfig
	SauceLabs        sauceSettings
	Jira             adapter.JiraConfig
	Jenkins          jenkinsSettings
	MetricsPath      string
}

type sauceSettings struct {
	adapter.SauceLabsConfig
	DriverURL    string
	DashboardURL string
}

type jenkinsSettings struct {
	adapter.JenkinsConfig
	BuildURL   string
	AutoDetect bool
}

func loadSettings() settings {
	project := adapter.Project{
		Name:        viper.GetString(projectNameKey),
		Release:     viper.GetString(projectReleaseKey),
		Environment: viper.GetString(projectEnvironmentKey),
	}
	sinkTimeout := viper.GetDuration(sinkTimeoutKey)

	return settings{
		Output:           viper.GetString(outputFlagName),
		Capabilities:     viper.GetString(capabilitiesFileKey),
		DriverURL:        viper.GetString(driverURLKey),
		DriverTimeout:    viper.GetDuration(driverTimeoutKey),
		SessionTimeout:   viper.GetDuration(sessionTimeoutKey),
		TestTimeout:      viper.GetDuration(testTimeoutKey),
		SinkTimeout:      sinkTimeout,
		SinkRetries:      viper.GetUint64(sinkRetriesKey),
		CollectArtifacts: viper.GetBool(collectArtifactsKey),
		Project:          project,
		Slack: adapter.SlackConfig{
			Token:     viper.GetString(slackTokenKey),
			ChannelID: viper.GetString(slackChannelKey),
			BaseURL:   viper.GetString(slackBaseURLKey),
			Timeout:   sinkTimeout,
			Project:   project,
		},
		SauceLabs: sauceSettings{
			SauceLabsConfig: adapter.SauceLabsConfig{
				Username:  viper.GetString(sauceUsernameKey),
				AccessKey: viper.GetString(sauceAccessKeyKey),
				APIURL:    viper.GetString(sauceAPIURLKey),
				Timeout:   sinkTimeout,
				Project:   project,
			},
			DriverURL:    viper.GetString(sauceDriverURLKey),
			DashboardURL: viper.GetString(sauceDashboardURLKey),
		},
		Jira: adapter.JiraConfig{
			URL:      viper.GetString(jiraURLKey),
			Username: viper.GetString(jiraUsernameKey),
			Token:    viper.GetString(jiraTokenKey),
			Label:    viper.GetString(jiraLabelKey),
			Timeout:  sinkTimeout,
			Project:  project,
		},
		Jenkins: jenkinsSettings{
			JenkinsConfig: adapter.JenkinsConfig{
				URL:         viper.GetString(jenkinsURLKey),
				Username:    viper.GetString(jenkinsUsernameKey),
				Token:       viper.GetString(jenkinsTokenKey),
				Job:         viper.GetString(jenkinsJobKey),
				BuildNumber: viper.GetInt64(jenkinsBuildNumberKey),
				Project:     project,
			},
			AutoDetect: viper.GetBool(jenkinsAutoDetectKey),
		},
		MetricsPath: viper.GetString(metricsPathKey),
	}
}

// applyJenkinsEnv fills missing Jenkins settings from the build environment.
// It reports whether the process runs inside a Jenkins build.
func (s *settings) applyJenkinsEnv(getenv func(string) string) bool {
	env, ok := adapter.DetectJenkins(getenv)
	if !ok {
		return false
	}

	if s.Jenkins.URL == "" {
		s.Jenkins.URL = env.URL
	}

	if s.Jenkins.Job == "" {
		s.Jenkins.Job = env.Job
	}

	if s.Jenkins.BuildNumber == 0 {
		s.Jenkins.BuildNumber = env.BuildNumber
	}

	s.Jenkins.BuildURL = env.BuildURL

	return true
}

// validate reports every missing setting of the enabled integrations at once.
func (s settings) validate(opts runOptions) error {
	var result *multierror.Error

	need := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			result = multierror.Append(result, fmt.Errorf("%s is required", key))
		}
	}

	if s.Output == "" {
		result = multierror.Append(result, errors.New("output directory is required"))
	}

	if opts.saucelabs {
		need(s.SauceLabs.Username, sauceUsernameKey)
		need(s.SauceLabs.AccessKey, sauceAccessKeyKey)
		need(s.SauceLabs.DriverURL, sauceDriverURLKey)
	} else {
		need(s.DriverURL, driverURLKey)
	}

	if opts.slack {
		need(s.Slack.Token, slackTokenKey)
		need(s.Slack.ChannelID, slackChannelKey)
	}

	if opts.jira {
		need(s.Jira.URL, jiraURLKey)
		need(s.Jira.Username, jiraUsernameKey)
		need(s.Jira.Token, jiraTokenKey)
	}

	if opts.jenkins {
		need(s.Jenkins.URL, jenkinsURLKey)
		need(s.Jenkins.Job, jenkinsJobKey)

		if s.Jenkins.BuildNumber <= 0 {
			result = multierror.Append(result, fmt.Errorf("%s must be positive", jenkinsBuildNumberKey))
		}
	}

	if opts.metrics {
		need(s.MetricsPath, metricsPathKey)
	}

	if result != nil {
		result.ErrorFormat = listErrors
	}

	return result.ErrorOrNil()
}

func listErrors(errs []error) string {
	lines := make([]string, 0, len(errs)+1)
	lines = append(lines, fmt.Sprintf("invalid configuration (%d problem(s)):", len(errs)))

	for _, err := range errs {
		lines = append(lines, "  - "+err.Error())
	}

	return strings.Join(lines, "\n")
}

// loadCapabilities reads the per-platform capability sets from a YAML file keyed
// by platform. With sauce set, <platform>_saucelabs entries win when present.
// Viper lowercases nested keys, so the file is decoded with yaml directly.
func loadCapabilities(path string, sauce bool) (map[m.Platform]adapter.Capabilities, error) {
	raw := defaultCapabilities()

	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("Capabilities file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("read capabilities: %w", err)
	default:
		raw = map[string]interface{}{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse capabilities %s: %w", path, err)
		}
	}

	out := make(map[m.Platform]adapter.Capabilities)

	for _, p := range m.Platforms() {
		value, ok := raw[string(p)]
		if sauced, found := raw[string(p)+sauceCapabilitiesSuffix]; sauce && found {
			value, ok = sauced, true
		}

		if !ok {
			continue
		}

		caps, isMap := normalize(value).(map[string]interface{})
		if !isMap {
			return nil, fmt.Errorf("capabilities for %s must be a mapping", p)
		}

		out[p] = adapter.Capabilities(caps)
	}

	return out, nil
}

// normalize turns the map[interface{}]interface{} values yaml produces for
// non-string keys into JSON-encodable maps.
func normalize(v interface{}) interface{} {
	switch value := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, nested := range value {
			out[k] = normalize(nested)
		}

		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, nested := range value {
			out[fmt.Sprint(k)] = normalize(nested)
		}

		return out
	case []interface{}:
		out := make([]interface{}, len(value))
		for i, nested := range value {
			out[i] = normalize(nested)
		}

		return out
	}

	return v
}
