package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/koderover/gojenkins"

	m "qlty.dev/pkg/qlty/internal/model"
)

// JenkinsConfig configures the build linker.
type JenkinsConfig struct {
	URL         string
	Username    string
	Token       string
	Job         string
	BuildNumber int64
	Project     Project
}

// JenkinsEnv is what a Jenkins agent exposes to the build it runs.
type JenkinsEnv struct {
	URL         string
	Job         string
	BuildNumber int64
	BuildURL    string
}

// DetectJenkins reads the standard Jenkins build variables through getenv.
// ok is false when the process is not running inside a Jenkins build.
func DetectJenkins(getenv func(string) string) (JenkinsEnv, bool) {
	env := JenkinsEnv{
		URL:      getenv("JENKINS_URL"),
		Job:      getenv("JOB_NAME"),
		BuildURL: getenv("BUILD_URL"),
	}

	if n, err := strconv.ParseInt(getenv("BUILD_NUMBER"), 10, 64); err == nil {
		env.BuildNumber = n
	}

	return env, env.URL != ""
}

// BuildDescriber sets the description of a Jenkins build.
type BuildDescriber interface {
	DescribeBuild(ctx context.Context, job string, number int64, description string) error
}

type gojenkinsDescriber struct {
	url      string
	username string
	token    string
}

func (g *gojenkinsDescriber) DescribeBuild(ctx context.Context, job string, number int64, description string) error {
	client, err := gojenkins.CreateJenkins(nil, g.url, g.username, g.token).Init(ctx)
	if err != nil {
		return fmt.Errorf("connect to jenkins: %w", err)
	}

	build, err := client.GetBuild(ctx, job, number)
	if err != nil {
		return fmt.Errorf("get build %s#%d: %w", job, number, err)
	}

	if err := build.SetDescription(ctx, description); err != nil {
		return fmt.Errorf("set description of %s#%d: %w", job, number, err)
	}

	return nil
}

type jenkinsLinker struct {
	cfg       JenkinsConfig
	describer BuildDescriber
}

// NewJenkinsLinker creates the build-system sink that annotates the invoking
// build with the run summary.
func NewJenkinsLinker(cfg JenkinsConfig) Sink {
	return NewJenkinsLinkerWith(cfg, &gojenkinsDescriber{
		url:      cfg.URL,
		username: cfg.Username,
		token:    cfg.Token,
	})
}

// NewJenkinsLinkerWith creates the build linker over a custom BuildDescriber.
func NewJenkinsLinkerWith(cfg JenkinsConfig, describer BuildDescriber) Sink {
	return &jenkinsLinker{cfg: cfg, describer: describer}
}

func (j *jenkinsLinker) Kind() m.SinkKind {
	return m.SinkBuild
}

func (j *jenkinsLinker) Publish(ctx context.Context, summary m.RunSummary, _ []m.TestRecord) error {
	if j.cfg.Job == "" || j.cfg.BuildNumber <= 0 {
		return errors.New("jenkins job or build number unknown")
	}

	description := BuildDescription(summary, j.cfg.Project)
	if err := j.describer.DescribeBuild(ctx, j.cfg.Job, j.cfg.BuildNumber, description); err != nil {
		return err
	}

	slog.Info("Annotated jenkins build", "job", j.cfg.Job, "build", j.cfg.BuildNumber)

	return nil
}

// BuildDescription renders the one-line build annotation.
func BuildDescription(summary m.RunSummary, project Project) string {
	t := summary.Totals

	var b strings.Builder

	fmt.Fprintf(&b, "%s on %s: %d/%d passed", BuildLabel(summary.Run, project), summary.Run.Platform, t.Passed, t.Total)

	if t.Failed > 0 || t.Errored > 0 || t.Skipped > 0 {
		fmt.Fprintf(&b, " (%d failed, %d errored, %d skipped)", t.Failed, t.Errored, t.Skipped)
	}

	fmt.Fprintf(&b, " in %s", m.ReadableDuration(summary.Run.Duration()))

	return b.String()
}
