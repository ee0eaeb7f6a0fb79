package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"qlty.dev/pkg/qlty/internal/adapter"
	"qlty.dev/pkg/qlty/internal/domain"
	m "qlty.dev/pkg/qlty/internal/model"
)

const strictSinksFlagName = "strict-sinks"

// runOptions are the per-invocation switches of `qlty run`.
type runOptions struct {
	platform     string
	test         string
	slack        bool
	saucelabs    bool
	jira         bool
	jenkins      bool
	metrics      bool
	reportOnFail bool
	managed      bool
	parallel     int
	strictSinks  bool
}

var runFlags runOptions

// getenv is swapped in tests to simulate a Jenkins agent.
var getenv = os.Getenv

// newOrchestrator builds the run pipeline for one invocation.
var newOrchestrator = buildOrchestrator

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the test catalog on a platform",
		Long: `Run every registered test, or a single one with --test, on the selected platform.
Results are reported to the enabled integrations once every test has finished.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := runFlags
			opts.parallel = viper.GetInt(runParallelConfigKey)
			opts.strictSinks = viper.GetBool(strictSinksConfigKey)

			return runTests(cmd, opts)
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringVarP(&runFlags.platform, "platform", "p", "", "target platform: ios, android, android_web, ios_web, chrome or firefox")
	flags.StringVarP(&runFlags.test, "test", "t", "", "run a single test given as Class.Method")
	flags.BoolVarP(&runFlags.slack, "slack", "s", false, "post the run summary to Slack")
	flags.BoolVarP(&runFlags.saucelabs, "saucelabs", "l", false, "run on Sauce Labs and report job results")
	flags.BoolVarP(&runFlags.jira, "update-automation", "u", false, "comment run results on the Jira issues of each case id")
	flags.BoolVarP(&runFlags.jenkins, "jenkins", "j", false, "annotate the Jenkins build with the run summary")
	flags.BoolVarP(&runFlags.metrics, "metrics", "m", false, "write run metrics to a Prometheus textfile")
	flags.BoolVarP(&runFlags.reportOnFail, "report-on-fail", "f", false, "post to Slack even when tests failed")
	flags.BoolVarP(&runFlags.managed, "managed", "d", false, "leave driver session teardown to an external driver manager")

	flags.IntVar(&runFlags.parallel, runParallelFlagName, viper.GetInt(runParallelConfigKey), "number of tests executed at once")
	bindFlagToConfig(flags.Lookup(runParallelFlagName), runParallelConfigKey)

	flags.BoolVar(&runFlags.strictSinks, strictSinksFlagName, viper.GetBool(strictSinksConfigKey), "exit with code 3 when a reporting sink fails")
	bindFlagToConfig(flags.Lookup(strictSinksFlagName), strictSinksConfigKey)

	_ = cmd.MarkFlagRequired("platform")
}

func runTests(cmd *cobra.Command, opts runOptions) error {
	platform, err := m.ParsePlatform(opts.platform)
	if err != nil {
		return withExitCode(ExitRunFault, err)
	}

	cfg := loadSettings()
	if cfg.applyJenkinsEnv(getenv) && cfg.Jenkins.AutoDetect && !opts.jenkins {
		slog.Info("Jenkins build detected, enabling build linker", "job", cfg.Jenkins.Job, "build", cfg.Jenkins.BuildNumber)
		opts.jenkins = true
	}

	if err := cfg.validate(opts); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return withExitCode(ExitRunFault, err)
	}

	orchestrator, err := newOrchestrator(cmd, cfg, opts)
	if err != nil {
		return withExitCode(ExitRunFault, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := orchestrator.Run(ctx, domain.RunArgs{
		Platform: platform,
		Filter:   opts.test,
		Workers:  opts.parallel,
	})

	if opts.saucelabs && cfg.SauceLabs.DashboardURL != "" && err == nil {
		cmd.Printf("Saucelabs results: %s\n Search for test cases with prefix: %s\n",
			cfg.SauceLabs.DashboardURL, adapter.BuildLabel(result.Run, cfg.Project))
	}

	return runOutcome(cmd, result, err, opts.strictSinks)
}

// runOutcome turns the result of a run into the command error carrying its exit code.
func runOutcome(cmd *cobra.Command, result domain.RunResult, err error, strictSinks bool) error {
	if err != nil {
		if errors.Is(err, domain.ErrRunAborted) {
			totals := result.Totals()
			return withExitCode(ExitRunFault, fmt.Errorf("%w after %d of %d test(s)", err, totals.Total-totals.Skipped, totals.Total))
		}

		return withExitCode(ExitRunFault, err)
	}

	failures := result.Dispatch.Failures()
	for _, o := range failures {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s sink failed: %s\n", o.Sink, o.Reason)
	}

	if totals := result.Totals(); totals.HasFailures() {
		return withExitCode(ExitTestFailure, fmt.Errorf("%d test(s) failed, %d errored", totals.Failed, totals.Errored))
	}

	if strictSinks && len(failures) > 0 {
		return withExitCode(ExitSinkFailure, fmt.Errorf("%w: %d sink(s)", domain.ErrSinkPublish, len(failures)))
	}

	return nil
}

func buildOrchestrator(cmd *cobra.Command, cfg settings, opts runOptions) (domain.Orchestrator, error) {
	caps, err := loadCapabilities(cfg.Capabilities, opts.saucelabs)
	if err != nil {
		return nil, err
	}

	driverURL := cfg.DriverURL
	if opts.saucelabs {
		driverURL = cfg.SauceLabs.DriverURL
	}

	provider := adapter.NewWebDriverProvider(driverURL, cfg.SessionTimeout)
	registry := domain.NewResultRegistry()

	lifecycleCfg := domain.LifecycleConfig{
		Capabilities:     caps,
		DriverTimeout:    cfg.DriverTimeout,
		TestTimeout:      cfg.TestTimeout,
		ManagedDrivers:   opts.managed,
		CollectArtifacts: cfg.CollectArtifacts,
	}
	if opts.saucelabs {
		lifecycleCfg.Decorate = adapter.SauceCapabilities(cfg.Project)
	}

	var collector adapter.ArtifactCollector
	if cfg.CollectArtifacts {
		collector = adapter.NewLocalArtifactCollector(m.Path(cfg.Output))
	}

	sinks, err := buildSinks(cfg, opts)
	if err != nil {
		return nil, err
	}

	dispatcher := domain.NewDispatcher(domain.DispatcherConfig{
		Timeout: cfg.SinkTimeout,
		Retries: cfg.SinkRetries,
	}, sinks...)

	return domain.NewOrchestrator(
		catalog,
		registry,
		domain.NewLifecycleController(lifecycleCfg, registry, provider, collector),
		provider,
		dispatcher,
		openReportStore(cfg.Output),
		newUI(cmd),
		domain.WithRunLabel(buildName(cfg), currentUser()),
	), nil
}

// buildSinks creates the enabled integrations in a fixed order.
func buildSinks(cfg settings, opts runOptions) ([]adapter.Sink, error) {
	var sinks []adapter.Sink

	if opts.slack {
		slack := cfg.Slack
		slack.ReportOnFail = opts.reportOnFail
		slack.BuildURL = cfg.Jenkins.BuildURL

		if opts.saucelabs {
			slack.DashboardURL = cfg.SauceLabs.DashboardURL
		}

		sinks = append(sinks, adapter.NewSlackNotifier(slack))
	}

	if opts.saucelabs {
		sinks = append(sinks, adapter.NewSauceLabsLinker(cfg.SauceLabs.SauceLabsConfig))
	}

	if opts.jira {
		jira, err := adapter.NewJiraUpdater(cfg.Jira)
		if err != nil {
			return nil, err
		}

		sinks = append(sinks, jira)
	}

	if opts.jenkins {
		sinks = append(sinks, adapter.NewJenkinsLinker(cfg.Jenkins.JenkinsConfig))
	}

	if opts.metrics {
		sinks = append(sinks, adapter.NewMetricsSink(cfg.MetricsPath))
	}

	return sinks, nil
}

func buildName(cfg settings) string {
	if cfg.Jenkins.BuildNumber > 0 {
		return fmt.Sprintf("#%d", cfg.Jenkins.BuildNumber)
	}

	return "LOCAL"
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return os.Getenv("USER")
	}

	return u.Username
}
