package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "qlty"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName      = "output"
	verboseFlagName     = "verbose"
	runParallelFlagName = "parallel"

	runParallelConfigKey  = "run.parallel"
	driverTimeoutKey      = "run.driver_timeout"
	sessionTimeoutKey     = "run.session_timeout"
	testTimeoutKey        = "run.test_timeout"
	sinkTimeoutKey        = "run.sink_timeout"
	sinkRetriesKey        = "run.sink_retries"
	collectArtifactsKey   = "run.collect_artifacts"
	strictSinksConfigKey  = "run.strict_sinks"
	driverURLKey          = "driver.url"
	capabilitiesFileKey   = "capabilities.file"
	projectNameKey        = "project.name"
	projectReleaseKey     = "project.release"
	projectEnvironmentKey = "project.environment"
	slackTokenKey         = "slack.token"
	slackChannelKey       = "slack.channel_id"
	slackBaseURLKey       = "slack.base_url"
	sauceUsernameKey      = "saucelabs.username"
	sauceAccessKeyKey     = "saucelabs.access_key"
	sauceAPIURLKey        = "saucelabs.api_url"
	sauceDriverURLKey     = "saucelabs.driver_url"
	sauceDashboardURLKey  = "saucelabs.dashboard_url"
	jiraURLKey            = "jira.url"
	jiraUsernameKey       = "jira.username"
	jiraTokenKey          = "jira.token"
	jiraLabelKey          = "jira.label"
	jenkinsURLKey         = "jenkins.url"
	jenkinsUsernameKey    = "jenkins.username"
	jenkinsTokenKey       = "jenkins.token"
	jenkinsJobKey         = "jenkins.job"
	jenkinsBuildNumberKey = "jenkins.build_number"
	jenkinsAutoDetectKey  = "jenkins.auto_detect"
	metricsPathKey        = "metrics.path"

	defaultDriverTimeout    = 3 * time.Minute
	defaultSessionTimeout   = 30 * time.Second
	defaultTestTimeout      = 0
	defaultSinkTimeout      = 30 * time.Second
	defaultSinkRetries      = 2
	defaultCollectArtifacts = true

	defaultReportsDir  = "test_results"
	defaultRunParallel = 1
	defaultDriverURL   = "http://127.0.0.1:4723"
	defaultMetricsPath = "test_results/qlty.prom"

	defaultCapabilitiesFile = "capabilities.yaml"

	envPrefix = "QLTY"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".qlty.log"
	defaultLogLevel      = "info"
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func setDefaults() {
	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)

	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(driverTimeoutKey, defaultDriverTimeout.String())
	viper.SetDefault(sessionTimeoutKey, defaultSessionTimeout.String())
	viper.SetDefault(testTimeoutKey, time.Duration(defaultTestTimeout).String())
	viper.SetDefault(sinkTimeoutKey, defaultSinkTimeout.String())
	viper.SetDefault(sinkRetriesKey, defaultSinkRetries)
	viper.SetDefault(collectArtifactsKey, defaultCollectArtifacts)
	viper.SetDefault(strictSinksConfigKey, false)

	viper.SetDefault(driverURLKey, defaultDriverURL)
	viper.SetDefault(capabilitiesFileKey, defaultCapabilitiesFile)

	viper.SetDefault(projectNameKey, "qlty")
	viper.SetDefault(projectReleaseKey, "")
	viper.SetDefault(projectEnvironmentKey, "")

	viper.SetDefault(slackTokenKey, "")
	viper.SetDefault(slackChannelKey, "")
	viper.SetDefault(slackBaseURLKey, "")

	viper.SetDefault(sauceUsernameKey, "")
	viper.SetDefault(sauceAccessKeyKey, "")
	viper.SetDefault(sauceAPIURLKey, "")
	viper.SetDefault(sauceDriverURLKey, "")
	viper.SetDefault(sauceDashboardURLKey, "")

	viper.SetDefault(jiraURLKey, "")
	viper.SetDefault(jiraUsernameKey, "")
	viper.SetDefault(jiraTokenKey, "")
	viper.SetDefault(jiraLabelKey, "")

	viper.SetDefault(jenkinsURLKey, "")
	viper.SetDefault(jenkinsUsernameKey, "")
	viper.SetDefault(jenkinsTokenKey, "")
	viper.SetDefault(jenkinsJobKey, "")
	viper.SetDefault(jenkinsBuildNumberKey, 0)
	viper.SetDefault(jenkinsAutoDetectKey, true)

	viper.SetDefault(metricsPathKey, defaultMetricsPath)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

// defaultCapabilities are used when no capabilities file exists and are written by
// `qlty init`. Suites are expected to replace app paths and device names.
func defaultCapabilities() map[string]interface{} {
	return map[string]interface{}{
		"android": map[string]interface{}{
			"platformName":          "Android",
			"appium:automationName": "UiAutomator2",
			"appium:deviceName":     "Android Emulator",
		},
		"ios": map[string]interface{}{
			"platformName":          "iOS",
			"appium:automationName": "XCUITest",
			"appium:deviceName":     "iPhone 15",
		},
		"android_web": map[string]interface{}{
			"platformName":          "Android",
			"browserName":           "Chrome",
			"appium:automationName": "UiAutomator2",
		},
		"ios_web": map[string]interface{}{
			"platformName":          "iOS",
			"browserName":           "Safari",
			"appium:automationName": "XCUITest",
		},
		"chrome": map[string]interface{}{
			"browserName": "chrome",
		},
		"firefox": map[string]interface{}{
			"browserName": "firefox",
		},
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose || viper.GetBool(logVerboseKey) {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
