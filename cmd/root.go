package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdkforge/sdkforge-cli/internal/config"
	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/internal/i18n"
	"github.com/sdkforge/sdkforge-cli/internal/version"
	"github.com/sdkforge/sdkforge-cli/pkg/avd"
	"github.com/sdkforge/sdkforge-cli/pkg/fetch"
	"github.com/sdkforge/sdkforge-cli/pkg/host"
	"github.com/sdkforge/sdkforge-cli/pkg/installer"
	"github.com/sdkforge/sdkforge-cli/pkg/ndk"
	"github.com/sdkforge/sdkforge-cli/pkg/runner"
	"github.com/sdkforge/sdkforge-cli/pkg/sdk"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

var (
	cfgFile     string
	sdkRootFlag string
	verbose     bool
	langFlag    string
	noColor     bool
	skipConfirm bool
)

var rootCmd = &cobra.Command{
	Use:     "sdkforge",
	Short:   "SdkForge - declarative Android SDK and NDK provisioning",
	Long: `SdkForge converges an Android SDK directory toward a requested state:
platforms, system images, build-tools, emulator, NDK and virtual devices.
Runs are idempotent; components already present are never touched.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps failures to stable exit codes.
func Execute() {
	if err := i18n.Init(peekLang(os.Args[1:])); err != nil {
		fmt.Fprintf(os.Stderr, "i18n init failed: %v\n", err)
	}
	applyCommandLocalization()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, sdkerrors.Render(err))
		os.Exit(sdkerrors.ExitCode(err))
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/sdkforge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&sdkRootFlag, "sdk-root", "", "SDK root directory to converge (overrides config and ANDROID_HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&langFlag, "lang", "", "interface language (en, zh-CN)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&skipConfirm, "yes", "y", false, "assume yes for confirmation prompts")
}

// peekLang extracts --lang before cobra parses anything, so command and flag
// descriptions come out localized even in --help output.
func peekLang(args []string) string {
	for i, arg := range args {
		if arg == "--lang" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--lang=") {
			return strings.TrimPrefix(arg, "--lang=")
		}
	}
	return ""
}

// loadConfig resolves configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", i18n.T("errors.loadConfig"), err)
	}
	if sdkRootFlag != "" {
		cfg.SDK.Root = sdkRootFlag
	}
	return cfg, nil
}

// setupLogging configures the global logger from config and flags.
func setupLogging(cfg *config.Config) error {
	logCfg := utils.DefaultLoggerConfig()
	logCfg.Level = parseLogLevel(cfg.Log.Level)
	if verbose {
		logCfg.Level = utils.LogLevelDebug
	}
	logCfg.Format = parseLogFormat(cfg.Log.Format)
	logCfg.EnableColor = !noColor
	if cfg.Log.File != "" {
		logCfg.EnableFile = true
		logCfg.FilePath = cfg.Log.File
	}
	return utils.InitGlobalLogger(logCfg)
}

func parseLogLevel(level string) utils.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return utils.LogLevelDebug
	case "warn":
		return utils.LogLevelWarn
	case "error":
		return utils.LogLevelError
	default:
		return utils.LogLevelInfo
	}
}

func parseLogFormat(format string) utils.LogFormat {
	switch strings.ToLower(format) {
	case "json":
		return utils.LogFormatJSON
	case "compact":
		return utils.LogFormatCompact
	default:
		return utils.LogFormatText
	}
}

// services bundles the wired engine for one command invocation
type services struct {
	cfg      *config.Config
	layout   *sdk.Layout
	manager  *sdk.Manager
	resolver *ndk.Resolver
	devices  *avd.Manager
	orch     *installer.Orchestrator
}

// buildServices wires the engine against the resolved SDK root.
func buildServices() (*services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", i18n.T("errors.setupLogging"), err)
	}
	logger := utils.GetGlobalLogger()

	layout := sdk.NewLayout(cfg.ResolveSDKRoot())
	run := runner.NewExecRunner(logger)
	downloader := fetch.NewDownloader(logger,
		fetch.WithRetries(cfg.Download.Retries),
		fetch.WithProgress(cfg.Download.Progress))

	manager := sdk.NewManager(layout, run, logger,
		sdk.WithBaseURL(cfg.Download.BaseURL),
		sdk.WithTimeouts(cfg.SDK.InstallTimeout, cfg.SDK.CommandTimeout),
		sdk.WithDownloader(downloader))
	resolver := ndk.NewResolver(layout, manager, run, logger,
		ndk.WithBaseURL(cfg.Download.BaseURL),
		ndk.WithDownloadTimeout(cfg.Download.Timeout),
		ndk.WithDownloader(downloader))
	devices := avd.NewManager(layout, run, logger,
		avd.WithCommandTimeout(cfg.SDK.CommandTimeout))

	orch := installer.NewOrchestrator(manager, resolver, devices, logger,
		installer.WithDetector(host.NewDetector(run)))

	return &services{
		cfg:      cfg,
		layout:   layout,
		manager:  manager,
		resolver: resolver,
		devices:  devices,
		orch:     orch,
	}, nil
}

// confirm asks the user before a destructive action unless --yes was given.
func confirm(prompt string) bool {
	if skipConfirm {
		return true
	}
	fmt.Print(prompt + " [y/N]: ")
	var response string
	fmt.Scanln(&response)
	return strings.ToLower(strings.TrimSpace(response)) == "y"
}
