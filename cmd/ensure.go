package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/internal/i18n"
	"github.com/sdkforge/sdkforge-cli/pkg/host"
	"github.com/sdkforge/sdkforge-cli/pkg/installer"
	"github.com/sdkforge/sdkforge-cli/pkg/ndk"
)

var (
	reqAPI            int
	reqVariant        string
	reqABI            string
	reqNDK            string
	reqNDKPath        string
	reqBuildTools     string
	reqPlatformTools  bool
	reqEmulator       bool
	reqAVD            string
	reqDevice         string
	reqForceAVD       bool
	reqAcceptLicenses bool
	reqDryRun         bool
)

var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: i18n.T("cmd.ensure.short"),
	Long:  i18n.T("cmd.ensure.long"),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildServices()
		if err != nil {
			return err
		}

		req, err := assembleRequest(cmd, s)
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", i18n.T("cmd.ensure.converging", map[string]interface{}{
			"root": s.layout.Root,
		}))

		result, err := s.orch.Ensure(cmd.Context(), req)
		if err != nil {
			return err
		}

		fmt.Println()
		if req.DryRun {
			fmt.Printf("%s\n", i18n.T("cmd.ensure.dryRunDone"))
			return nil
		}

		if len(result.Performed) == 0 {
			fmt.Printf("%s\n", i18n.T("cmd.ensure.alreadyConverged"))
		} else {
			fmt.Printf("%s\n", i18n.T("cmd.ensure.performedTitle", map[string]interface{}{
				"count": len(result.Performed),
			}))
			for _, step := range result.Performed {
				fmt.Printf("   ✅ %s\n", step)
			}
		}

		if result.NDKPath != "" {
			fmt.Printf("%s\n", i18n.T("cmd.ensure.ndkPath", map[string]interface{}{
				"path": result.NDKPath,
			}))
		}
		if result.AVDCreated {
			fmt.Printf("%s\n", i18n.T("cmd.ensure.avdCreated", map[string]interface{}{
				"name": req.AVDName,
			}))
		}
		fmt.Printf("%s\n", i18n.T("cmd.ensure.done", map[string]interface{}{
			"root": result.Root,
		}))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(ensureCmd)
	addRequestFlags(ensureCmd)
	ensureCmd.Flags().BoolVar(&reqDryRun, "dry-run", false, i18n.T("flags.dryRun"))
}

// addRequestFlags registers the desired-state flags shared by ensure and plan.
func addRequestFlags(c *cobra.Command) {
	c.Flags().IntVar(&reqAPI, "api", 0, i18n.T("flags.api"))
	c.Flags().StringVar(&reqVariant, "variant", "", i18n.T("flags.variant"))
	c.Flags().StringVar(&reqABI, "abi", "", i18n.T("flags.abi"))
	c.Flags().StringVar(&reqNDK, "ndk", "", i18n.T("flags.ndk"))
	c.Flags().StringVar(&reqNDKPath, "ndk-path", "", i18n.T("flags.ndkPath"))
	c.Flags().StringVar(&reqBuildTools, "build-tools", "", i18n.T("flags.buildTools"))
	c.Flags().BoolVar(&reqPlatformTools, "platform-tools", true, i18n.T("flags.platformTools"))
	c.Flags().BoolVar(&reqEmulator, "emulator", false, i18n.T("flags.emulator"))
	c.Flags().StringVar(&reqAVD, "avd", "", i18n.T("flags.avd"))
	c.Flags().StringVar(&reqDevice, "device", "", i18n.T("flags.device"))
	c.Flags().BoolVar(&reqForceAVD, "force-avd", false, i18n.T("flags.forceAvd"))
	c.Flags().BoolVar(&reqAcceptLicenses, "accept-licenses", false, i18n.T("flags.acceptLicenses"))
	c.MarkFlagsMutuallyExclusive("ndk", "ndk-path")
}

// assembleRequest merges flags over config defaults into one request.
// An unset ABI falls back to the configured default, then to the host's
// native emulator ABI.
func assembleRequest(cmd *cobra.Command, s *services) (installer.Request, error) {
	cfg := s.cfg

	api := reqAPI
	if api == 0 {
		api = cfg.Defaults.APILevel
	}
	variant := reqVariant
	if variant == "" {
		variant = cfg.Defaults.Variant
	}
	abi := reqABI
	if abi == "" {
		abi = cfg.Defaults.ABI
	}
	if abi == "" {
		abi = host.NewDetector(nil).Detect(cmd.Context()).ABI
	}

	var spec ndk.Spec
	switch {
	case reqNDKPath != "":
		spec = ndk.SpecFromPath(reqNDKPath)
	case reqNDK != "":
		spec = ndk.SpecFromAlias(reqNDK)
	case cfg.Defaults.NDKVersion != "":
		spec = ndk.SpecFromAlias(cfg.Defaults.NDKVersion)
	default:
		return installer.Request{}, sdkerrors.NewInvalidArgumentError("NDK_SPEC_EMPTY",
			"no NDK version requested and no default configured").
			WithSuggestion("Pass --ndk <alias> or set defaults.ndk_version in the config")
	}

	buildTools := reqBuildTools
	if buildTools == "" && !cmd.Flags().Changed("build-tools") {
		buildTools = cfg.Defaults.BuildTools
	}

	device := reqDevice
	if device == "" {
		device = cfg.AVD.DeviceProfile
	}

	return installer.Request{
		APILevel:       api,
		Variant:        variant,
		ABI:            abi,
		NDK:            spec,
		BuildTools:     buildTools,
		PlatformTools:  reqPlatformTools,
		Emulator:       reqEmulator,
		AVDName:        reqAVD,
		AVDDevice:      device,
		ForceAVD:       reqForceAVD,
		AcceptLicenses: reqAcceptLicenses,
		DryRun:         reqDryRun,
	}, nil
}
