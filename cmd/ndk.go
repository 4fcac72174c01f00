package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/internal/i18n"
	"github.com/sdkforge/sdkforge-cli/pkg/ndk"
)

var ndkResolvePath string

// ndkCmd groups the native toolchain commands
var ndkCmd = &cobra.Command{
	Use:   "ndk",
	Short: i18n.T("cmd.ndk.short"),
	Long:  i18n.T("cmd.ndk.long"),
}

var ndkListCmd = &cobra.Command{
	Use:   "list",
	Short: i18n.T("cmd.ndk.list.short"),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildServices()
		if err != nil {
			return err
		}

		installed, err := s.resolver.ListInstalled()
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", i18n.T("cmd.ndk.listTitle", map[string]interface{}{
			"count": len(installed),
		}))
		if len(installed) == 0 {
			fmt.Printf("   %s\n", i18n.T("cmd.list.none"))
			return nil
		}
		for _, n := range installed {
			fmt.Printf("   🛠️ %-16s %s\n", n.Version, n.Path)
		}
		return nil
	},
}

var ndkResolveCmd = &cobra.Command{
	Use:   "resolve [alias]",
	Short: i18n.T("cmd.ndk.resolve.short"),
	Long:  i18n.T("cmd.ndk.resolve.long"),
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildServices()
		if err != nil {
			return err
		}

		spec, err := ndkSpecFromInput(args, s)
		if err != nil {
			return err
		}

		path, err := s.resolver.ResolvePath(spec)
		if err != nil {
			return err
		}

		// Bare path on stdout so shell scripts can capture it.
		fmt.Println(path)
		return nil
	},
}

var ndkInstallCmd = &cobra.Command{
	Use:   "install [alias]",
	Short: i18n.T("cmd.ndk.install.short"),
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildServices()
		if err != nil {
			return err
		}

		spec, err := ndkSpecFromInput(args, s)
		if err != nil {
			return err
		}

		path, err := s.resolver.Ensure(cmd.Context(), spec)
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", i18n.T("cmd.ndk.installed", map[string]interface{}{"path": path}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ndkCmd)
	ndkCmd.AddCommand(ndkListCmd)
	ndkCmd.AddCommand(ndkResolveCmd)
	ndkCmd.AddCommand(ndkInstallCmd)

	ndkResolveCmd.Flags().StringVar(&ndkResolvePath, "path", "", i18n.T("flags.ndkPath"))
}

// ndkSpecFromInput picks the NDK selection from, in order, the --path flag,
// the positional alias and the configured default version.
func ndkSpecFromInput(args []string, s *services) (ndk.Spec, error) {
	if ndkResolvePath != "" {
		return ndk.SpecFromPath(ndkResolvePath), nil
	}
	if len(args) == 1 {
		return ndk.SpecFromAlias(args[0]), nil
	}
	if s.cfg.Defaults.NDKVersion != "" {
		return ndk.SpecFromAlias(s.cfg.Defaults.NDKVersion), nil
	}
	return ndk.Spec{}, sdkerrors.NewInvalidArgumentError("NDK_SPEC_EMPTY",
		"no NDK version requested and no default configured").
		WithSuggestion("Pass an alias argument or set defaults.ndk_version in the config")
}
