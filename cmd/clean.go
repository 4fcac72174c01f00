package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdkforge/sdkforge-cli/internal/i18n"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

var dryRun bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: i18n.T("cmd.clean.short"),
	Long:  i18n.T("cmd.clean.long"),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildServices()
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", i18n.T("cmd.clean.title", map[string]interface{}{"root": s.layout.Root}))
		if dryRun {
			fmt.Printf("%s\n", i18n.T("cmd.clean.modeDryRun"))
		}

		// First pass previews so the user confirms against real numbers.
		preview, err := s.orch.Cleanup(true)
		if err != nil {
			return err
		}

		if len(preview.Removed) == 0 {
			fmt.Printf("\n%s\n", i18n.T("cmd.clean.nothing"))
			return nil
		}

		fmt.Printf("\n%s\n", i18n.T("cmd.clean.filesTitle", map[string]interface{}{
			"count": len(preview.Removed),
		}))
		for _, file := range preview.Removed {
			fmt.Printf("   🗑️ %s\n", file)
		}
		fmt.Printf("\n%s\n", i18n.T("cmd.clean.space", map[string]interface{}{
			"size": utils.FormatSize(preview.FreedBytes),
		}))

		if dryRun {
			return nil
		}

		if !confirm(i18n.T("cmd.clean.confirm")) {
			fmt.Printf("%s\n", i18n.T("cmd.clean.cancel"))
			return nil
		}

		result, err := s.orch.Cleanup(false)
		if err != nil {
			return err
		}

		fmt.Printf("\n%s\n", i18n.T("cmd.clean.success", map[string]interface{}{
			"count": len(result.Removed),
			"size":  utils.FormatSize(result.FreedBytes),
		}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, i18n.T("flags.dryRun"))
}
