package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdkforge/sdkforge-cli/internal/i18n"
	"github.com/sdkforge/sdkforge-cli/pkg/avd"
	"github.com/sdkforge/sdkforge-cli/pkg/ndk"
	"github.com/sdkforge/sdkforge-cli/pkg/sdk"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

var listOutput string

// inventory aggregates everything installed under one SDK root.
type inventory struct {
	Root       string          `json:"root"`
	Components []sdk.Component `json:"components,omitempty"`
	NDKs       []ndk.Installed `json:"ndks,omitempty"`
	AVDs       []avd.Device    `json:"avds,omitempty"`
}

var listCmd = &cobra.Command{
	Use:       "list [components|ndks|avds]",
	Short:     i18n.T("cmd.list.short"),
	Long:      i18n.T("cmd.list.long"),
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"components", "ndks", "avds"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildServices()
		if err != nil {
			return err
		}
		logger := utils.GetGlobalLogger()

		scope := "all"
		if len(args) == 1 {
			scope = args[0]
		}

		inv := inventory{Root: s.layout.Root}

		if scope == "all" || scope == "components" {
			components, err := s.manager.ListInstalled(cmd.Context())
			if err != nil {
				// Without cmdline-tools there is nobody to ask. For the
				// aggregate view that is a note, not a failure.
				if scope == "components" {
					return err
				}
				logger.Debug("Skipping component listing: %v", err)
			} else {
				inv.Components = components
			}
		}

		if scope == "all" || scope == "ndks" {
			ndks, err := s.resolver.ListInstalled()
			if err != nil {
				return err
			}
			inv.NDKs = ndks
		}

		if scope == "all" || scope == "avds" {
			devices, err := s.devices.List(cmd.Context())
			if err != nil {
				if scope == "avds" {
					return err
				}
				logger.Debug("Skipping AVD listing: %v", err)
			} else {
				inv.AVDs = devices
			}
		}

		if listOutput != "text" {
			data, err := marshalOutput(inv, listOutput)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		printInventory(&inv, scope)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listOutput, "output", "o", "text", i18n.T("flags.output"))
}

func printInventory(inv *inventory, scope string) {
	fmt.Printf("%s\n", i18n.T("cmd.list.root", map[string]interface{}{"root": inv.Root}))

	if scope == "all" || scope == "components" {
		fmt.Printf("\n%s\n", i18n.T("cmd.list.componentsTitle", map[string]interface{}{
			"count": len(inv.Components),
		}))
		if len(inv.Components) == 0 {
			fmt.Printf("   %s\n", i18n.T("cmd.list.none"))
		}
		for _, c := range inv.Components {
			version := c.Version
			if version == "" {
				version = "-"
			}
			fmt.Printf("   📦 %-40s %-14s %s\n", c.Package, version, c.Path)
		}
	}

	if scope == "all" || scope == "ndks" {
		fmt.Printf("\n%s\n", i18n.T("cmd.list.ndksTitle", map[string]interface{}{
			"count": len(inv.NDKs),
		}))
		if len(inv.NDKs) == 0 {
			fmt.Printf("   %s\n", i18n.T("cmd.list.none"))
		}
		for _, n := range inv.NDKs {
			fmt.Printf("   🛠️ %-16s %s\n", n.Version, n.Path)
		}
	}

	if scope == "all" || scope == "avds" {
		fmt.Printf("\n%s\n", i18n.T("cmd.list.avdsTitle", map[string]interface{}{
			"count": len(inv.AVDs),
		}))
		if len(inv.AVDs) == 0 {
			fmt.Printf("   %s\n", i18n.T("cmd.list.none"))
		}
		for _, d := range inv.AVDs {
			device := d.Device
			if device == "" {
				device = "-"
			}
			fmt.Printf("   📱 %-20s %-16s %s\n", d.Name, device, d.Target)
		}
	}
}
