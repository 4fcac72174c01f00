package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/internal/i18n"
	"github.com/sdkforge/sdkforge-cli/pkg/host"
	"github.com/sdkforge/sdkforge-cli/pkg/sdk"
)

var (
	avdAPI        int
	avdVariant    string
	avdABI        string
	avdDeviceName string
	avdForce      bool
	avdInfoOutput string
)

// avdCmd groups the virtual device lifecycle commands
var avdCmd = &cobra.Command{
	Use:   "avd",
	Short: i18n.T("cmd.avd.short"),
	Long:  i18n.T("cmd.avd.long"),
}

var avdListCmd = &cobra.Command{
	Use:   "list",
	Short: i18n.T("cmd.avd.list.short"),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildServices()
		if err != nil {
			return err
		}

		devices, err := s.devices.List(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", i18n.T("cmd.avd.listTitle", map[string]interface{}{
			"count": len(devices),
		}))
		if len(devices) == 0 {
			fmt.Printf("   %s\n", i18n.T("cmd.list.none"))
			return nil
		}
		for _, d := range devices {
			profile := d.Device
			if profile == "" {
				profile = "-"
			}
			fmt.Printf("   📱 %-20s %-16s %s\n", d.Name, profile, d.Path)
		}
		return nil
	},
}

var avdCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: i18n.T("cmd.avd.create.short"),
	Long:  i18n.T("cmd.avd.create.long"),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildServices()
		if err != nil {
			return err
		}
		name := args[0]

		api := avdAPI
		if api == 0 {
			api = s.cfg.Defaults.APILevel
		}
		variant := avdVariant
		if variant == "" {
			variant = s.cfg.Defaults.Variant
		}
		abi := avdABI
		if abi == "" {
			abi = s.cfg.Defaults.ABI
		}
		if abi == "" {
			abi = host.NewDetector(nil).Detect(cmd.Context()).ABI
		}
		profile := avdDeviceName
		if profile == "" {
			profile = s.cfg.AVD.DeviceProfile
		}

		imagePkg := sdk.SystemImagePackage(api, variant, abi)
		if !s.layout.HasSystemImage(api, variant, abi) {
			return sdkerrors.NewDependencyError("SYSTEM_IMAGE_MISSING",
				fmt.Sprintf("system image %s is not installed", imagePkg)).
				WithDetail("package", imagePkg).
				WithSuggestion(fmt.Sprintf("Run 'sdkforge ensure --api %d --variant %s --abi %s' first", api, variant, abi))
		}

		created, err := s.devices.Create(cmd.Context(), name, imagePkg, profile, avdForce)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("%s\n", i18n.T("cmd.avd.created", map[string]interface{}{
				"name":  name,
				"image": imagePkg,
			}))
		} else {
			fmt.Printf("%s\n", i18n.T("cmd.avd.kept", map[string]interface{}{"name": name}))
		}
		return nil
	},
}

var avdDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: i18n.T("cmd.avd.delete.short"),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildServices()
		if err != nil {
			return err
		}
		name := args[0]

		if !confirm(i18n.T("cmd.avd.confirmDelete", map[string]interface{}{"name": name})) {
			fmt.Printf("%s\n", i18n.T("cmd.avd.cancelled"))
			return nil
		}

		deleted, err := s.devices.Delete(cmd.Context(), name)
		if err != nil {
			return err
		}
		if deleted {
			fmt.Printf("%s\n", i18n.T("cmd.avd.deleted", map[string]interface{}{"name": name}))
		} else {
			fmt.Printf("%s\n", i18n.T("cmd.avd.absent", map[string]interface{}{"name": name}))
		}
		return nil
	},
}

var avdInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: i18n.T("cmd.avd.info.short"),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildServices()
		if err != nil {
			return err
		}

		device, err := s.devices.Info(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if avdInfoOutput != "text" {
			data, err := marshalOutput(device, avdInfoOutput)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("📱 %s\n", device.Name)
		if device.Device != "" {
			fmt.Printf("   Device:  %s\n", device.Device)
		}
		if device.Target != "" {
			fmt.Printf("   Target:  %s\n", device.Target)
		}
		if device.Path != "" {
			fmt.Printf("   Path:    %s\n", device.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(avdCmd)
	avdCmd.AddCommand(avdListCmd)
	avdCmd.AddCommand(avdCreateCmd)
	avdCmd.AddCommand(avdDeleteCmd)
	avdCmd.AddCommand(avdInfoCmd)

	avdCreateCmd.Flags().IntVar(&avdAPI, "api", 0, i18n.T("flags.api"))
	avdCreateCmd.Flags().StringVar(&avdVariant, "variant", "", i18n.T("flags.variant"))
	avdCreateCmd.Flags().StringVar(&avdABI, "abi", "", i18n.T("flags.abi"))
	avdCreateCmd.Flags().StringVar(&avdDeviceName, "device", "", i18n.T("flags.device"))
	avdCreateCmd.Flags().BoolVar(&avdForce, "force", false, i18n.T("flags.force"))

	avdInfoCmd.Flags().StringVarP(&avdInfoOutput, "output", "o", "text", i18n.T("flags.output"))
}
