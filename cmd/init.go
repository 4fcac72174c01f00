package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sdkforge/sdkforge-cli/internal/config"
	"github.com/sdkforge/sdkforge-cli/pkg/system"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

var (
	initForce  bool
	initOutput string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration file",
	Long: `Create a commented configuration file with the default settings.
The file goes to the user config directory unless --output points elsewhere.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := initOutput
		if configPath == "" {
			configPath = cfgFile
		}
		if configPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("cannot determine home directory: %w", err)
			}
			configPath = filepath.Join(home, ".config", "sdkforge", "config.yaml")
		}

		if _, err := os.Stat(configPath); err == nil {
			if !initForce {
				fmt.Printf("⚠️  Configuration file %s already exists\n", configPath)
				return fmt.Errorf("use --force to overwrite the existing configuration")
			}

			logger := utils.GetGlobalLogger()
			backup, err := system.NewConfigManager(logger).BackupConfig(configPath)
			if err != nil {
				fmt.Printf("⚠️  Warning: failed to create backup: %v\n", err)
			} else {
				fmt.Printf("💾 Backup created: %s\n", backup.Path)
			}
			fmt.Printf("🔄 Overwriting existing configuration: %s\n", configPath)
		} else {
			fmt.Printf("📝 Creating new configuration: %s\n", configPath)
		}

		if dir := filepath.Dir(configPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
		}

		if err := config.SaveTemplate(configPath); err != nil {
			return err
		}

		fmt.Printf("✅ Configuration file created: %s\n", configPath)
		fmt.Println("\n💡 Next steps:")
		fmt.Println("   1. Edit the file to set sdk.root and the defaults")
		fmt.Println("   2. Run 'sdkforge plan' to preview what would be installed")
		fmt.Println("   3. Run 'sdkforge ensure' to converge the SDK root")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing configuration")
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "", "Path for the configuration file")
}
