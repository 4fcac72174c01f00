package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sdkforge/sdkforge-cli/internal/config"
	"github.com/sdkforge/sdkforge-cli/internal/i18n"
	"github.com/sdkforge/sdkforge-cli/pkg/system"
)

var (
	depsJSON  bool
	depsCache bool
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: i18n.T("cmd.deps.short"),
	Long:  i18n.T("cmd.deps.long"),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			cfg = &config.Config{}
		}
		sdkRoot := sdkRootFlag
		if sdkRoot == "" {
			sdkRoot = cfg.ResolveSDKRoot()
		}

		depManager := system.NewDependencyManager(sdkRoot)

		if depsCache {
			depManager.ClearCache()
			fmt.Println(i18n.T("cmd.deps.cacheCleared"))
			return nil
		}

		allDeps := depManager.CheckAll()

		if depsJSON {
			return outputJSON(allDeps)
		}

		names := make([]string, 0, len(allDeps))
		for name := range allDeps {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, i18n.T("cmd.deps.table.header"))
		fmt.Fprintln(w, "----------\t------\t-------\t----\t-------")

		var missingRequired []string
		var missingOptional []string

		for _, name := range names {
			dep := allDeps[name]

			status := "❌ Missing"
			if dep.Available {
				status = "✅ Available"
			}

			if dep.Required && !dep.Available {
				missingRequired = append(missingRequired, dep.Name)
			} else if !dep.Required && !dep.Available {
				missingOptional = append(missingOptional, dep.Name)
			}

			usedBy := strings.Join(dep.UsedBy, ", ")
			if len(usedBy) > 40 {
				usedBy = usedBy[:37] + "..."
			}

			path := dep.Path
			if len(path) > 30 {
				path = "..." + path[len(path)-27:]
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				dep.Name, status, dep.Version, path, usedBy)
		}

		w.Flush()

		fmt.Printf("\n%s\n", i18n.T("cmd.deps.summary", map[string]interface{}{
			"available": len(allDeps) - len(missingRequired) - len(missingOptional),
			"total":     len(allDeps),
		}))

		if len(missingRequired) > 0 {
			fmt.Printf("%s\n", i18n.T("cmd.deps.missingRequired", map[string]interface{}{
				"deps": strings.Join(missingRequired, ", "),
			}))
			for _, name := range missingRequired {
				fmt.Printf("\n🔧 %s:\n", name)
				for _, step := range depManager.GetInstallInstructions(name) {
					fmt.Printf("   %s\n", step)
				}
			}
		}
		if len(missingOptional) > 0 {
			fmt.Printf("%s\n", i18n.T("cmd.deps.missingOptional", map[string]interface{}{
				"deps": strings.Join(missingOptional, ", "),
			}))
		}
		if len(missingRequired) == 0 && len(missingOptional) == 0 {
			fmt.Println(i18n.T("cmd.deps.allGood"))
		}

		return nil
	},
}

func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func init() {
	rootCmd.AddCommand(depsCmd)

	depsCmd.Flags().BoolVar(&depsJSON, "json", false, i18n.T("cmd.deps.flag.json"))
	depsCmd.Flags().BoolVar(&depsCache, "clear-cache", false, i18n.T("cmd.deps.flag.clearCache"))
}
