package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdkforge/sdkforge-cli/internal/config"
	"github.com/sdkforge/sdkforge-cli/pkg/host"
	"github.com/sdkforge/sdkforge-cli/pkg/runner"
	"github.com/sdkforge/sdkforge-cli/pkg/system"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

var doctorCheck string

// Full installs with system images and an NDK want this much headroom.
const doctorMinFreeBytes = 10 << 30

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the host environment",
	Long: `The doctor command performs system diagnostics to identify issues that
might prevent SdkForge from converging an SDK root.

It checks:
- Host facts (OS, architecture, virtualization, Java)
- External tools (java, sdkmanager, avdmanager, adb, emulator)
- Disk space and write access on the SDK root
- Configuration file
- Network connectivity to the Google repository (with --check network)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := utils.GetGlobalLogger()
		logger.Info("Starting system diagnostics...")

		fmt.Println("🏥 SdkForge System Doctor")
		fmt.Println(strings.Repeat("=", 50))

		// A broken config file must not kill the diagnosis; the
		// configuration section below reports it properly.
		cfg, err := config.Load(cfgFile)
		if err != nil {
			cfg = &config.Config{}
		}
		sdkRoot := sdkRootFlag
		if sdkRoot == "" {
			sdkRoot = cfg.ResolveSDKRoot()
		}

		run := runner.NewExecRunner(logger)
		resourceChecker := system.NewResourceChecker(logger)

		var allPassed = true
		var issues []string
		var suggestions []string

		// 1. Host facts
		fmt.Println("\n🖥️  Checking Host...")
		info := host.NewDetector(run).Detect(cmd.Context())
		checkHostFacts(info, &suggestions)

		// 2. External tools
		fmt.Println("\n🔍 Checking Dependencies...")
		depManager := system.NewDependencyManager(sdkRoot)
		checkDependencies(depManager, &allPassed, &issues, &suggestions)

		// 3. Disk space
		fmt.Println("\n💾 Checking Disk Space...")
		checkDiskSpace(resourceChecker, sdkRoot, &allPassed, &issues, &suggestions)

		// 4. Configuration
		fmt.Println("\n⚙️  Checking Configuration...")
		checkConfiguration(&allPassed, &issues, &suggestions)

		// 5. SDK root access
		fmt.Println("\n📁 Checking SDK Root Access...")
		checkRootAccess(resourceChecker, sdkRoot, &allPassed, &issues, &suggestions)

		// 6. Network connectivity (if requested)
		if doctorCheck == "all" || doctorCheck == "network" {
			fmt.Println("\n🌐 Checking Network Connectivity...")
			networkChecker := system.NewNetworkChecker(logger)
			checkNetworkConnectivity(networkChecker, &allPassed, &issues, &suggestions)
		}

		// Display results
		fmt.Println("\n" + strings.Repeat("=", 50))
		fmt.Println("📊 DIAGNOSTIC RESULTS")
		fmt.Println(strings.Repeat("=", 50))

		if allPassed {
			fmt.Println("✅ All checks passed! This host is ready to provision Android SDKs.")
		} else {
			fmt.Printf("❌ Found %d issues that need attention:\n\n", len(issues))

			for i, issue := range issues {
				fmt.Printf("%d. %s\n", i+1, issue)
			}
		}

		if len(suggestions) > 0 {
			fmt.Println("\n💡 Suggestions:")
			for i, suggestion := range suggestions {
				fmt.Printf("%d. %s\n", i+1, suggestion)
			}
		}

		if !allPassed {
			return fmt.Errorf("system diagnostics found issues")
		}

		return nil
	},
}

// checkHostFacts prints the detected host snapshot. Host facts alone never
// fail the diagnosis; the tools that depend on them report their own state.
func checkHostFacts(info *host.HostInfo, suggestions *[]string) {
	fmt.Printf("   ✅ OS: %s/%s (native ABI %s)\n", info.OS, info.Arch, info.ABI)

	if info.JavaVersion != "" {
		fmt.Printf("   ✅ Java: %s\n", info.JavaVersion)
	} else {
		fmt.Printf("   ⚠️  Java: not detected\n")
	}

	if info.Virtualization {
		fmt.Printf("   ✅ Virtualization: available\n")
	} else {
		fmt.Printf("   ⚠️  Virtualization: not available\n")
		if info.OS == "linux" {
			*suggestions = append(*suggestions, "Enable KVM (/dev/kvm) so emulators run with hardware acceleration")
		}
	}
}

// checkDependencies checks all external tools
func checkDependencies(depManager system.DependencyManager, allPassed *bool, issues *[]string, suggestions *[]string) {
	depsMap := depManager.CheckAll()

	names := make([]string, 0, len(depsMap))
	for name := range depsMap {
		names = append(names, name)
	}
	sort.Strings(names)

	var missingRequired []string
	var missingOptional []string

	for _, name := range names {
		dep := depsMap[name]
		if dep.Available {
			fmt.Printf("   ✅ %s: %s\n", dep.Name, dep.Version)
			continue
		}
		if dep.Required {
			fmt.Printf("   ❌ %s: Not found (required)\n", dep.Name)
			missingRequired = append(missingRequired, dep.Name)
			*allPassed = false
		} else {
			fmt.Printf("   ⚠️  %s: Not found (optional, used by %s)\n", dep.Name, strings.Join(dep.UsedBy, ", "))
			missingOptional = append(missingOptional, dep.Name)
		}
	}

	if len(missingRequired) > 0 {
		*issues = append(*issues, fmt.Sprintf("Missing required dependencies: %s", strings.Join(missingRequired, ", ")))
		for _, name := range missingRequired {
			*suggestions = append(*suggestions, depManager.GetInstallInstructions(name)...)
		}
	}

	if len(missingOptional) > 0 {
		*suggestions = append(*suggestions, fmt.Sprintf("Missing SDK tools (%s) are installed by 'sdkforge ensure'", strings.Join(missingOptional, ", ")))
	}
}

// checkDiskSpace checks free space on the volume holding the SDK root
func checkDiskSpace(resourceChecker *system.ResourceChecker, sdkRoot string, allPassed *bool, issues *[]string, suggestions *[]string) {
	info, err := resourceChecker.CheckDiskSpace(sdkRoot)
	if err != nil {
		fmt.Printf("   ⚠️  Could not read disk statistics: %v\n", err)
		return
	}

	fmt.Printf("   💿 %s\n", system.FormatDiskInfo(info))

	if info.Available < doctorMinFreeBytes {
		*allPassed = false
		*issues = append(*issues, fmt.Sprintf("Low disk space on %s: %s available", info.Path, utils.FormatSize(int64(info.Available))))
		*suggestions = append(*suggestions, "Free up disk space or point sdk.root at a larger volume")
		*suggestions = append(*suggestions, "Run 'sdkforge clean' to drop cached downloads")
	}
}

// checkConfiguration checks the configuration file
func checkConfiguration(allPassed *bool, issues *[]string, suggestions *[]string) {
	logger := utils.GetGlobalLogger()
	configManager := system.NewConfigManager(logger)

	configPath := cfgFile
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	result := configManager.ValidateConfig(configPath)

	switch {
	case !result.Exists:
		fmt.Printf("   ⚠️  Configuration file: Not present (%s)\n", configPath)
		*suggestions = append(*suggestions, result.Suggestions...)
	case result.Valid:
		fmt.Printf("   ✅ Configuration file: Valid (%s)\n", configPath)
		if sections, ok := result.Details["sections"]; ok {
			fmt.Printf("   ℹ️  Configuration sections: %v\n", sections)
		}
		if root, ok := result.Details["sdk_root"]; ok {
			fmt.Printf("   ℹ️  Configured SDK root: %v\n", root)
		}
	default:
		fmt.Printf("   ❌ Configuration file: Invalid (%s)\n", configPath)
		*allPassed = false
		for _, err := range result.Errors {
			*issues = append(*issues, fmt.Sprintf("Config error: %s", err))
		}
		*suggestions = append(*suggestions, result.Suggestions...)
	}

	for _, warning := range result.Warnings {
		fmt.Printf("   ⚠️  %s\n", warning)
	}
}

// checkRootAccess verifies the SDK root (or the directory it would be created
// in) is writable
func checkRootAccess(resourceChecker *system.ResourceChecker, sdkRoot string, allPassed *bool, issues *[]string, suggestions *[]string) {
	probe := sdkRoot
	if _, err := os.Stat(probe); err != nil {
		// Root does not exist yet; what matters is whether ensure could
		// create it, so probe the nearest existing ancestor.
		for {
			parent := filepath.Dir(probe)
			if parent == probe {
				break
			}
			probe = parent
			if _, err := os.Stat(probe); err == nil {
				break
			}
		}
		fmt.Printf("   ℹ️  SDK root %s does not exist yet\n", sdkRoot)
	}

	if err := resourceChecker.EnsureWritable(probe); err != nil {
		fmt.Printf("   ❌ %s is not writable\n", probe)
		*allPassed = false
		*issues = append(*issues, fmt.Sprintf("No write access to %s", probe))
		*suggestions = append(*suggestions, "Fix directory permissions or choose a different sdk.root")
		return
	}

	fmt.Printf("   ✅ Write access: OK (%s)\n", probe)
}

// checkNetworkConnectivity checks reachability of the download endpoints
func checkNetworkConnectivity(networkChecker *system.NetworkChecker, allPassed *bool, issues *[]string, suggestions *[]string) {
	basicStatus := networkChecker.CheckBasicConnectivity()

	if !basicStatus.Connected {
		fmt.Printf("   ❌ Basic connectivity: Failed - %s\n", basicStatus.Error)
		*allPassed = false
		*issues = append(*issues, fmt.Sprintf("Network connectivity failed: %s", basicStatus.Error))
		*suggestions = append(*suggestions, networkChecker.DiagnoseNetworkIssue(errors.New(basicStatus.Error))...)
		return
	}

	fmt.Printf("   ✅ Basic connectivity: OK (%.2fms)\n",
		float64(basicStatus.Latency.Nanoseconds())/1000000)
	fmt.Printf("   ✅ DNS resolution: %v\n", basicStatus.DNSWorking)
	fmt.Printf("   ✅ HTTPS connectivity: %v\n", basicStatus.HTTPSWorking)

	tests := system.GetDefaultConnectivityTests()
	diagnostic := networkChecker.CheckConnectivity(tests)

	var failedTests []string
	for name, result := range diagnostic.Results {
		test := diagnostic.Tests[name]
		if result.Connected {
			fmt.Printf("   ✅ %s: OK (%.2fms)\n", name,
				float64(result.Latency.Nanoseconds())/1000000)
		} else {
			status := "⚠️"
			if test.Required {
				status = "❌"
				*allPassed = false
			}
			fmt.Printf("   %s %s: Failed - %s\n", status, name, result.Error)
			failedTests = append(failedTests, name)
		}
	}

	if len(failedTests) > 0 {
		*issues = append(*issues, fmt.Sprintf("Some endpoints unreachable: %s",
			strings.Join(failedTests, ", ")))
		*suggestions = append(*suggestions, diagnostic.Suggestions...)
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().StringVar(&doctorCheck, "check", "basic", "Type of check to perform: basic, all, network")
}
