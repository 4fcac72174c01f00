package installer

import (
	"fmt"
	"strings"

	"github.com/sdkforge/sdkforge-cli/pkg/ndk"
)

// Step identifiers recorded in Result.Performed. These strings are a stable
// contract consumed by scripts and CI environments; never rename them.
const (
	StepCmdlineTools  = "cmdline-tools"
	StepLicenses      = "licenses"
	StepPlatformTools = "platform-tools"
	StepEmulator      = "emulator"
	StepNDK           = "ndk"
	StepDryRun        = "dry_run"
)

func platformLabel(api int) string {
	return fmt.Sprintf("platform-%d", api)
}

func buildToolsLabel(version string) string {
	return "build-tools-" + version
}

func systemImageLabel(api int) string {
	return fmt.Sprintf("system-image-%d", api)
}

func avdLabel(name string) string {
	return "avd-" + name
}

// Request is the desired state one ensure run converges toward. It is treated
// as immutable once handed to the orchestrator.
type Request struct {
	APILevel int      `json:"api_level"`
	Variant  string   `json:"variant"`
	ABI      string   `json:"abi"`
	NDK      ndk.Spec `json:"ndk"`

	BuildTools    string `json:"build_tools,omitempty"`
	PlatformTools bool   `json:"platform_tools"`
	Emulator      bool   `json:"emulator"`

	AVDName   string `json:"avd_name,omitempty"`
	AVDDevice string `json:"avd_device,omitempty"`
	ForceAVD  bool   `json:"force_avd,omitempty"`

	AcceptLicenses bool `json:"accept_licenses"`
	DryRun         bool `json:"dry_run,omitempty"`
}

// Plan records which components need installing, diffed from the filesystem
// at plan time. Plans are not persisted; every ensure run computes a fresh
// one.
type Plan struct {
	Request Request `json:"request"`

	NeedCmdlineTools  bool `json:"need_cmdline_tools"`
	NeedPlatformTools bool `json:"need_platform_tools"`
	NeedPlatform      bool `json:"need_platform"`
	NeedBuildTools    bool `json:"need_build_tools"`
	NeedEmulator      bool `json:"need_emulator"`
	NeedSystemImage   bool `json:"need_system_image"`
	NeedNDK           bool `json:"need_ndk"`

	// EmulatorPresent is the presence snapshot taken during planning; dry-run
	// validation re-reads it instead of touching the filesystem again.
	EmulatorPresent bool `json:"emulator_present"`

	// NDKPath is set when the requested NDK already resolved during planning
	NDKPath string `json:"ndk_path,omitempty"`

	EstimatedMB int `json:"estimated_mb"`
}

// HasWork reports whether any component or the NDK needs installing. Virtual
// device creation is not counted: it never goes through sdkmanager.
func (p *Plan) HasWork() bool {
	return p.NeedCmdlineTools || p.NeedPlatformTools || p.NeedPlatform ||
		p.NeedBuildTools || p.NeedEmulator || p.NeedSystemImage || p.NeedNDK
}

// NeededSteps lists the outstanding install steps in execution order
func (p *Plan) NeededSteps() []string {
	var steps []string
	if p.NeedCmdlineTools {
		steps = append(steps, StepCmdlineTools)
	}
	if p.NeedPlatformTools {
		steps = append(steps, StepPlatformTools)
	}
	if p.NeedPlatform {
		steps = append(steps, platformLabel(p.Request.APILevel))
	}
	if p.NeedBuildTools {
		steps = append(steps, buildToolsLabel(p.Request.BuildTools))
	}
	if p.NeedEmulator {
		steps = append(steps, StepEmulator)
	}
	if p.NeedSystemImage {
		steps = append(steps, systemImageLabel(p.Request.APILevel))
	}
	if p.NeedNDK {
		steps = append(steps, StepNDK)
	}
	return steps
}

// Summary renders the plan for log output
func (p *Plan) Summary() string {
	steps := p.NeededSteps()
	if len(steps) == 0 {
		return "nothing to install, all components present"
	}
	return fmt.Sprintf("install %s (~%d MB)", strings.Join(steps, ", "), p.EstimatedMB)
}

// Result reports what one ensure run changed. Performed only ever contains
// steps that actually mutated state; components that were already satisfied
// never appear (the idempotence contract).
type Result struct {
	Root       string   `json:"root"`
	NDKPath    string   `json:"ndk_path,omitempty"`
	AVDCreated bool     `json:"avd_created"`
	Performed  []string `json:"performed"`
}

// CleanupResult reports what a cleanup pass removed (or would remove)
type CleanupResult struct {
	Removed    []string `json:"removed"`
	FreedBytes int64    `json:"freed_bytes"`
}
