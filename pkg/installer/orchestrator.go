package installer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/pkg/avd"
	"github.com/sdkforge/sdkforge-cli/pkg/host"
	"github.com/sdkforge/sdkforge-cli/pkg/ndk"
	"github.com/sdkforge/sdkforge-cli/pkg/sdk"
	"github.com/sdkforge/sdkforge-cli/pkg/system"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

// defaultMinDiskGB is the free-space level below which ensure warns. Low
// space never aborts a run: the user may know better.
const defaultMinDiskGB = 10

// Orchestrator sequences planning and installation. It owns one HostInfo and
// one Plan per Ensure call; neither outlives the call. Two concurrent runs
// against the same root are unsafe: the root has no locking discipline.
type Orchestrator struct {
	manager   *sdk.Manager
	resolver  *ndk.Resolver
	devices   *avd.Manager
	planner   *Planner
	detector  *host.Detector
	resources *system.ResourceChecker
	logger    utils.Logger
	minDiskGB uint64
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithDetector replaces the host detector
func WithDetector(d *host.Detector) OrchestratorOption {
	return func(o *Orchestrator) { o.detector = d }
}

// WithResourceChecker replaces the disk/permission checker
func WithResourceChecker(rc *system.ResourceChecker) OrchestratorOption {
	return func(o *Orchestrator) { o.resources = rc }
}

// WithMinDiskGB sets the free-space warning threshold
func WithMinDiskGB(gb uint64) OrchestratorOption {
	return func(o *Orchestrator) { o.minDiskGB = gb }
}

// NewOrchestrator wires the ensure pipeline. A nil logger disables logging.
func NewOrchestrator(manager *sdk.Manager, resolver *ndk.Resolver, devices *avd.Manager, logger utils.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	o := &Orchestrator{
		manager:   manager,
		resolver:  resolver,
		devices:   devices,
		planner:   NewPlanner(manager.Layout(), resolver, logger),
		detector:  host.NewDetector(nil),
		resources: system.NewResourceChecker(logger),
		logger:    logger,
		minDiskGB: defaultMinDiskGB,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Planner exposes the orchestrator's planner for plan-only callers
func (o *Orchestrator) Planner() *Planner {
	return o.planner
}

// Ensure converges the SDK root toward the requested state. Steps run in a
// fixed order; the first error aborts the rest with no rollback, leaving
// prior mutations on disk. Components that were already satisfied never
// appear in the result's Performed list.
func (o *Orchestrator) Ensure(ctx context.Context, req Request) (*Result, error) {
	root := o.manager.Layout().Root

	hostInfo := o.detector.Detect(ctx)
	java := hostInfo.JavaVersion
	if java == "" {
		java = "not found"
	}
	o.logger.Info("Host: %s/%s, virtualization=%t, java=%s", hostInfo.OS, hostInfo.Arch, hostInfo.Virtualization, java)

	if info, err := o.resources.CheckDiskSpace(root); err != nil {
		o.logger.Warn("Could not check disk space: %v", err)
	} else if info.Available < o.minDiskGB*1024*1024*1024 {
		o.logger.Warn("Low disk space: %s. At least %d GB free is recommended.",
			system.FormatDiskInfo(info), o.minDiskGB)
	} else {
		o.logger.Debug("Disk space: %s", system.FormatDiskInfo(info))
	}

	plan, err := o.planner.BuildPlan(req)
	if err != nil {
		return nil, err
	}
	o.logger.Info("Plan: %s", plan.Summary())

	if req.DryRun {
		if err := o.planner.ValidateDryRun(plan); err != nil {
			return nil, err
		}
		o.logger.Info("Dry run, nothing was changed")
		return &Result{
			Root:      root,
			NDKPath:   plan.NDKPath,
			Performed: []string{StepDryRun},
		}, nil
	}

	if err := o.resources.EnsureWritable(root); err != nil {
		return nil, err
	}

	performed := make([]string, 0, 8)
	cmdlineHandled := false

	if req.AcceptLicenses && plan.HasWork() {
		if plan.NeedCmdlineTools {
			if err := o.step(ctx, "Install cmdline-tools", o.manager.EnsureCmdlineTools); err != nil {
				return nil, err
			}
			performed = append(performed, StepCmdlineTools)
			cmdlineHandled = true
		}
		if err := o.step(ctx, "Accept licenses", o.manager.AcceptLicenses); err != nil {
			return nil, err
		}
		performed = append(performed, StepLicenses)
	}

	if plan.NeedCmdlineTools && !cmdlineHandled {
		if err := o.step(ctx, "Install cmdline-tools", o.manager.EnsureCmdlineTools); err != nil {
			return nil, err
		}
		performed = append(performed, StepCmdlineTools)
	}
	if plan.NeedPlatformTools {
		if err := o.step(ctx, "Install platform-tools", o.manager.EnsurePlatformTools); err != nil {
			return nil, err
		}
		performed = append(performed, StepPlatformTools)
	}
	if plan.NeedPlatform {
		install := func(ctx context.Context) error { return o.manager.EnsurePlatform(ctx, req.APILevel) }
		if err := o.step(ctx, fmt.Sprintf("Install platform android-%d", req.APILevel), install); err != nil {
			return nil, err
		}
		performed = append(performed, platformLabel(req.APILevel))
	}
	if plan.NeedBuildTools {
		install := func(ctx context.Context) error { return o.manager.EnsureBuildTools(ctx, req.BuildTools) }
		if err := o.step(ctx, "Install build-tools "+req.BuildTools, install); err != nil {
			return nil, err
		}
		performed = append(performed, buildToolsLabel(req.BuildTools))
	}
	if plan.NeedEmulator {
		if err := o.step(ctx, "Install emulator", o.manager.EnsureEmulator); err != nil {
			return nil, err
		}
		performed = append(performed, StepEmulator)
	}
	if plan.NeedSystemImage {
		install := func(ctx context.Context) error {
			return o.manager.EnsureSystemImage(ctx, req.APILevel, req.Variant, req.ABI)
		}
		if err := o.step(ctx, "Install system image "+sdk.SystemImagePackage(req.APILevel, req.Variant, req.ABI), install); err != nil {
			return nil, err
		}
		performed = append(performed, systemImageLabel(req.APILevel))
	}

	var ndkPath string
	if plan.NeedNDK {
		done := o.logger.Step("Install NDK " + req.NDK.String())
		ndkPath, err = o.resolver.Ensure(ctx, req.NDK)
		done(err)
		if err != nil {
			return nil, err
		}
		performed = append(performed, StepNDK)
	} else {
		ndkPath, err = o.resolver.Ensure(ctx, req.NDK)
		if err != nil {
			return nil, err
		}
	}

	avdCreated := false
	if req.AVDName != "" {
		imagePkg := sdk.SystemImagePackage(req.APILevel, req.Variant, req.ABI)
		done := o.logger.Step("Create virtual device " + req.AVDName)
		created, err := o.devices.Create(ctx, req.AVDName, imagePkg, req.AVDDevice, req.ForceAVD)
		done(err)
		if err != nil {
			return nil, err
		}
		if created {
			performed = append(performed, avdLabel(req.AVDName))
			avdCreated = true
		}
	}

	result := &Result{
		Root:       root,
		NDKPath:    ndkPath,
		AVDCreated: avdCreated,
		Performed:  performed,
	}

	if len(performed) == 0 {
		o.logger.Success("SDK root %s already satisfies the request", root)
	} else {
		o.logger.Success("SDK root %s ready: ndk=%s avd_created=%t performed=[%s]",
			root, ndkPath, avdCreated, strings.Join(performed, ", "))
	}
	return result, nil
}

// step wraps one install operation in a scoped log entry
func (o *Orchestrator) step(ctx context.Context, name string, fn func(context.Context) error) error {
	done := o.logger.Step(name)
	err := fn(ctx)
	done(err)
	return err
}

// Cleanup removes downloaded archives and staging leftovers under the root.
// It never touches installed components and is safe to run at any time,
// including after a failed ensure. With dryRun set it only reports what would
// go.
func (o *Orchestrator) Cleanup(dryRun bool) (*CleanupResult, error) {
	layout := o.manager.Layout()
	result := &CleanupResult{}

	for _, dir := range []string{layout.DownloadsDir(), layout.TmpDir()} {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if os.IsNotExist(walkErr) {
					return nil
				}
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			result.Removed = append(result.Removed, path)
			result.FreedBytes += info.Size()
			return nil
		})
		if err != nil {
			return nil, sdkerrors.WrapError(err, sdkerrors.ErrorTypeState, "CLEANUP_SCAN_FAILED",
				fmt.Sprintf("cannot scan %s", dir))
		}

		if !dryRun {
			if err := os.RemoveAll(dir); err != nil {
				return nil, sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "CLEANUP_FAILED",
					fmt.Sprintf("cannot remove %s", dir))
			}
		}
	}

	if dryRun {
		o.logger.Info("Cleanup dry run: %d file(s), %s reclaimable",
			len(result.Removed), utils.FormatSize(result.FreedBytes))
	} else {
		o.logger.Info("Cleanup removed %d file(s), reclaimed %s",
			len(result.Removed), utils.FormatSize(result.FreedBytes))
	}
	return result, nil
}
