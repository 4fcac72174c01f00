package installer

import (
	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/pkg/avd"
	"github.com/sdkforge/sdkforge-cli/pkg/ndk"
	"github.com/sdkforge/sdkforge-cli/pkg/sdk"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

// Coarse download weights in MB, for display only. Never used for
// control-flow decisions.
const (
	sizeCmdlineToolsMB  = 150
	sizePlatformToolsMB = 50
	sizePlatformMB      = 65
	sizeBuildToolsMB    = 55
	sizeEmulatorMB      = 350
	sizeSystemImageMB   = 1100
	sizeNDKMB           = 2100
)

// Planner diffs a request against observed filesystem state
type Planner struct {
	layout   *sdk.Layout
	resolver *ndk.Resolver
	logger   utils.Logger
}

// NewPlanner creates a planner. A nil logger disables logging.
func NewPlanner(layout *sdk.Layout, resolver *ndk.Resolver, logger utils.Logger) *Planner {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Planner{layout: layout, resolver: resolver, logger: logger}
}

// BuildPlan validates the request and computes which components need
// installing. Pure apart from reads: two calls with no intervening filesystem
// change return identical plans.
//
// Validation order is fixed: matrix legality, NDK spec shape and AVD name
// first (no filesystem access), then the cross-field AVD/emulator rule (one
// emulator presence probe), then the general presence scan.
func (p *Planner) BuildPlan(req Request) (*Plan, error) {
	if err := sdk.ValidateCombination(req.APILevel, req.Variant, req.ABI); err != nil {
		return nil, err
	}
	if err := req.NDK.Validate(); err != nil {
		return nil, err
	}
	if req.AVDName != "" {
		if err := avd.ValidateName(req.AVDName); err != nil {
			return nil, err
		}
	}

	emulatorPresent := p.layout.HasEmulator()
	if req.AVDName != "" && !req.Emulator && !emulatorPresent {
		return nil, sdkerrors.NewInvalidArgumentError("AVD_REQUIRES_EMULATOR",
			"virtual device creation needs the emulator: request it or install it first").
			WithDetail("avd_name", req.AVDName).
			WithSuggestion("Add the emulator to the request or drop the virtual device")
	}

	plan := &Plan{
		Request:           req,
		NeedCmdlineTools:  !p.layout.HasCmdlineTools(),
		NeedPlatformTools: req.PlatformTools && !p.layout.HasPlatformTools(),
		NeedPlatform:      !p.layout.HasPlatform(req.APILevel),
		NeedBuildTools:    req.BuildTools != "" && !p.layout.HasBuildTools(req.BuildTools),
		NeedEmulator:      req.Emulator && !emulatorPresent,
		NeedSystemImage:   !p.layout.HasSystemImage(req.APILevel, req.Variant, req.ABI),
		EmulatorPresent:   emulatorPresent,
	}

	ndkPath, err := p.resolver.ResolvePath(req.NDK)
	switch {
	case err == nil:
		plan.NDKPath = ndkPath
	case sdkerrors.IsType(err, sdkerrors.ErrorTypeComponentNotFound):
		plan.NeedNDK = true
	default:
		return nil, err
	}

	plan.EstimatedMB = p.EstimateSize(plan)
	p.logger.Debug("Plan for api=%d variant=%s abi=%s: %s", req.APILevel, req.Variant, req.ABI, plan.Summary())
	return plan, nil
}

// EstimateSize sums static per-component weights for the plan's outstanding
// work, in MB
func (p *Planner) EstimateSize(plan *Plan) int {
	total := 0
	if plan.NeedCmdlineTools {
		total += sizeCmdlineToolsMB
	}
	if plan.NeedPlatformTools {
		total += sizePlatformToolsMB
	}
	if plan.NeedPlatform {
		total += sizePlatformMB
	}
	if plan.NeedBuildTools {
		total += sizeBuildToolsMB
	}
	if plan.NeedEmulator {
		total += sizeEmulatorMB
	}
	if plan.NeedSystemImage {
		total += sizeSystemImageMB
	}
	if plan.NeedNDK {
		total += sizeNDKMB
	}
	return total
}

// ValidateDryRun re-asserts the AVD/emulator cross-field rule against the
// plan's recorded snapshot. A dry run must not re-probe the filesystem, so
// the check reads the plan, not the layout.
func (p *Planner) ValidateDryRun(plan *Plan) error {
	req := plan.Request
	if req.AVDName != "" && !req.Emulator && !plan.EmulatorPresent {
		return sdkerrors.NewInvalidArgumentError("AVD_REQUIRES_EMULATOR",
			"virtual device creation needs the emulator: request it or install it first").
			WithDetail("avd_name", req.AVDName)
	}
	return nil
}
