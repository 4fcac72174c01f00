package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/pkg/ndk"
	"github.com/sdkforge/sdkforge-cli/pkg/sdk"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o755))
}

// seedComponent fakes an installed component by creating its presence marker
func seedComponent(t *testing.T, layout *sdk.Layout, component string) {
	t.Helper()
	switch component {
	case "cmdline-tools":
		touch(t, layout.SdkManagerPath())
	case "platform-tools":
		touch(t, layout.AdbPath())
	case "platform-30":
		touch(t, layout.PlatformJar(30))
	case "build-tools-34.0.0":
		require.NoError(t, os.MkdirAll(layout.BuildToolsDir("34.0.0"), 0o755))
	case "emulator":
		touch(t, layout.EmulatorPath())
	case "system-image-30":
		touch(t, layout.SystemImageFile(30, "google_atd", "arm64-v8a"))
	case "ndk":
		dir := layout.NDKDir("26.3.11579264")
		touch(t, filepath.Join(dir, "source.properties"))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "toolchains"), 0o755))
	default:
		t.Fatalf("unknown component %q", component)
	}
}

func newTestPlanner(t *testing.T) (*Planner, *sdk.Layout) {
	t.Helper()
	layout := sdk.NewLayout(t.TempDir())
	resolver := ndk.NewResolver(layout, nil, nil, utils.NewNopLogger(),
		ndk.WithHostOS("linux"), ndk.WithBaseURL("http://127.0.0.1:1"))
	return NewPlanner(layout, resolver, utils.NewNopLogger()), layout
}

func baseRequest() Request {
	return Request{
		APILevel:       30,
		Variant:        "google_atd",
		ABI:            "arm64-v8a",
		NDK:            ndk.SpecFromAlias("r26d"),
		PlatformTools:  true,
		Emulator:       true,
		AVDName:        "t1",
		AVDDevice:      "pixel_5",
		AcceptLicenses: true,
	}
}

func TestBuildPlanEmptyRoot(t *testing.T) {
	p, _ := newTestPlanner(t)

	plan, err := p.BuildPlan(baseRequest())
	require.NoError(t, err)

	assert.True(t, plan.NeedCmdlineTools)
	assert.True(t, plan.NeedPlatformTools)
	assert.True(t, plan.NeedPlatform)
	assert.False(t, plan.NeedBuildTools, "no build-tools version requested")
	assert.True(t, plan.NeedEmulator)
	assert.True(t, plan.NeedSystemImage)
	assert.True(t, plan.NeedNDK)
	assert.False(t, plan.EmulatorPresent)
	assert.Empty(t, plan.NDKPath)
	assert.True(t, plan.HasWork())

	wantMB := sizeCmdlineToolsMB + sizePlatformToolsMB + sizePlatformMB +
		sizeEmulatorMB + sizeSystemImageMB + sizeNDKMB
	assert.Equal(t, wantMB, plan.EstimatedMB)
}

func TestBuildPlanSatisfiedRoot(t *testing.T) {
	p, layout := newTestPlanner(t)
	for _, c := range []string{"cmdline-tools", "platform-tools", "platform-30", "emulator", "system-image-30", "ndk"} {
		seedComponent(t, layout, c)
	}

	plan, err := p.BuildPlan(baseRequest())
	require.NoError(t, err)

	assert.False(t, plan.HasWork())
	assert.Empty(t, plan.NeededSteps())
	assert.True(t, plan.EmulatorPresent)
	assert.Equal(t, layout.NDKDir("26.3.11579264"), plan.NDKPath)
	assert.Equal(t, 0, plan.EstimatedMB)
}

func TestBuildPlanPartialRoot(t *testing.T) {
	p, layout := newTestPlanner(t)
	seedComponent(t, layout, "platform-tools")
	seedComponent(t, layout, "emulator")

	plan, err := p.BuildPlan(baseRequest())
	require.NoError(t, err)

	assert.False(t, plan.NeedPlatformTools)
	assert.False(t, plan.NeedEmulator)
	assert.True(t, plan.NeedPlatform)
	assert.True(t, plan.NeedSystemImage)
	assert.True(t, plan.NeedNDK)
}

func TestBuildPlanPurity(t *testing.T) {
	p, layout := newTestPlanner(t)
	seedComponent(t, layout, "platform-tools")
	seedComponent(t, layout, "ndk")

	first, err := p.BuildPlan(baseRequest())
	require.NoError(t, err)
	second, err := p.BuildPlan(baseRequest())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildPlanRejectsIllegalMatrix(t *testing.T) {
	p, _ := newTestPlanner(t)

	req := baseRequest()
	req.APILevel = 50
	_, err := p.BuildPlan(req)
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeInvalidArgument))

	req = baseRequest()
	req.Variant = "bogus"
	_, err = p.BuildPlan(req)
	require.Error(t, err)

	// Individually plausible dimensions, absent triple.
	req = baseRequest()
	req.APILevel = 34
	req.Variant = "aosp_atd"
	req.ABI = "arm64-v8a"
	_, err = p.BuildPlan(req)
	require.Error(t, err)
	fe, ok := sdkerrors.AsSdkForgeError(err)
	require.True(t, ok)
	assert.Equal(t, "COMBINATION_UNAVAILABLE", fe.Code)
}

func TestBuildPlanCrossFieldRule(t *testing.T) {
	p, _ := newTestPlanner(t)

	req := baseRequest()
	req.Emulator = false
	_, err := p.BuildPlan(req)
	require.Error(t, err)
	fe, ok := sdkerrors.AsSdkForgeError(err)
	require.True(t, ok)
	assert.Equal(t, sdkerrors.ErrorTypeInvalidArgument, fe.Type)
	assert.Equal(t, "AVD_REQUIRES_EMULATOR", fe.Code)
}

func TestBuildPlanCrossFieldSatisfiedByPresentEmulator(t *testing.T) {
	p, layout := newTestPlanner(t)
	seedComponent(t, layout, "emulator")

	req := baseRequest()
	req.Emulator = false
	plan, err := p.BuildPlan(req)
	require.NoError(t, err)
	assert.True(t, plan.EmulatorPresent)
	assert.False(t, plan.NeedEmulator)
}

func TestBuildPlanRejectsBadAVDName(t *testing.T) {
	p, _ := newTestPlanner(t)

	req := baseRequest()
	req.AVDName = "has space"
	_, err := p.BuildPlan(req)
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeInvalidArgument))
}

func TestBuildPlanRejectsBadNDKSpec(t *testing.T) {
	p, _ := newTestPlanner(t)

	req := baseRequest()
	req.NDK = ndk.Spec{}
	_, err := p.BuildPlan(req)
	require.Error(t, err)

	req.NDK = ndk.SpecFromAlias("r99z")
	_, err = p.BuildPlan(req)
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeInvalidArgument))
}

func TestBuildPlanBuildTools(t *testing.T) {
	p, layout := newTestPlanner(t)

	req := baseRequest()
	req.BuildTools = "34.0.0"
	plan, err := p.BuildPlan(req)
	require.NoError(t, err)
	assert.True(t, plan.NeedBuildTools)
	assert.Contains(t, plan.NeededSteps(), "build-tools-34.0.0")

	seedComponent(t, layout, "build-tools-34.0.0")
	plan, err = p.BuildPlan(req)
	require.NoError(t, err)
	assert.False(t, plan.NeedBuildTools)
}

func TestBuildPlanExplicitNDKPath(t *testing.T) {
	p, _ := newTestPlanner(t)

	dir := filepath.Join(t.TempDir(), "my-ndk")
	touch(t, filepath.Join(dir, "source.properties"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "toolchains"), 0o755))

	req := baseRequest()
	req.NDK = ndk.SpecFromPath(dir)
	plan, err := p.BuildPlan(req)
	require.NoError(t, err)
	assert.False(t, plan.NeedNDK)
	assert.Equal(t, dir, plan.NDKPath)
}

func TestNeededStepsOrder(t *testing.T) {
	p, _ := newTestPlanner(t)

	req := baseRequest()
	req.BuildTools = "34.0.0"
	plan, err := p.BuildPlan(req)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"cmdline-tools",
		"platform-tools",
		"platform-30",
		"build-tools-34.0.0",
		"emulator",
		"system-image-30",
		"ndk",
	}, plan.NeededSteps())
}

func TestValidateDryRun(t *testing.T) {
	p, _ := newTestPlanner(t)

	req := baseRequest()
	req.Emulator = false
	plan := &Plan{Request: req, EmulatorPresent: false}
	err := p.ValidateDryRun(plan)
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeInvalidArgument))

	plan.EmulatorPresent = true
	assert.NoError(t, p.ValidateDryRun(plan))

	plan = &Plan{Request: baseRequest(), EmulatorPresent: false}
	assert.NoError(t, p.ValidateDryRun(plan), "requested emulator satisfies the rule")
}

func TestPlanSummary(t *testing.T) {
	plan := &Plan{}
	assert.Contains(t, plan.Summary(), "nothing to install")

	plan = &Plan{
		Request:         Request{APILevel: 30},
		NeedSystemImage: true,
		EstimatedMB:     sizeSystemImageMB,
	}
	summary := plan.Summary()
	assert.Contains(t, summary, "system-image-30")
	assert.Contains(t, summary, "1100 MB")
}
