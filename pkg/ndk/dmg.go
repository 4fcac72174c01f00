package ndk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/pkg/runner"
)

const (
	dmgAttachTimeout = 10 * time.Minute
	dmgDetachTimeout = 2 * time.Minute
	dmgCopyTimeout   = 20 * time.Minute
)

// extractDMG mounts a macOS disk image, copies the NDK payload into dest and
// detaches the image again. Only darwin hosts ship NDK releases as dmg.
func (r *Resolver) extractDMG(ctx context.Context, dmgPath, dest string) error {
	if r.runner == nil {
		return sdkerrors.NewDependencyError("DMG_NO_RUNNER",
			"no command runner available to mount the disk image")
	}

	mountPoint, err := os.MkdirTemp("", "sdkforge-dmg-")
	if err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "DMG_MOUNT_DIR_FAILED",
			"cannot create a mount point for the disk image")
	}
	defer os.RemoveAll(mountPoint)

	attach := runner.Command{
		Name:    "hdiutil",
		Args:    []string{"attach", dmgPath, "-mountpoint", mountPoint, "-nobrowse", "-quiet"},
		Timeout: dmgAttachTimeout,
	}
	res, err := r.runner.Run(ctx, attach)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return sdkerrors.NewExternalToolError("DMG_ATTACH_FAILED",
			fmt.Sprintf("hdiutil could not attach %s", filepath.Base(dmgPath))).
			WithDetail("stderr", strings.TrimSpace(res.Stderr))
	}
	defer r.detachDMG(ctx, mountPoint)

	payload, err := findNDKPayload(mountPoint)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "DMG_DEST_FAILED",
			fmt.Sprintf("cannot create %s", dest))
	}

	// cp -R with a trailing /. copies directory contents on both BSD and
	// GNU coreutils, dotfiles included.
	copyCmd := runner.Command{
		Name:    "cp",
		Args:    []string{"-R", payload + "/.", dest},
		Timeout: dmgCopyTimeout,
	}
	res, err = r.runner.Run(ctx, copyCmd)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return sdkerrors.NewExternalToolError("DMG_COPY_FAILED",
			"cannot copy the NDK payload out of the disk image").
			WithDetail("stderr", strings.TrimSpace(res.Stderr))
	}

	return nil
}

func (r *Resolver) detachDMG(ctx context.Context, mountPoint string) {
	detach := runner.Command{
		Name:    "hdiutil",
		Args:    []string{"detach", mountPoint, "-quiet"},
		Timeout: dmgDetachTimeout,
	}
	if res, err := r.runner.Run(ctx, detach); err != nil {
		r.logger.Warn("hdiutil detach failed: %v", err)
	} else if res.ExitCode != 0 {
		r.logger.Warn("hdiutil detach exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
}

// findNDKPayload locates the NDK root inside a mounted release image. Older
// images carry a bare android-ndk-<alias> directory, newer ones wrap it in
// an application bundle under Contents/NDK.
func findNDKPayload(mountRoot string) (string, error) {
	entries, err := os.ReadDir(mountRoot)
	if err != nil {
		return "", sdkerrors.WrapError(err, sdkerrors.ErrorTypeUnpack, "DMG_UNREADABLE",
			fmt.Sprintf("cannot read mounted image at %s", mountRoot))
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "android-ndk") {
			return filepath.Join(mountRoot, name), nil
		}
		if strings.HasSuffix(name, ".app") {
			candidate := filepath.Join(mountRoot, name, "Contents", "NDK")
			if dirExists(candidate) {
				return candidate, nil
			}
		}
	}

	return "", sdkerrors.NewUnpackError("DMG_PAYLOAD_NOT_FOUND",
		"mounted image does not contain an NDK payload").
		WithDetail("mount_point", mountRoot)
}
