package avd

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/pkg/runner"
	"github.com/sdkforge/sdkforge-cli/pkg/sdk"
)

const defaultCommandTimeout = 90 * time.Second

// avdmanager accepts the same name charset it writes into <name>.ini
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Device is one virtual device as reported by avdmanager
type Device struct {
	Name   string `json:"name"`
	Device string `json:"device,omitempty"`
	Path   string `json:"path,omitempty"`
	Target string `json:"target,omitempty"`
}

// Logger is the slice of logging the manager needs
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

// Manager wraps avdmanager with idempotent lifecycle operations
type Manager struct {
	layout  *sdk.Layout
	runner  runner.Runner
	logger  Logger
	timeout time.Duration
}

// Option tweaks manager construction
type Option func(*Manager)

// WithCommandTimeout bounds a single avdmanager invocation
func WithCommandTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewManager wires a virtual-device manager against an SDK layout
func NewManager(layout *sdk.Layout, run runner.Runner, logger Logger, opts ...Option) *Manager {
	m := &Manager{
		layout:  layout,
		runner:  run,
		logger:  logger,
		timeout: defaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ValidateName rejects names avdmanager would mangle or refuse
func ValidateName(name string) error {
	if name == "" {
		return sdkerrors.NewInvalidArgumentError("AVD_NAME_EMPTY",
			"virtual device name must not be empty")
	}
	if !namePattern.MatchString(name) {
		return sdkerrors.NewInvalidArgumentError("AVD_NAME_INVALID",
			fmt.Sprintf("invalid virtual device name %q", name)).
			WithDetail("name", name).
			WithSuggestion("Use only letters, digits, dots, underscores and dashes")
	}
	return nil
}

// List returns all loadable virtual devices
func (m *Manager) List(ctx context.Context) ([]Device, error) {
	res, err := m.runner.Run(ctx, runner.Command{
		Name:    m.layout.AvdManagerPath(),
		Args:    []string{"list", "avd"},
		Timeout: m.timeout,
	})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, sdkerrors.NewExternalToolError("AVDMANAGER_FAILED",
			"avdmanager could not list virtual devices").
			WithDetail("exit_code", fmt.Sprintf("%d", res.ExitCode)).
			WithDetail("stderr", strings.TrimSpace(res.Stderr))
	}
	return parseDeviceList(res.Stdout), nil
}

// Exists reports whether a device with the given name is listed
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	devices, err := m.List(ctx)
	if err != nil {
		return false, err
	}
	for _, d := range devices {
		if d.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Info returns the listed record for one device
func (m *Manager) Info(ctx context.Context, name string) (*Device, error) {
	devices, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], nil
		}
	}
	return nil, sdkerrors.NewComponentNotFoundError("AVD_NOT_FOUND",
		fmt.Sprintf("virtual device %q does not exist", name)).
		WithDetail("name", name)
}

// Create makes a virtual device backed by the given system image package.
// Idempotent: an existing device with the same name is kept untouched unless
// force is set, in which case it is deleted and recreated. The returned bool
// reports whether a device was actually created by this call.
//
// avdmanager prompts "Do you wish to create a custom hardware profile?";
// creation always answers no.
func (m *Manager) Create(ctx context.Context, name, systemImagePkg, deviceProfile string, force bool) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	if systemImagePkg == "" {
		return false, sdkerrors.NewInvalidArgumentError("AVD_IMAGE_REQUIRED",
			"virtual device creation needs a system image package")
	}

	exists, err := m.Exists(ctx, name)
	if err != nil {
		return false, err
	}
	if exists && !force {
		m.logger.Debug("Virtual device %s already exists, keeping it", name)
		return false, nil
	}
	if exists {
		m.logger.Info("Recreating virtual device %s", name)
		if _, err := m.Delete(ctx, name); err != nil {
			return false, err
		}
	}

	args := []string{"create", "avd", "-n", name, "-k", systemImagePkg}
	if deviceProfile != "" {
		args = append(args, "-d", deviceProfile)
	}

	res, err := m.runner.Run(ctx, runner.Command{
		Name:    m.layout.AvdManagerPath(),
		Args:    args,
		Stdin:   "no\n",
		Timeout: m.timeout,
	})
	if err != nil {
		return false, err
	}
	if res.ExitCode != 0 {
		return false, sdkerrors.NewExternalToolError("AVDMANAGER_CREATE_FAILED",
			fmt.Sprintf("avdmanager could not create virtual device %q", name)).
			WithDetail("name", name).
			WithDetail("system_image", systemImagePkg).
			WithDetail("stderr", strings.TrimSpace(res.Stderr))
	}

	// The tool has been seen to exit zero without writing anything, so trust
	// the device list over the exit code.
	exists, err = m.Exists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, sdkerrors.NewStateError("AVD_NOT_VISIBLE",
			fmt.Sprintf("avdmanager reported success but device %q is not listed", name)).
			WithDetail("name", name)
	}

	m.logger.Info("Created virtual device %s", name)
	return true, nil
}

// Delete removes a virtual device. Idempotent: deleting a device that does
// not exist succeeds without invoking the tool. The returned bool reports
// whether a device was actually removed.
func (m *Manager) Delete(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	exists, err := m.Exists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		m.logger.Debug("Virtual device %s does not exist, nothing to delete", name)
		return false, nil
	}

	res, err := m.runner.Run(ctx, runner.Command{
		Name:    m.layout.AvdManagerPath(),
		Args:    []string{"delete", "avd", "-n", name},
		Timeout: m.timeout,
	})
	if err != nil {
		return false, err
	}
	if res.ExitCode != 0 {
		return false, sdkerrors.NewExternalToolError("AVDMANAGER_DELETE_FAILED",
			fmt.Sprintf("avdmanager could not delete virtual device %q", name)).
			WithDetail("name", name).
			WithDetail("stderr", strings.TrimSpace(res.Stderr))
	}

	m.logger.Info("Deleted virtual device %s", name)
	return true, nil
}

// parseDeviceList reads the block format of `avdmanager list avd`: one block
// per device separated by dash rules, `Key: Value` lines inside. The trailing
// "could not be loaded" section is ignored.
func parseDeviceList(out string) []Device {
	var devices []Device
	var current *Device

	flush := func() {
		if current != nil && current.Name != "" {
			devices = append(devices, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.Contains(trimmed, "could not be loaded") {
			break
		}
		if strings.HasPrefix(trimmed, "---") {
			flush()
			continue
		}

		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "Name":
			flush()
			current = &Device{Name: value}
		case "Device":
			if current != nil {
				current.Device = value
			}
		case "Path":
			if current != nil {
				current.Path = value
			}
		case "Target":
			if current != nil {
				current.Target = value
			}
		}
	}
	flush()

	return devices
}
