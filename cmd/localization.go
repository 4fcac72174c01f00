package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sdkforge/sdkforge-cli/internal/i18n"
)

// rootFlagMessages maps persistent flag names to their catalog IDs.
var rootFlagMessages = map[string]string{
	"config":   "flags.config",
	"sdk-root": "flags.sdkRoot",
	"verbose":  "flags.verbose",
	"lang":     "flags.lang",
	"no-color": "flags.noColor",
	"yes":      "flags.yes",
}

// commandMessages maps every command to the catalog prefix holding its
// short and long descriptions.
var commandMessages = map[*cobra.Command]string{
	rootCmd:       "cmd.root",
	ensureCmd:     "cmd.ensure",
	planCmd:       "cmd.plan",
	listCmd:       "cmd.list",
	cleanCmd:      "cmd.clean",
	avdCmd:        "cmd.avd",
	avdListCmd:    "cmd.avd.list",
	avdCreateCmd:  "cmd.avd.create",
	avdDeleteCmd:  "cmd.avd.delete",
	avdInfoCmd:    "cmd.avd.info",
	ndkCmd:        "cmd.ndk",
	ndkListCmd:    "cmd.ndk.list",
	ndkResolveCmd: "cmd.ndk.resolve",
	ndkInstallCmd: "cmd.ndk.install",
	doctorCmd:     "cmd.doctor",
	depsCmd:       "cmd.deps",
	initCmd:       "cmd.init",
	versionCmd:    "cmd.version",
}

// applyCommandLocalization swaps command and flag descriptions to the active
// language. It runs after i18n init, before any help text is rendered.
// Commands without a long description keep it empty rather than picking up
// a raw catalog ID.
func applyCommandLocalization() {
	for cmd, prefix := range commandMessages {
		cmd.Short = i18n.T(prefix + ".short")
		if cmd.Long != "" {
			cmd.Long = i18n.T(prefix + ".long")
		}
	}

	for name, id := range rootFlagMessages {
		if flag := rootCmd.PersistentFlags().Lookup(name); flag != nil {
			flag.Usage = i18n.T(id)
		}
	}
}
