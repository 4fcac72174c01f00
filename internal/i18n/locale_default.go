//go:build !windows

package i18n

// systemLocales is a no-op off Windows: the POSIX locale variables already
// carry the user's preference when one is set.
func systemLocales() []string { return nil }
