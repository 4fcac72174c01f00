//go:build windows

package i18n

import "golang.org/x/sys/windows"

// systemLocales asks Windows for the user's preferred UI languages, falling
// back to the default locale name. Both arrive as BCP 47 strings (en-US).
func systemLocales() []string {
	if langs, err := windows.GetUserPreferredUILanguages(windows.MUI_LANGUAGE_NAME); err == nil {
		var out []string
		for _, l := range langs {
			if l != "" {
				out = append(out, l)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	if name, err := windows.GetUserDefaultLocaleName(); err == nil && name != "" {
		return []string{name}
	}
	return nil
}
