package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var catalogFS embed.FS

// localeEnvVars are checked in order when no --lang override is given.
var localeEnvVars = []string{"SDKFORGE_LANG", "LC_ALL", "LC_MESSAGES", "LANG"}

// supported lists the languages the embedded catalogs cover.
var supported = []language.Tag{
	language.English,
	language.SimplifiedChinese,
	language.Chinese,
}

var (
	localizer *goi18n.Localizer
	active    = language.English
)

// Init loads the embedded catalogs and picks the display language. The
// override (from --lang) wins; otherwise SDKFORGE_LANG, then the POSIX
// locale chain LC_ALL, LC_MESSAGES, LANG. On Windows the user's preferred
// UI languages fill in when the environment is silent. English is the
// fallback.
func Init(langOverride string) error {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	catalogs, err := fs.Glob(catalogFS, "locales/active.*.toml")
	if err != nil {
		return fmt.Errorf("list locales: %w", err)
	}
	for _, file := range catalogs {
		if _, err := bundle.LoadMessageFileFS(catalogFS, file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}

	active = pickLanguage(candidates(langOverride))
	localizer = goi18n.NewLocalizer(bundle, active.String(), language.English.String())
	return nil
}

// T renders the message with the given ID. Unknown IDs render as the ID
// itself so a missing translation never produces empty output.
func T(id string, data ...map[string]interface{}) string {
	if localizer == nil {
		if err := Init(""); err != nil {
			fmt.Fprintf(os.Stderr, "i18n init failed: %v\n", err)
			return id
		}
	}

	tmpl := map[string]interface{}{}
	if len(data) > 0 && data[0] != nil {
		tmpl = data[0]
	}

	msg, err := localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:      id,
		TemplateData:   tmpl,
		PluralCount:    pluralCountFrom(tmpl),
		DefaultMessage: &goi18n.Message{ID: id, Other: id},
	})
	if err != nil || msg == "" {
		return id
	}
	return msg
}

// CurrentLanguage reports the language chosen at Init time.
func CurrentLanguage() language.Tag {
	return active
}

// candidates assembles locale hints in priority order.
func candidates(override string) []string {
	var hints []string
	if override != "" {
		hints = append(hints, override)
	}
	for _, key := range localeEnvVars {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			hints = append(hints, v)
		}
	}
	if len(hints) == 0 {
		// Windows rarely sets the POSIX variables; ask the OS directly.
		hints = append(hints, systemLocales()...)
	}
	return hints
}

// pickLanguage matches the hints against the supported catalogs. Hints are
// tried in order, so the first one the matcher understands decides.
func pickLanguage(hints []string) language.Tag {
	var tags []language.Tag
	for _, hint := range hints {
		if tag, ok := parseLocale(hint); ok {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return language.English
	}
	tag, _, _ := language.NewMatcher(supported).Match(tags...)
	return tag
}

// parseLocale turns a locale string like "zh_CN.UTF-8" into a BCP 47 tag.
func parseLocale(hint string) (language.Tag, bool) {
	clean := strings.TrimSpace(hint)
	// Strip encoding and modifier suffixes: zh_CN.UTF-8@pinyin -> zh_CN.
	for _, sep := range []string{".", "@"} {
		if i := strings.Index(clean, sep); i >= 0 {
			clean = clean[:i]
		}
	}
	clean = strings.ReplaceAll(clean, "_", "-")

	if tag, err := language.Parse(clean); err == nil {
		return tag, true
	}

	// Values the strict parser rejects still often name one of the two
	// families the catalogs ship.
	switch lower := strings.ToLower(clean); {
	case strings.HasPrefix(lower, "zh"):
		return language.Chinese, true
	case strings.HasPrefix(lower, "en"):
		return language.English, true
	}
	return language.Und, false
}

func pluralCountFrom(data map[string]interface{}) interface{} {
	for _, key := range []string{"count", "Count", "total", "Total"} {
		if v, ok := data[key]; ok {
			return v
		}
	}
	return nil
}
