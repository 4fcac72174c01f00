package sdk

import (
	"fmt"
	"sort"
	"strings"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
)

// API levels with published system images. Requests outside this range fail
// validation before anything else is inspected.
const (
	MinAPILevel = 21
	MaxAPILevel = 35
)

// apiRange marks a contiguous span of API levels
type apiRange struct {
	from, to int
}

func (r apiRange) contains(api int) bool {
	return api >= r.from && api <= r.to
}

// systemImageMatrix enumerates which ABIs each image variant was published
// for, per API level span. This table is the single source of truth for
// request validation; it mirrors what the Google repository actually hosts
// rather than what sdkmanager would merely accept syntactically.
var systemImageMatrix = map[string][]struct {
	apis apiRange
	abis []string
}{
	"default": {
		{apiRange{21, 24}, []string{"armeabi-v7a", "arm64-v8a", "x86", "x86_64"}},
		{apiRange{25, 30}, []string{"arm64-v8a", "x86", "x86_64"}},
		{apiRange{31, 35}, []string{"arm64-v8a", "x86_64"}},
	},
	"google_apis": {
		{apiRange{21, 24}, []string{"armeabi-v7a", "arm64-v8a", "x86", "x86_64"}},
		{apiRange{25, 30}, []string{"arm64-v8a", "x86", "x86_64"}},
		{apiRange{31, 35}, []string{"arm64-v8a", "x86_64"}},
	},
	"google_apis_playstore": {
		{apiRange{28, 30}, []string{"x86", "x86_64"}},
		{apiRange{31, 35}, []string{"arm64-v8a", "x86_64"}},
	},
	"google_atd": {
		{apiRange{30, 34}, []string{"arm64-v8a", "x86_64"}},
	},
	"aosp_atd": {
		{apiRange{30, 34}, []string{"arm64-v8a", "x86_64"}},
	},
}

// imageExclusions carves individual triples out of otherwise-valid spans.
// These are gaps in what was actually published.
var imageExclusions = map[string]struct{}{
	exclusionKey(34, "aosp_atd", "arm64-v8a"): {},
}

func exclusionKey(api int, variant, abi string) string {
	return fmt.Sprintf("%d/%s/%s", api, variant, abi)
}

// Variants returns all known image variant tags, sorted
func Variants() []string {
	out := make([]string, 0, len(systemImageMatrix))
	for v := range systemImageMatrix {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// VariantsForAPI returns the variant tags that have images at the given API
// level, sorted.
func VariantsForAPI(api int) []string {
	var out []string
	for variant, spans := range systemImageMatrix {
		for _, span := range spans {
			if span.apis.contains(api) {
				out = append(out, variant)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// ABIsFor returns the ABIs published for (api, variant), sorted. Empty when
// the variant has no images at that API level.
func ABIsFor(api int, variant string) []string {
	spans, ok := systemImageMatrix[variant]
	if !ok {
		return nil
	}
	for _, span := range spans {
		if span.apis.contains(api) {
			out := append([]string(nil), span.abis...)
			sort.Strings(out)
			return out
		}
	}
	return nil
}

// ValidateCombination checks an (api, variant, abi) triple against the
// matrix. Failures are tiered so the message is as specific as the request
// allows: range first, then variant availability at that level, then ABI
// availability for that (level, variant), then a catch-all for published
// gaps. Always called before any mutation.
func ValidateCombination(api int, variant, abi string) error {
	if api < MinAPILevel || api > MaxAPILevel {
		return sdkerrors.NewInvalidArgumentError("API_OUT_OF_RANGE",
			fmt.Sprintf("API level %d is outside the supported range %d-%d", api, MinAPILevel, MaxAPILevel)).
			WithDetail("api", fmt.Sprintf("%d", api)).
			WithDetail("supported_range", fmt.Sprintf("%d-%d", MinAPILevel, MaxAPILevel))
	}

	variants := VariantsForAPI(api)
	if !contains(variants, variant) {
		return sdkerrors.NewInvalidArgumentError("VARIANT_UNAVAILABLE",
			fmt.Sprintf("image variant %q has no images for API %d; available variants: %s",
				variant, api, strings.Join(variants, ", "))).
			WithDetail("api", fmt.Sprintf("%d", api)).
			WithDetail("variant", variant).
			WithDetail("valid_variants", strings.Join(variants, ","))
	}

	abis := ABIsFor(api, variant)
	if !contains(abis, abi) {
		return sdkerrors.NewInvalidArgumentError("ABI_UNAVAILABLE",
			fmt.Sprintf("ABI %q has no %s image for API %d; available ABIs: %s",
				abi, variant, api, strings.Join(abis, ", "))).
			WithDetail("api", fmt.Sprintf("%d", api)).
			WithDetail("variant", variant).
			WithDetail("abi", abi).
			WithDetail("valid_abis", strings.Join(abis, ","))
	}

	if _, excluded := imageExclusions[exclusionKey(api, variant, abi)]; excluded {
		return sdkerrors.NewInvalidArgumentError("COMBINATION_UNAVAILABLE",
			fmt.Sprintf("the combination API %d / %s / %s was never published", api, variant, abi)).
			WithDetail("api", fmt.Sprintf("%d", api)).
			WithDetail("variant", variant).
			WithDetail("abi", abi)
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
