package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
)

func assertInvalidWithCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	fe, ok := sdkerrors.AsSdkForgeError(err)
	require.True(t, ok)
	assert.Equal(t, sdkerrors.ErrorTypeInvalidArgument, fe.Type)
	assert.Equal(t, code, fe.Code)
}

func TestValidateCombinationAcceptsPublishedTriples(t *testing.T) {
	valid := []struct {
		api     int
		variant string
		abi     string
	}{
		{30, "google_atd", "arm64-v8a"},
		{30, "google_atd", "x86_64"},
		{21, "default", "armeabi-v7a"},
		{34, "google_apis", "x86_64"},
		{35, "google_apis_playstore", "arm64-v8a"},
		{33, "aosp_atd", "arm64-v8a"},
	}

	for _, tt := range valid {
		assert.NoError(t, ValidateCombination(tt.api, tt.variant, tt.abi),
			"%d/%s/%s should be valid", tt.api, tt.variant, tt.abi)
	}
}

func TestValidateCombinationAPIRange(t *testing.T) {
	assertInvalidWithCode(t, ValidateCombination(20, "google_apis", "x86_64"), "API_OUT_OF_RANGE")
	assertInvalidWithCode(t, ValidateCombination(36, "google_apis", "x86_64"), "API_OUT_OF_RANGE")
	assertInvalidWithCode(t, ValidateCombination(-1, "google_apis", "x86_64"), "API_OUT_OF_RANGE")
}

func TestValidateCombinationUnknownVariantListsAlternatives(t *testing.T) {
	// google_atd exists, but not at API 25.
	err := ValidateCombination(25, "google_atd", "x86_64")
	assertInvalidWithCode(t, err, "VARIANT_UNAVAILABLE")
	assert.Contains(t, err.Error(), "default")
	assert.Contains(t, err.Error(), "google_apis")
	assert.NotContains(t, err.Error(), "google_atd,")

	err = ValidateCombination(30, "made_up_variant", "x86_64")
	assertInvalidWithCode(t, err, "VARIANT_UNAVAILABLE")
	assert.Contains(t, err.Error(), "google_atd")
}

func TestValidateCombinationBadABIListsAlternatives(t *testing.T) {
	// x86 images stopped before API 31 for the default variant.
	err := ValidateCombination(31, "default", "x86")
	assertInvalidWithCode(t, err, "ABI_UNAVAILABLE")
	assert.Contains(t, err.Error(), "arm64-v8a")
	assert.Contains(t, err.Error(), "x86_64")

	fe, _ := sdkerrors.AsSdkForgeError(err)
	assert.Equal(t, "arm64-v8a,x86_64", fe.Details["valid_abis"])
}

func TestValidateCombinationPublishedGap(t *testing.T) {
	// Every dimension is individually plausible; the exact triple was never
	// published.
	err := ValidateCombination(34, "aosp_atd", "arm64-v8a")
	assertInvalidWithCode(t, err, "COMBINATION_UNAVAILABLE")

	// The sibling ABI remains valid.
	assert.NoError(t, ValidateCombination(34, "aosp_atd", "x86_64"))
}

func TestVariantsForAPI(t *testing.T) {
	assert.Equal(t, []string{"default", "google_apis"}, VariantsForAPI(21))
	assert.Equal(t,
		[]string{"aosp_atd", "default", "google_apis", "google_apis_playstore", "google_atd"},
		VariantsForAPI(30))
	assert.Equal(t, []string{"default", "google_apis", "google_apis_playstore"}, VariantsForAPI(35))
	assert.Empty(t, VariantsForAPI(99))
}

func TestABIsFor(t *testing.T) {
	assert.Equal(t, []string{"arm64-v8a", "armeabi-v7a", "x86", "x86_64"}, ABIsFor(21, "default"))
	assert.Equal(t, []string{"arm64-v8a", "x86_64"}, ABIsFor(31, "default"))
	assert.Empty(t, ABIsFor(21, "google_atd"))
	assert.Empty(t, ABIsFor(30, "nope"))
}

func TestVariantsSorted(t *testing.T) {
	assert.Equal(t,
		[]string{"aosp_atd", "default", "google_apis", "google_apis_playstore", "google_atd"},
		Variants())
}
