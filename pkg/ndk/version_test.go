package ndk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
)

func TestFromAlias(t *testing.T) {
	v, err := FromAlias("r26d")
	require.NoError(t, err)
	assert.Equal(t, "r26d", v.Alias)
	assert.Equal(t, "26.3.11579264", v.Canonical)
	assert.Equal(t, 26, v.Major)
	assert.Equal(t, 3, v.Minor)
	assert.Equal(t, 11579264, v.Patch)
}

func TestFromAliasUnknown(t *testing.T) {
	_, err := FromAlias("r99z")
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeInvalidArgument))
	assert.Contains(t, err.Error(), "known aliases")
	assert.Contains(t, err.Error(), "r26d")
}

func TestFromCanonical(t *testing.T) {
	tests := []struct {
		name      string
		canonical string
		wantAlias string
	}{
		{"table hit", "26.3.11579264", "r26d"},
		{"table hit oldest", "21.4.7075529", "r21e"},
		{"guessed plain release", "29.0.12345", "r29"},
		{"guessed lettered release", "29.1.12345", "r29b"},
		{"guessed later letter", "29.3.12345", "r29d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromCanonical(tt.canonical)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAlias, v.Alias)
			assert.Equal(t, tt.canonical, v.Canonical)
		})
	}
}

func TestFromCanonicalRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "26", "26.3", "r26d", "26.3.x", "26.-1.4"} {
		_, err := FromCanonical(bad)
		assert.Error(t, err, "input %q", bad)
		assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeInvalidArgument), "input %q", bad)
	}
}

func TestIsCanonical(t *testing.T) {
	assert.True(t, IsCanonical("26.3.11579264"))
	assert.False(t, IsCanonical("r26d"))
	assert.False(t, IsCanonical("26.3"))
}

func TestAliasesSorted(t *testing.T) {
	aliases := Aliases()
	require.NotEmpty(t, aliases)
	assert.Contains(t, aliases, "r26d")
	for i := 1; i < len(aliases); i++ {
		assert.Less(t, aliases[i-1], aliases[i])
	}
}

func TestSpecValidate(t *testing.T) {
	assert.NoError(t, SpecFromAlias("r26d").Validate())
	assert.NoError(t, SpecFromPath("/opt/ndk").Validate())

	err := Spec{}.Validate()
	require.Error(t, err)
	fe, ok := sdkerrors.AsSdkForgeError(err)
	require.True(t, ok)
	assert.Equal(t, sdkerrors.ErrorTypeInvalidArgument, fe.Type)
	assert.Equal(t, "NDK_SPEC_EMPTY", fe.Code)

	err = Spec{Alias: "r26d", Path: "/opt/ndk"}.Validate()
	require.Error(t, err)
	fe, ok = sdkerrors.AsSdkForgeError(err)
	require.True(t, ok)
	assert.Equal(t, "NDK_SPEC_AMBIGUOUS", fe.Code)
}

func TestSpecString(t *testing.T) {
	assert.Equal(t, "r26d", SpecFromAlias("r26d").String())
	assert.Equal(t, "path:/opt/ndk", SpecFromPath("/opt/ndk").String())
}
