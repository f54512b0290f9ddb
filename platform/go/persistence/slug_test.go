package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "lowercases", in: "Kopi-Kenangan", want: "kopi-kenangan"},
		{name: "trims", in: "  warung-88  ", want: "warung-88"},
		{name: "plain", in: "toko", want: "toko"},
		{name: "empty", in: "", wantErr: true},
		{name: "spaces-inside", in: "kopi kenangan", wantErr: true},
		{name: "leading-hyphen", in: "-toko", wantErr: true},
		{name: "trailing-hyphen", in: "toko-", wantErr: true},
		{name: "double-hyphen", in: "toko--baru", wantErr: true},
		{name: "unicode", in: "tokó", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSlug(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSlugFromName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "spaces-become-hyphens", in: "Kopi Kenangan", want: "kopi-kenangan"},
		{name: "punctuation-dropped", in: "Warung Pak Budi!", want: "warung-pak-budi"},
		{name: "collapses-runs", in: "Toko   Baru -- 88", want: "toko-baru-88"},
		{name: "already-clean", in: "bakso-88", want: "bakso-88"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SlugFromName(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("nothing-usable", func(t *testing.T) {
		_, err := SlugFromName("!!!")
		require.Error(t, err)
	})
}
