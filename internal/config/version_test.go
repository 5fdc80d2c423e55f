package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"", Version{1, 0}, false},
		{"1.0", Version{1, 0}, false},
		{"2.13", Version{2, 13}, false},
		{"1", Version{}, true},
		{"1.x", Version{}, true},
		{"a.0", Version{}, true},
		{"1.-1", Version{}, true},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestVersion_Readable(t *testing.T) {
	assert.True(t, Version{1, 0}.Readable(Version{1, 2}))
	assert.True(t, Version{1, 2}.Readable(Version{1, 2}))
	assert.False(t, Version{1, 3}.Readable(Version{1, 2}))
	assert.False(t, Version{2, 0}.Readable(Version{1, 9}))
	assert.Equal(t, "1.0", CurrentVersion.String())
}

func TestCheckVersion(t *testing.T) {
	assert.NoError(t, checkVersion(""))
	assert.NoError(t, checkVersion(CurrentVersion.String()))
	assert.ErrorContains(t, checkVersion("2.0"), "unsupported")
	assert.ErrorContains(t, checkVersion("1.9"), "newer")
	assert.Error(t, checkVersion("one"))
}
