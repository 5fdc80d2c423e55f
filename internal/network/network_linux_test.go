//go:build linux

package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/netgen/internal/testutil"
)

func TestRealNetlinker_Loopback(t *testing.T) {
	testutil.RequireKernel(t)

	r := NewResolver(DefaultNetlinker)
	devices, err := r.Devices()
	require.NoError(t, err)
	assert.NotEmpty(t, devices)
	assert.True(t, r.LinkExists("lo"))
	assert.False(t, r.LinkExists("netgen-nonexistent0"))
}
