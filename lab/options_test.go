package lab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTest_AliasTableIsExact(t *testing.T) {
	assert.Equal(t, "pingAll", NormalizeTest("pingall"))
	assert.Equal(t, "pingPair", NormalizeTest("pingpair"))
	assert.Equal(t, "iperfUdp", NormalizeTest("iperfudp"))
	assert.Equal(t, "iperfTest", NormalizeTest("iperftest"))

	// Canonical spellings and unrecognized names pass through unchanged.
	assert.Equal(t, "pingAll", NormalizeTest("pingAll"))
	assert.Equal(t, "foo", NormalizeTest("foo"))
}

func TestOptionsValidate_MutuallyExclusiveModes(t *testing.T) {
	opts := testOptions()
	opts.InNamespace = true
	opts.Servers = []string{"srv1", "srv2"}

	err := opts.Validate()
	require.Error(t, err)
	assert.True(t, IsUsage(err))
}

func TestOptionsValidate_UnknownTest(t *testing.T) {
	opts := testOptions()
	opts.Test = "foo"

	err := opts.Validate()
	require.Error(t, err)
	assert.True(t, IsUsage(err))
	assert.Contains(t, err.Error(), "foo")
}

func TestOptionsValidate_AliasedTestAccepted(t *testing.T) {
	opts := testOptions()
	opts.Test = "pingall"
	assert.NoError(t, opts.Validate())
}

func TestOptionsValidate_UnknownPlacementBeforeBuild(t *testing.T) {
	opts := testOptions()
	opts.Servers = []string{"srv1"}
	opts.Placement = "spiral"

	err := opts.Validate()
	require.Error(t, err)
	assert.True(t, IsUsage(err))
}

func TestOptionsValidate_MalformedRoleSpec(t *testing.T) {
	opts := testOptions()
	opts.Link = "tc,bw=1,bw=2"

	err := opts.Validate()
	require.Error(t, err)
	assert.True(t, IsUsage(err))
}

func TestOptionsValidate_MalformedNATSpec(t *testing.T) {
	opts := testOptions()
	opts.NAT = true
	opts.NATSpec = ""
	assert.NoError(t, opts.Validate(), "empty NAT spec means defaults")

	opts.NATSpec = "nat0,ip=1,ip=2"
	err := opts.Validate()
	require.Error(t, err)
	assert.True(t, IsUsage(err))
}
