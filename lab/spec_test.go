package lab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec_KeyOnly(t *testing.T) {
	spec, err := ParseSpec("minimal")
	require.NoError(t, err)
	assert.Equal(t, "minimal", spec.Key)
	assert.Empty(t, spec.Args)
	assert.Empty(t, spec.Params)
}

func TestParseSpec_KeywordArgs(t *testing.T) {
	// GIVEN a key with one keyword parameter
	spec, err := ParseSpec("rt,sched=fifo")

	// THEN the key is the substring before the first comma and the pair
	// appears in Params exactly once
	require.NoError(t, err)
	assert.Equal(t, "rt", spec.Key)
	assert.Equal(t, map[string]string{"sched": "fifo"}, spec.Params)
	assert.Empty(t, spec.Args)
}

func TestParseSpec_MixedArgs(t *testing.T) {
	spec, err := ParseSpec("linear,3,2,bw=10")
	require.NoError(t, err)
	assert.Equal(t, "linear", spec.Key)
	assert.Equal(t, []string{"3", "2"}, spec.Args)
	assert.Equal(t, map[string]string{"bw": "10"}, spec.Params)
}

func TestParseSpec_ValueContainingEquals(t *testing.T) {
	// Split happens on the first "=" only.
	spec, err := ParseSpec("remote,opts=a=b")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"opts": "a=b"}, spec.Params)
}

func TestParseSpec_DuplicateParam(t *testing.T) {
	_, err := ParseSpec("tc,bw=10,bw=20")
	require.Error(t, err)
	assert.True(t, IsUsage(err))
}

func TestParseSpec_Empty(t *testing.T) {
	_, err := ParseSpec("")
	require.Error(t, err)
	assert.True(t, IsUsage(err))
}

func TestSpec_StringRoundTrip(t *testing.T) {
	spec, err := ParseSpec("tree,depth=2,fanout=3")
	require.NoError(t, err)
	again, err := ParseSpec(spec.String())
	require.NoError(t, err)
	assert.Equal(t, spec, again)
}

func TestSpec_IntArgAndParams(t *testing.T) {
	spec, err := ParseSpec("torus,3,4,bw=12.5")
	require.NoError(t, err)

	x, err := spec.IntArg(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, x)

	missing, err := spec.IntArg(5, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, missing)

	bw, err := spec.FloatParam("bw", 0)
	require.NoError(t, err)
	assert.Equal(t, 12.5, bw)

	_, err = spec.IntParam("bw", 0)
	assert.Error(t, err, "12.5 is not an integer")
}

func TestSpec_Overlay(t *testing.T) {
	bound, err := ParseSpec("tc,bw=10,delay=5")
	require.NoError(t, err)
	user, err := ParseSpec("fast,bw=100")
	require.NoError(t, err)

	merged := bound.overlay(user)
	assert.Equal(t, "tc", merged.Key)
	assert.Equal(t, "100", merged.Params["bw"], "caller parameter wins")
	assert.Equal(t, "5", merged.Params["delay"], "bound parameter survives")
}
