package fairness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var zeroSeed = strings.Repeat("0", 64)

func TestSHA256Hex(t *testing.T) {
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", SHA256Hex("abc"))
	require.Equal(t, "60e05bd1b195af2f94112fa7197a5c88289058840ce7c6df9693756bc6250f55", ServerSeedHash(zeroSeed))
}

func TestUint52Pinned(t *testing.T) {
	require.Equal(t, uint64(2115505069108690), Uint52(zeroSeed, Message("abc", 1, "dice")))
	require.Equal(t, uint64(797795711226466), Uint52(zeroSeed, "abc:1"))
}

func TestUniform01(t *testing.T) {
	u := Uniform01(zeroSeed, "abc", 1, "dice")
	require.Equal(t, float64(2115505069108690)/float64(1<<52), u)
	require.InDelta(t, 0.4697364872871401, u, 1e-15)

	require.InDelta(t, 0.7464748214398538, Uniform01(zeroSeed, "abc", 1, "reel:0"), 1e-15)
}

func TestUniform01Deterministic(t *testing.T) {
	for nonce := int64(1); nonce <= 200; nonce++ {
		a := Uniform01("seed", "client", nonce, "reel:3")
		b := Uniform01("seed", "client", nonce, "reel:3")
		require.Equal(t, a, b)
		require.GreaterOrEqual(t, a, 0.0)
		require.Less(t, a, 1.0)
	}
	require.NotEqual(t,
		Uniform01("seed", "client", 1, "reel:0"),
		Uniform01("seed", "client", 1, "reel:1"))
}

func TestNewServerSeed(t *testing.T) {
	a, err := NewServerSeed()
	require.NoError(t, err)
	b, err := NewServerSeed()
	require.NoError(t, err)

	require.Len(t, a, 64)
	require.NotEqual(t, a, b)
	require.True(t, Verify(a, ServerSeedHash(a)))
	require.False(t, Verify(b, ServerSeedHash(a)))
}
