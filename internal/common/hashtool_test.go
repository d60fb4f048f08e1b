package common

import (
	"testing"

	"github.com/biolock/zkauth/big"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashCommitDeterministic(t *testing.T) {
	in := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	h1 := HashCommit(in)
	h2 := HashCommit(in)
	assert.Zero(t, h1.Cmp(h2))
	assert.True(t, h1.Sign() > 0)
}

func TestHashCommitLengthPrefixed(t *testing.T) {
	// [1, 2] and [1, 2, 0] must not collide despite the zero tail
	h1 := HashCommit([]*big.Int{big.NewInt(1), big.NewInt(2)})
	h2 := HashCommit([]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(0)})
	assert.NotZero(t, h1.Cmp(h2))
}

func TestHashToField(t *testing.T) {
	p, ok := new(big.Int).SetString("1fffffffffffffff", 16)
	require.True(t, ok)

	e := HashToField([]byte("alice"), p)
	assert.True(t, e.Sign() >= 0)
	assert.True(t, e.Cmp(p) < 0)
	assert.Zero(t, e.Cmp(HashToField([]byte("alice"), p)))
	assert.NotZero(t, e.Cmp(HashToField([]byte("bob"), p)))
}
