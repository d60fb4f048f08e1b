package zkproof

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biolock/zkauth/big"
)

var testGroup = DemoGroup()

func TestCompleteness(t *testing.T) {
	for _, secret := range []string{"alice", "bob", "", "correct horse battery staple"} {
		for _, nonce := range []string{"n1", "8a4f2c", "another-nonce"} {
			c, proof, err := testGroup.GenerateProof([]byte(secret), nonce)
			require.NoError(t, err)
			assert.True(t, testGroup.VerifyProof(c, proof, nonce),
				"proof for secret %q nonce %q did not verify", secret, nonce)
		}
	}
}

func TestNonceBinding(t *testing.T) {
	c, proof, err := testGroup.GenerateProof([]byte("alice"), "nonce-1")
	require.NoError(t, err)
	assert.True(t, testGroup.VerifyProof(c, proof, "nonce-1"))
	assert.False(t, testGroup.VerifyProof(c, proof, "nonce-2"))
	assert.False(t, testGroup.VerifyProof(c, proof, ""))
}

func TestTamperRejection(t *testing.T) {
	c, proof, err := testGroup.GenerateProof([]byte("alice"), "nonce")
	require.NoError(t, err)

	flip := func(x *big.Int) *big.Int {
		return new(big.Int).Xor(x, big.NewInt(1))
	}

	assert.False(t, testGroup.VerifyProof(flip(c), proof, "nonce"))
	assert.False(t, testGroup.VerifyProof(c, &Proof{T: flip(proof.T), Zv: proof.Zv, Zr: proof.Zr}, "nonce"))
	assert.False(t, testGroup.VerifyProof(c, &Proof{T: proof.T, Zv: flip(proof.Zv), Zr: proof.Zr}, "nonce"))
	assert.False(t, testGroup.VerifyProof(c, &Proof{T: proof.T, Zv: proof.Zv, Zr: flip(proof.Zr)}, "nonce"))
}

func TestVerifyMalformed(t *testing.T) {
	c, proof, err := testGroup.GenerateProof([]byte("alice"), "nonce")
	require.NoError(t, err)

	assert.False(t, testGroup.VerifyProof(nil, proof, "nonce"))
	assert.False(t, testGroup.VerifyProof(c, nil, "nonce"))
	assert.False(t, testGroup.VerifyProof(c, &Proof{}, "nonce"))
	assert.False(t, testGroup.VerifyProof(big.NewInt(0), proof, "nonce"))

	// out of range elements
	assert.False(t, testGroup.VerifyProof(new(big.Int).Set(testGroup.P), proof, "nonce"))
	assert.False(t, testGroup.VerifyProof(c,
		&Proof{T: proof.T, Zv: new(big.Int).Set(testGroup.Order), Zr: proof.Zr}, "nonce"))
}

func TestParseProof(t *testing.T) {
	p, err := ParseProof("0xab", "0x12", "0x34")
	require.NoError(t, err)
	assert.Equal(t, int64(0xab), p.T.Int64())

	_, err = ParseProof("nothex", "0x12", "0x34")
	assert.Error(t, err)
	_, err = ParseProof("0xab", "", "0x34")
	assert.Error(t, err)
	_, err = ParseProof("0xab", "0x12", "0x")
	assert.Error(t, err)
}

func TestProofWireForm(t *testing.T) {
	_, proof, err := testGroup.GenerateProof([]byte("alice"), "nonce")
	require.NoError(t, err)

	bts, err := json.Marshal(proof)
	require.NoError(t, err)

	var decoded Proof
	require.NoError(t, json.Unmarshal(bts, &decoded))
	assert.Zero(t, proof.T.Cmp(decoded.T))
	assert.Zero(t, proof.Zv.Cmp(decoded.Zv))
	assert.Zero(t, proof.Zr.Cmp(decoded.Zr))
}

func TestCommitDeterministic(t *testing.T) {
	v := big.NewInt(42)
	r := big.NewInt(1337)
	assert.Zero(t, testGroup.Commit(v, r).Cmp(testGroup.Commit(v, r)))
	assert.NotZero(t, testGroup.Commit(v, r).Cmp(testGroup.Commit(v, big.NewInt(1338))))
}
