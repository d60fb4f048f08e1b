package common

import (
	"crypto/sha256"
	"encoding/asn1"

	"github.com/biolock/zkauth/big"

	gobig "math/big"
)

// HashCommit computes the sha256 hash over the asn1 representation of a slice
// of big integers and returns a positive big integer that can be represented
// with that hash. The first element is the number of elements, so that
// concatenation ambiguity cannot produce colliding inputs.
func HashCommit(values []*big.Int) *big.Int {
	tmp := make([]interface{}, len(values)+1)
	tmp[0] = gobig.NewInt(int64(len(values)))
	for i, v := range values {
		tmp[i+1] = v.Go()
	}
	r, err := asn1.Marshal(tmp)
	if err != nil {
		panic(err) // Marshal should never error, so panic if it does
	}

	sha := sha256.Sum256(r)
	return new(big.Int).SetBytes(sha[:])
}

// IntHashSha256 is a utility function to compute the sha256 hash over a byte
// array and return this hash as a big.Int.
func IntHashSha256(input []byte) *big.Int {
	h := sha256.New()
	h.Write(input)
	return new(big.Int).SetBytes(h.Sum(nil))
}

// HashToField maps arbitrary bytes onto a field element by reducing their
// sha256 digest mod p.
func HashToField(input []byte, p *big.Int) *big.Int {
	return new(big.Int).Mod(IntHashSha256(input), p)
}
