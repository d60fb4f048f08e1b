package zkproof

import (
	"github.com/biolock/zkauth/big"
)

// Commit computes the Pedersen commitment g^value * h^randomness mod P.
// The commitment is deterministic given its inputs; it hides value only if
// randomness was drawn fresh from a cryptographically secure source and is
// never reused across commitments.
func (g *Group) Commit(value, randomness *big.Int) *big.Int {
	var gv, hr big.Int
	v := new(big.Int).Mod(value, g.Order)
	r := new(big.Int).Mod(randomness, g.Order)
	g.exp(&gv, &g.GTable, v)
	g.exp(&hr, &g.HTable, r)

	c := new(big.Int).Mul(&gv, &hr)
	return c.Mod(c, g.P)
}
