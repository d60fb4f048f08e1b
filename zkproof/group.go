// Package zkproof implements the Pedersen commitment scheme and the
// non-interactive sigma protocol proving knowledge of the committed value and
// its blinding factor, bound to a single-use challenge nonce.
package zkproof

import (
	"github.com/bwesterb/go-exptable"
	"github.com/go-errors/errors"

	"github.com/biolock/zkauth/big"
)

// Group is the multiplicative group of a prime field, with the two fixed
// independent generators the commitment scheme uses. Exponents are reduced
// mod Order = P-1; elements mod P.
type Group struct {
	P     *big.Int
	Order *big.Int
	G     *big.Int
	H     *big.Int

	GTable exptable.Table
	HTable exptable.Table
}

// BuildGroup constructs a Group over the given prime with the given
// generators, precomputing fixed-base exponentiation tables for both.
func BuildGroup(p, g, h *big.Int) (*Group, error) {
	if !p.ProbablyPrime(80) {
		return nil, errors.New("group modulus is not prime")
	}
	two := big.NewInt(2)
	pMinusOne := new(big.Int).Sub(p, big.NewInt(1))
	if g.Cmp(two) < 0 || g.Cmp(pMinusOne) >= 0 {
		return nil, errors.New("generator g out of range")
	}
	if h.Cmp(two) < 0 || h.Cmp(pMinusOne) >= 0 {
		return nil, errors.New("generator h out of range")
	}
	if g.Cmp(h) == 0 {
		return nil, errors.New("generators must be distinct")
	}

	result := &Group{
		P:     new(big.Int).Set(p),
		Order: pMinusOne,
		G:     new(big.Int).Set(g),
		H:     new(big.Int).Set(h),
	}
	result.GTable.Compute(result.G.Go(), result.P.Go(), 7)
	result.HTable.Compute(result.H.Go(), result.P.Go(), 7)
	return result, nil
}

// DemoGroup returns the group over the Mersenne prime 2^61-1 with generators
// 3 and 7. The 61-bit modulus offers no real discrete-log hardness and is
// meant for tests and interoperability with existing clients only; use
// DefaultGroup for anything that needs to withstand an adversary.
func DemoGroup() *Group {
	p := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 61), big.NewInt(1))
	g, err := BuildGroup(p, big.NewInt(3), big.NewInt(7))
	if err != nil {
		panic(err)
	}
	return g
}

// modp3072 is the 3072-bit MODP group modulus from RFC 3526, section 4.
const modp3072 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AAAC42DAD33170D04507A33A85521ABDF1CBA64" +
	"ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
	"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6B" +
	"F12FFA06D98A0864D87602733EC86A64521F2B18177B200C" +
	"BBE117577A615D6C770988C0BAD946E208E24FA074E5AB31" +
	"43DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF"

// DefaultGroup returns a group over the RFC 3526 3072-bit MODP prime. The
// generators are derived from fixed public exponentiations, the same way the
// demo generators are fixed constants, so that no party knows the discrete
// log of h with respect to g.
func DefaultGroup() *Group {
	p, ok := new(big.Int).SetString(modp3072, 16)
	if !ok {
		panic("invalid modp3072 constant")
	}
	g := new(big.Int).Exp(big.NewInt(0x41424344), big.NewInt(0x45464748), p)
	h := new(big.Int).Exp(big.NewInt(0x494A4B4C), big.NewInt(0x4D4E4F50), p)
	group, err := BuildGroup(p, g, h)
	if err != nil {
		panic(err)
	}
	return group
}

// exp computes base^exponent mod P via the precomputed table for the named
// generator. The exponent must already be reduced mod Order.
func (g *Group) exp(ret *big.Int, table *exptable.Table, exponent *big.Int) {
	table.Exp(ret.Go(), exponent.Go())
}
