package zkproof

import (
	"github.com/go-errors/errors"

	"github.com/biolock/zkauth/big"
	"github.com/biolock/zkauth/internal/common"
)

// Proof is a non-interactive proof of knowledge of the (value, randomness)
// pair underlying a Pedersen commitment: the blinding commitment T and the
// two responses. All three are field elements, hex-encoded on the wire; the
// structure is fixed, extra or missing fields fail parsing.
type Proof struct {
	T  *big.Int `json:"T"`
	Zv *big.Int `json:"z_v"`
	Zr *big.Int `json:"z_r"`
}

// ParseProof parses the hex wire representation of a proof.
func ParseProof(t, zv, zr string) (*Proof, error) {
	var p Proof
	var err error
	if p.T, err = big.ParseHex(t); err != nil {
		return nil, errors.WrapPrefix(err, "invalid T", 0)
	}
	if p.Zv, err = big.ParseHex(zv); err != nil {
		return nil, errors.WrapPrefix(err, "invalid z_v", 0)
	}
	if p.Zr, err = big.ParseHex(zr); err != nil {
		return nil, errors.WrapPrefix(err, "invalid z_r", 0)
	}
	return &p, nil
}

// challenge derives the Fiat-Shamir challenge from the commitment, the
// blinding commitment and the nonce. Binding the nonce here is what makes a
// proof valid for exactly one issued challenge.
func (g *Group) challenge(c, t *big.Int, nonce string) *big.Int {
	h := common.HashCommit([]*big.Int{c, t, common.IntHashSha256([]byte(nonce))})
	return h.Mod(h, g.P)
}

// GenerateProof proves knowledge of the field element derived from secret and
// of a freshly drawn blinding factor, bound to the given nonce. It returns
// the commitment and the proof; the blinding factor itself never leaves this
// function.
func (g *Group) GenerateProof(secret []byte, nonce string) (*big.Int, *Proof, error) {
	value := common.HashToField(secret, g.P)
	r, err := common.RandomInRange(g.P)
	if err != nil {
		return nil, nil, err
	}

	c := g.Commit(value, r)

	vBlind, err := common.RandomInRange(g.P)
	if err != nil {
		return nil, nil, err
	}
	rBlind, err := common.RandomInRange(g.P)
	if err != nil {
		return nil, nil, err
	}
	t := g.Commit(vBlind, rBlind)

	chal := g.challenge(c, t, nonce)

	// Responses are taken mod the group order p-1, not mod p: the responses
	// live in the exponent. Reducing mod p instead silently breaks
	// verification for a fraction of inputs.
	zv := new(big.Int).Mul(chal, value)
	zv.Add(zv, new(big.Int).Mod(vBlind, g.Order))
	zv.Mod(zv, g.Order)

	zr := new(big.Int).Mul(chal, r)
	zr.Add(zr, new(big.Int).Mod(rBlind, g.Order))
	zr.Mod(zr, g.Order)

	return c, &Proof{T: t, Zv: zv, Zr: zr}, nil
}

// VerifyProof checks that the proof demonstrates knowledge of the opening of
// commitment, bound to nonce: g^z_v * h^z_r == T * C^c (mod p) for the
// recomputed challenge c. It is a pure predicate: nil, malformed or
// out-of-range input yields false, never a panic or an error.
func (g *Group) VerifyProof(commitment *big.Int, proof *Proof, nonce string) bool {
	if commitment == nil || proof == nil || proof.T == nil || proof.Zv == nil || proof.Zr == nil {
		return false
	}
	one := big.NewInt(1)
	if commitment.Cmp(one) < 0 || commitment.Cmp(g.P) >= 0 {
		return false
	}
	if proof.T.Cmp(one) < 0 || proof.T.Cmp(g.P) >= 0 {
		return false
	}
	if proof.Zv.Sign() < 0 || proof.Zv.Cmp(g.Order) >= 0 {
		return false
	}
	if proof.Zr.Sign() < 0 || proof.Zr.Cmp(g.Order) >= 0 {
		return false
	}

	chal := g.challenge(commitment, proof.T, nonce)

	lhs := g.Commit(proof.Zv, proof.Zr)

	rhs := new(big.Int).Exp(commitment, chal, g.P)
	rhs.Mul(rhs, proof.T)
	rhs.Mod(rhs, g.P)

	return lhs.Cmp(rhs) == 0
}
