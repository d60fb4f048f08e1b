// Package cbor wraps github.com/fxamacker/cbor with the encoding and decoding
// options the token and audit layers require:
//
//  1. CBOR is encoded using Core Deterministic Encoding defined in RFC 8949,
//     so that MAC computation operates on a canonical byte form.
//  2. The decoder detects and rejects duplicate map keys, which matters when
//     decoding attacker-supplied token payloads.
package cbor

import (
	"github.com/fxamacker/cbor/v2" // imports as cbor
)

var (
	// encOptions specifies how CBOR should be encoded.
	encOptions = cbor.EncOptions{
		// Encoding options required by Core Deterministic Encoding,
		// see https://datatracker.ietf.org/doc/html/rfc8949#section-4.2.1
		InfConvert:    cbor.InfConvertFloat16,
		IndefLength:   cbor.IndefLengthForbidden,
		NaNConvert:    cbor.NaNConvert7e00,
		ShortestFloat: cbor.ShortestFloat16,
		Sort:          cbor.SortCoreDeterministic,

		// We don't use tags
		TagsMd: cbor.TagsForbidden,
	}

	// decOptions specifies how CBOR should be decoded.
	decOptions = cbor.DecOptions{
		IndefLength: cbor.IndefLengthForbidden,

		// Sanity checks on attacker-controlled input
		DupMapKey: cbor.DupMapKeyEnforcedAPF,

		// We don't use tags
		TagsMd:  cbor.TagsForbidden,
		TimeTag: cbor.DecTagIgnored,
	}

	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = encOptions.EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = decOptions.DecMode(); err != nil {
		panic(err)
	}
}

// Marshal encodes src into a CBOR-encoded byte slice.
func Marshal(src interface{}) ([]byte, error) {
	return encMode.Marshal(src)
}

// Unmarshal decodes CBOR in data into dst.
func Unmarshal(data []byte, dst interface{}) error {
	return decMode.Unmarshal(data, dst)
}
