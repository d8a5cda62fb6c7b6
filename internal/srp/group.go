package srp

import (
	"crypto/sha256"
	"math/big"
)

// RFC 5054 2048-bit group.
const groupPrime = "" +
	"AC6BDB41324A9A9BF166DE5E1389582FAF72B6651987EE07FC3192943DB56050" +
	"A37329CBB4A099ED8193E0757767A13DD52312AB4B03310DCD7F48A9DA04FD50" +
	"E8083969EDB767B0CF6095179A163AB3661A05FBD5FAAAE82918A9962F0B93B8" +
	"55F97993EC975EEAA80D740ADBF4FF747359D041D5C33EA71D281E446B14773B" +
	"CA97B43A23FB801676BD207A436C6481F1D2B9078717461A5B9D32E688F87748" +
	"544523B524B0D57D5EA77A2775D2ECFA032CFBDBF52FB3786160279004E57AE6" +
	"AF874E7303CE53299CCC041C7BC308D82A5698F3A8D0C38271AE35F8E9DBFBB6" +
	"94B5C803D89F7AE435DE236D525F54759B65E372FCD68EF20FA7111F9E4AFF73"

const (
	// secretSize is the length in bytes of the random ephemeral secrets a and b.
	secretSize = 32
	// SaltSize is the length in bytes of a generated salt.
	SaltSize = 32
)

var (
	// N is the group prime.
	N = mustPrime(groupPrime)
	g = big.NewInt(2)

	// byte length of N; every group element is left-padded to it
	nLen = (N.BitLen() + 7) / 8

	// k = H(N, PAD(g))
	k = new(big.Int).SetBytes(hash(N.Bytes(), pad(g)))

	// H(N) xor H(g), the first term of the client proof
	hNxorG = func() []byte {
		hn := hash(N.Bytes())
		hg := hash(g.Bytes())
		for i := range hn {
			hn[i] ^= hg[i]
		}
		return hn
	}()
)

// modExp computes x^y mod m. Every exponentiation in the package goes
// through it.
var modExp = func(x, y, m *big.Int) *big.Int {
	return new(big.Int).Exp(x, y, m)
}

func mustPrime(s string) *big.Int {
	p, ok := new(big.Int).SetString(s, 16)
	if !ok || !p.ProbablyPrime(10) {
		panic("srp: bad group prime")
	}
	return p
}

func hash(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// pad returns x as a big-endian byte string of exactly nLen bytes.
// x must be in [0, N).
func pad(x *big.Int) []byte {
	b := make([]byte, nLen)
	return x.FillBytes(b)
}
