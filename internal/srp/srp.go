// Package srp implements the SRP-6a password-authenticated key exchange
// (SHA-256, RFC 5054 2048-bit group, g = 2).
//
// All functions are pure apart from the Generate* ones, which read from
// crypto/rand. Every value crossing the package boundary is a lowercase hex
// string, so callers can put them on the wire unchanged.
//
// Protocol summary:
//
//	x = H(s, H(I ":" p))            v = g^x
//	A = g^a                         B = k*v + g^b
//	u = H(PAD(A), PAD(B))
//	client S = (B - k*g^x)^(a + u*x)
//	server S = (A * v^u)^b
//	K = H(PAD(S))
//	M = H(H(N) xor H(g), H(I), s, PAD(A), PAD(B), K)
//	P = H(PAD(A), M, K)
package srp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"math/big"
)

var (
	// ErrInvalidEphemeral is returned for a public ephemeral that is
	// malformed, outside the group, or congruent to zero mod N.
	ErrInvalidEphemeral = errors.New("srp: invalid public ephemeral")
	// ErrInvalidProof is returned when a session proof does not match.
	ErrInvalidProof = errors.New("srp: invalid session proof")
	// ErrMalformed is returned for inputs that are not valid hex.
	ErrMalformed = errors.New("srp: malformed input")
)

// Ephemeral is a one-time key pair. Secret never leaves the party that
// generated it.
type Ephemeral struct {
	Secret string
	Public string
}

// Session is the outcome of a key exchange. Proof is the proof this party
// sends to its peer: M for the client, P for the server.
type Session struct {
	Key   string
	Proof string
}

// GenerateSalt returns a fresh random salt.
func GenerateSalt() (string, error) {
	b, err := randomBytes(SaltSize)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// DerivePrivateKey computes x = H(s, H(I ":" p)).
func DerivePrivateKey(salt, username, password string) (string, error) {
	s, err := decodeHex(salt)
	if err != nil {
		return "", err
	}
	inner := hash([]byte(username + ":" + password))
	return hex.EncodeToString(hash(s, inner)), nil
}

// DeriveVerifier computes v = g^x mod N.
func DeriveVerifier(privateKey string) (string, error) {
	x, err := decodeInt(privateKey)
	if err != nil {
		return "", err
	}
	v := modExp(g, x, N)
	return hex.EncodeToString(pad(v)), nil
}

// DecoyVerifier maps seed to a group element usable as a stand-in verifier,
// without knowing any private key. The seed is expanded with SHA-256 in
// counter mode to nLen+16 bytes and reduced mod N, so the result is close to
// uniform. It costs no exponentiation, which keeps the decoy login path as
// expensive as the real one.
func DecoyVerifier(seed []byte) string {
	buf := make([]byte, 0, nLen+48)
	for ctr := uint32(0); len(buf) < nLen+16; ctr++ {
		buf = append(buf, hash(seed, []byte{byte(ctr >> 24), byte(ctr >> 16), byte(ctr >> 8), byte(ctr)})...)
	}
	v := new(big.Int).SetBytes(buf[:nLen+16])
	v.Mod(v, N)
	if v.Sign() == 0 {
		v.SetInt64(1)
	}
	return hex.EncodeToString(pad(v))
}

// GenerateClientEphemeral returns a random a and A = g^a mod N.
func GenerateClientEphemeral() (Ephemeral, error) {
	a, err := randomSecret()
	if err != nil {
		return Ephemeral{}, err
	}
	A := modExp(g, a, N)
	return Ephemeral{
		Secret: hex.EncodeToString(a.Bytes()),
		Public: hex.EncodeToString(pad(A)),
	}, nil
}

// GenerateServerEphemeral returns a random b and B = (k*v + g^b) mod N.
func GenerateServerEphemeral(verifier string) (Ephemeral, error) {
	v, err := decodeInt(verifier)
	if err != nil {
		return Ephemeral{}, err
	}
	for {
		b, err := randomSecret()
		if err != nil {
			return Ephemeral{}, err
		}
		B := serverPublic(b, v)
		if B.Sign() == 0 {
			continue
		}
		return Ephemeral{
			Secret: hex.EncodeToString(b.Bytes()),
			Public: hex.EncodeToString(pad(B)),
		}, nil
	}
}

// ValidatePublicEphemeral rejects a public ephemeral that a peer must not
// accept: non-hex, not below N, or congruent to zero mod N.
func ValidatePublicEphemeral(public string) error {
	_, err := decodePublic(public)
	return err
}

// DeriveClientSession computes the client's session key and proof M from the
// client secret a, the server's public ephemeral B and the private key x.
func DeriveClientSession(clientSecret, serverPublic, salt, username, privateKey string) (Session, error) {
	a, err := decodeInt(clientSecret)
	if err != nil {
		return Session{}, err
	}
	B, err := decodePublic(serverPublic)
	if err != nil {
		return Session{}, err
	}
	s, err := decodeHex(salt)
	if err != nil {
		return Session{}, err
	}
	x, err := decodeInt(privateKey)
	if err != nil {
		return Session{}, err
	}

	A := modExp(g, a, N)
	u, err := scramble(A, B)
	if err != nil {
		return Session{}, err
	}

	// base = (B - k*g^x) mod N, kept non-negative by Mod
	kgx := modExp(g, x, N)
	kgx.Mul(kgx, k)
	base := new(big.Int).Sub(B, kgx)
	base.Mod(base, N)

	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, a)

	S := modExp(base, exp, N)
	K := hash(pad(S))
	M := clientProof(username, s, A, B, K)

	return Session{
		Key:   hex.EncodeToString(K),
		Proof: hex.EncodeToString(M),
	}, nil
}

// DeriveServerSession recomputes the shared key from the server secret b, the
// client's public ephemeral A and the verifier, and checks the client's proof
// in constant time. On success the returned Proof is the server proof P.
func DeriveServerSession(serverSecret, clientPublic, salt, username, verifier, proof string) (Session, error) {
	b, err := decodeInt(serverSecret)
	if err != nil {
		return Session{}, err
	}
	A, err := decodePublic(clientPublic)
	if err != nil {
		return Session{}, err
	}
	s, err := decodeHex(salt)
	if err != nil {
		return Session{}, err
	}
	v, err := decodeInt(verifier)
	if err != nil {
		return Session{}, err
	}
	got, err := decodeHex(proof)
	if err != nil {
		return Session{}, ErrInvalidProof
	}

	B := serverPublic(b, v)
	u, err := scramble(A, B)
	if err != nil {
		return Session{}, err
	}

	base := modExp(v, u, N)
	base.Mul(base, A)
	base.Mod(base, N)

	S := modExp(base, b, N)
	K := hash(pad(S))
	M := clientProof(username, s, A, B, K)

	if subtle.ConstantTimeCompare(M, got) != 1 {
		return Session{}, ErrInvalidProof
	}

	return Session{
		Key:   hex.EncodeToString(K),
		Proof: hex.EncodeToString(hash(pad(A), M, K)),
	}, nil
}

// VerifySession checks the server proof P against the client's own session.
func VerifySession(clientPublic string, session Session, proof string) error {
	A, err := decodePublic(clientPublic)
	if err != nil {
		return err
	}
	M, err := decodeHex(session.Proof)
	if err != nil {
		return err
	}
	K, err := decodeHex(session.Key)
	if err != nil {
		return err
	}
	got, err := decodeHex(proof)
	if err != nil {
		return ErrInvalidProof
	}

	if subtle.ConstantTimeCompare(hash(pad(A), M, K), got) != 1 {
		return ErrInvalidProof
	}
	return nil
}

func serverPublic(b, v *big.Int) *big.Int {
	B := new(big.Int).Mul(k, v)
	B.Add(B, modExp(g, b, N))
	return B.Mod(B, N)
}

func scramble(A, B *big.Int) (*big.Int, error) {
	u := new(big.Int).SetBytes(hash(pad(A), pad(B)))
	if u.Sign() == 0 {
		return nil, ErrInvalidEphemeral
	}
	return u, nil
}

func clientProof(username string, salt []byte, A, B *big.Int, K []byte) []byte {
	return hash(hNxorG, hash([]byte(username)), salt, pad(A), pad(B), K)
}

func randomSecret() (*big.Int, error) {
	for {
		b, err := randomBytes(secretSize)
		if err != nil {
			return nil, err
		}
		if x := new(big.Int).SetBytes(b); x.Sign() != 0 {
			return x, nil
		}
	}
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrMalformed
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrMalformed
	}
	return b, nil
}

func decodeInt(s string) (*big.Int, error) {
	b, err := decodeHex(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func decodePublic(s string) (*big.Int, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) == 0 {
		return nil, ErrInvalidEphemeral
	}
	x := new(big.Int).SetBytes(b)
	if x.Cmp(N) >= 0 || x.Sign() == 0 {
		return nil, ErrInvalidEphemeral
	}
	return x, nil
}
