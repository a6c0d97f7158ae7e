package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"

	"github.com/freelan-go/freelan/pkg/wire"
)

// ErrCurveNotSupported is returned for a curve the negotiation accepted on
// the wire but this build cannot actually perform ECDHE with. sect571k1 is
// a binary (characteristic-2) curve; neither the Go standard library nor
// any dependency already in this module implements GF(2^m) arithmetic, so
// it is declared for wire compatibility only and always fails here.
var ErrCurveNotSupported = errors.New("crypto: elliptic curve not supported by this build")

// ECDHECurve returns the crypto/ecdh.Curve implementing an FSCP
// EllipticCurve wire identifier, or ErrCurveNotSupported.
func ECDHECurve(c wire.EllipticCurve) (ecdh.Curve, error) {
	switch c {
	case wire.CurveSecp384r1:
		return ecdh.P384(), nil
	case wire.CurveSecp521r1:
		return ecdh.P521(), nil
	case wire.CurveSect571k1:
		return nil, ErrCurveNotSupported
	default:
		return nil, ErrCurveNotSupported
	}
}

// GenerateEphemeral creates a fresh ECDHE key pair on the given curve for
// one session negotiation (spec §4.4.2). The private key must never be
// reused across sessions.
func GenerateEphemeral(curve ecdh.Curve) (*ecdh.PrivateKey, error) {
	return curve.GenerateKey(rand.Reader)
}

// ECDH computes the shared secret for a session from the local ephemeral
// private key and the remote peer's ephemeral public key bytes, as
// exchanged in the SESSION message (spec §4.4.2).
func ECDH(curve ecdh.Curve, priv *ecdh.PrivateKey, remotePubBytes []byte) ([]byte, error) {
	remotePub, err := curve.NewPublicKey(remotePubBytes)
	if err != nil {
		return nil, err
	}
	return priv.ECDH(remotePub)
}
