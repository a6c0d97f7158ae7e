package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
)

// ErrInvalidSignature is returned by Verify when the signature does not
// match the payload under the given key.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// SaltLength matches the digest size, the common choice for RSA-PSS and
// the one FSCP's SESSION_REQUEST/SESSION authentication uses.
const saltLength = rsa.PSSSaltLengthEqualsHash

// SignRSAPSS signs payload with RSA-PSS over SHA-256, as used to
// authenticate SESSION_REQUEST and SESSION messages under a peer's
// signature certificate (spec §4.4.2, §6).
func SignRSAPSS(key *rsa.PrivateKey, payload []byte) ([]byte, error) {
	digest := sha256.Sum256(payload)
	return rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{SaltLength: saltLength})
}

// VerifyRSAPSS verifies an RSA-PSS signature produced by SignRSAPSS.
func VerifyRSAPSS(pub *rsa.PublicKey, payload, signature []byte) error {
	digest := sha256.Sum256(payload)
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], signature, &rsa.PSSOptions{SaltLength: saltLength}); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// RSAPublicKeyFromCertificate extracts the RSA public key from a
// DER-encoded X.509 certificate, as presented in a PRESENTATION message.
func RSAPublicKeyFromCertificate(certDER []byte) (*rsa.PublicKey, error) {
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, err
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("crypto: certificate does not carry an RSA public key")
	}
	return pub, nil
}
