// Package certvalidator implements the certificate acceptance policies a
// PeerSession consults after a PRESENTATION message arrives: whether to
// trust the presented certificate, and under what constraints.
package certvalidator

import (
	"crypto/x509"
	"errors"
	"time"
)

var (
	ErrCertificateParseFailed = errors.New("certvalidator: failed to parse certificate")
	ErrCertificateExpired     = errors.New("certvalidator: certificate expired")
	ErrCertificateNotYetValid = errors.New("certvalidator: certificate not yet valid")
	ErrCertificateRevoked     = errors.New("certvalidator: certificate revoked")
	ErrChainValidationFailed  = errors.New("certvalidator: chain validation failed")
)

// Validator decides whether a peer's presented certificate should be
// accepted. Implementations must not retain cert beyond the call.
type Validator interface {
	Validate(cert *x509.Certificate) error
}

// CRLMode selects how a DefaultPolicy treats certificate revocation lists,
// matching the three modes spec.md §6 names for the "default" policy.
type CRLMode int

const (
	// CRLIgnore performs no revocation check.
	CRLIgnore CRLMode = iota
	// CRLLastOnly consults Revoked for the presented (leaf) certificate
	// only, not the rest of the chain up to the trust anchor.
	CRLLastOnly
	// CRLAll consults Revoked for every certificate in the verified
	// chain, from the leaf up to (and including) the trust anchor.
	CRLAll
)

// nonePolicy accepts any well-formed certificate, matching the teacher's
// NewSkipCertValidator escape hatch for tests and bootstrap scenarios.
type nonePolicy struct{}

// NewNonePolicy returns a Validator that accepts any certificate that
// parsed successfully, performing no chain or time checks. Intended for
// tests and for nodes configured to trust on first use.
func NewNonePolicy() Validator {
	return nonePolicy{}
}

func (nonePolicy) Validate(cert *x509.Certificate) error {
	if cert == nil {
		return ErrCertificateParseFailed
	}
	return nil
}

// Revoked reports whether cert is known to be revoked. A DefaultPolicy
// configured with CRLLastOnly or CRLAll consults this for every
// certificate its mode requires checking.
type Revoked func(cert *x509.Certificate) (bool, error)

// defaultPolicy validates a peer certificate against a fixed set of root
// CAs, with normal X.509 validity-period and chain checks, generalizing
// the teacher's NOC→ICAC→RCAC chain check to plain X.509.
type defaultPolicy struct {
	roots   *x509.CertPool
	crlMode CRLMode
	revoked Revoked
}

// NewDefaultPolicy returns a Validator that verifies the certificate
// chains to one of roots and is within its validity period. If crl is
// CRLLastOnly or CRLAll, revoked is consulted for the leaf certificate,
// or for every certificate in the verified chain, respectively, and must
// report each as not revoked.
func NewDefaultPolicy(roots *x509.CertPool, crl CRLMode, revoked Revoked) Validator {
	return &defaultPolicy{roots: roots, crlMode: crl, revoked: revoked}
}

func (p *defaultPolicy) Validate(cert *x509.Certificate) error {
	if cert == nil {
		return ErrCertificateParseFailed
	}

	now := time.Now()
	if now.Before(cert.NotBefore) {
		return ErrCertificateNotYetValid
	}
	if now.After(cert.NotAfter) {
		return ErrCertificateExpired
	}

	opts := x509.VerifyOptions{
		Roots:       p.roots,
		CurrentTime: now,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	chains, err := cert.Verify(opts)
	if err != nil {
		return ErrChainValidationFailed
	}

	switch p.crlMode {
	case CRLLastOnly:
		if err := p.checkRevoked(cert); err != nil {
			return err
		}
	case CRLAll:
		if len(chains) == 0 {
			return ErrChainValidationFailed
		}
		for _, c := range chains[0] {
			if err := p.checkRevoked(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkRevoked consults Revoked for a single certificate, failing closed
// (ErrCertificateRevoked) if no Revoked callback was configured at all.
func (p *defaultPolicy) checkRevoked(cert *x509.Certificate) error {
	if p.revoked == nil {
		return ErrCertificateRevoked
	}
	revoked, err := p.revoked(cert)
	if err != nil || revoked {
		return ErrCertificateRevoked
	}
	return nil
}
