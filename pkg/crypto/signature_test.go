package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	return key
}

func TestSignVerifyRSAPSS(t *testing.T) {
	key := testRSAKey(t)
	payload := []byte("session request unsigned payload")

	sig, err := SignRSAPSS(key, payload)
	if err != nil {
		t.Fatalf("SignRSAPSS: %v", err)
	}
	if err := VerifyRSAPSS(&key.PublicKey, payload, sig); err != nil {
		t.Fatalf("VerifyRSAPSS: %v", err)
	}
}

func TestVerifyRSAPSSRejectsTamperedPayload(t *testing.T) {
	key := testRSAKey(t)
	payload := []byte("original payload")
	sig, err := SignRSAPSS(key, payload)
	if err != nil {
		t.Fatalf("SignRSAPSS: %v", err)
	}

	tampered := []byte("original payloae")
	if err := VerifyRSAPSS(&key.PublicKey, tampered, sig); err != ErrInvalidSignature {
		t.Fatalf("got %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyRSAPSSRejectsWrongKey(t *testing.T) {
	key := testRSAKey(t)
	other := testRSAKey(t)
	payload := []byte("payload")

	sig, err := SignRSAPSS(key, payload)
	if err != nil {
		t.Fatalf("SignRSAPSS: %v", err)
	}
	if err := VerifyRSAPSS(&other.PublicKey, payload, sig); err != ErrInvalidSignature {
		t.Fatalf("got %v, want ErrInvalidSignature", err)
	}
}
