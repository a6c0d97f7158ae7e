package discovery

import (
	"testing"

	fcrypto "github.com/freelan-go/freelan/pkg/crypto"
)

func TestAdvertiserStartRegistersFreelanService(t *testing.T) {
	factory := &MockMDNSServerFactory{}
	adv := NewAdvertiser(AdvertiserConfig{Port: 12000, ServerFactory: factory})
	hash := fcrypto.SHA256([]byte("node a"))

	if err := adv.Start(hash, 3); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !adv.IsAdvertising() {
		t.Fatal("IsAdvertising() = false after Start")
	}

	reg := factory.Last()
	if reg.Service != ServiceFreelan {
		t.Fatalf("Service = %q, want %q", reg.Service, ServiceFreelan)
	}
	if reg.Port != 12000 {
		t.Fatalf("Port = %d, want 12000", reg.Port)
	}

	decoded, err := DecodePeerTXT(reg.TXT)
	if err != nil {
		t.Fatalf("DecodePeerTXT: %v", err)
	}
	if decoded.CertHash != hash {
		t.Fatalf("advertised hash mismatch")
	}
}

func TestAdvertiserStartTwiceFails(t *testing.T) {
	adv := NewAdvertiser(AdvertiserConfig{ServerFactory: &MockMDNSServerFactory{}})
	hash := fcrypto.SHA256([]byte("node a"))

	if err := adv.Start(hash, 3); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := adv.Start(hash, 3); err != ErrAlreadyStarted {
		t.Fatalf("second Start: got %v, want ErrAlreadyStarted", err)
	}
}

func TestAdvertiserStopThenClose(t *testing.T) {
	adv := NewAdvertiser(AdvertiserConfig{ServerFactory: &MockMDNSServerFactory{}})
	hash := fcrypto.SHA256([]byte("node a"))

	if err := adv.Stop(); err != ErrNotStarted {
		t.Fatalf("Stop before Start: got %v, want ErrNotStarted", err)
	}
	if err := adv.Start(hash, 3); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := adv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if adv.IsAdvertising() {
		t.Fatal("IsAdvertising() = true after Stop")
	}
	if err := adv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := adv.Start(hash, 3); err != ErrClosed {
		t.Fatalf("Start after Close: got %v, want ErrClosed", err)
	}
}
