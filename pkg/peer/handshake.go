package peer

import (
	"context"
	"crypto/x509"
	"fmt"
	"math/rand"
	"time"

	"github.com/freelan-go/freelan/pkg/certvalidator"
	fcrypto "github.com/freelan-go/freelan/pkg/crypto"
	"github.com/freelan-go/freelan/pkg/wire"
)

// HandleMessage dispatches one already-parsed FSCP message to the
// Session's state machine. It runs on the Session's own task-queue
// goroutine and blocks the caller until that run completes, so callers on
// other goroutines (the Endpoint's read loop) can call it directly.
func (s *Session) HandleMessage(ctx context.Context, typ wire.Type, body []byte, sender Sender) error {
	errCh := make(chan error, 1)
	s.Submit(func() {
		errCh <- s.dispatch(ctx, typ, body, sender)
	})
	return <-errCh
}

func (s *Session) dispatch(ctx context.Context, typ wire.Type, body []byte, sender Sender) error {
	s.lastReceivedAt = time.Now()
	switch {
	case typ == wire.TypeHelloRequest:
		return s.handleHelloRequest(ctx, body, sender)
	case typ == wire.TypeHelloResponse:
		return s.handleHelloResponse(ctx, body, sender)
	case typ == wire.TypePresentation:
		return s.handlePresentation(ctx, body, sender)
	case typ == wire.TypeSessionReq:
		return s.handleSessionRequest(ctx, body, sender)
	case typ == wire.TypeSession:
		return s.handleSession(ctx, body, sender)
	case typ.IsData():
		return s.handleData(ctx, typ.Channel(), body, sender)
	default:
		return s.reportError(ErrUnexpectedMessage)
	}
}

// Greet starts the handshake as the initiator: send HELLO_REQUEST and move
// to StateHelloSent. It is a no-op once the handshake has already begun.
func (s *Session) Greet(ctx context.Context, sender Sender) error {
	errCh := make(chan error, 1)
	s.Submit(func() {
		if s.state != StateUnknown {
			errCh <- nil
			return
		}
		s.role = RoleInitiator
		s.helloUnique = rand.Uint32()
		msg, err := wire.WriteHelloRequest(s.helloUnique)
		if err != nil {
			errCh <- s.reportError(err)
			return
		}
		if err := sender.Send(ctx, msg); err != nil {
			errCh <- s.reportError(err)
			return
		}
		s.lastSentAt = time.Now()
		s.setState(StateHelloSent)
		s.armRetransmit(ctx, msg, sender)
		errCh <- nil
	})
	return <-errCh
}

// armRetransmit arms the handshake retransmission schedule for msg
// (spec §4.4.6). It is reused for every handshake message type since only
// one is ever outstanding at a time.
func (s *Session) armRetransmit(ctx context.Context, msg []byte, sender Sender) {
	s.retransmitter.Start(msg, func(message []byte, attempt int) {
		s.Submit(func() {
			if err := sender.Send(ctx, message); err != nil {
				s.reportError(fmt.Errorf("peer: handshake retransmit failed: %w", err))
			} else {
				s.lastSentAt = time.Now()
			}
			if !s.retransmitter.Retry() {
				s.reportError(ErrHandshakeGaveUp)
				s.setState(StateLost)
			}
		})
	})
}

func (s *Session) handleHelloRequest(ctx context.Context, body []byte, sender Sender) error {
	unique, err := wire.DecodeHello(body)
	if err != nil {
		return s.reportError(err)
	}
	if s.state == StateUnknown {
		s.role = RoleResponder
	}
	resp, err := wire.WriteHelloResponse(unique)
	if err != nil {
		return s.reportError(err)
	}
	if err := sender.Send(ctx, resp); err != nil {
		return s.reportError(err)
	}
	s.lastSentAt = time.Now()
	if s.state == StateUnknown {
		return s.sendPresentation(ctx, sender)
	}
	return nil
}

func (s *Session) handleHelloResponse(ctx context.Context, body []byte, sender Sender) error {
	if s.state != StateHelloSent {
		return s.reportError(ErrUnexpectedMessage)
	}
	unique, err := wire.DecodeHello(body)
	if err != nil {
		return s.reportError(err)
	}
	if unique != s.helloUnique {
		return s.reportError(ErrUnexpectedMessage)
	}
	s.retransmitter.Stop()
	return s.sendPresentation(ctx, sender)
}

// sendPresentation sends our PRESENTATION once per handshake generation.
// Under AuthPSK with no certificate configured, presentation is skipped
// entirely and we move straight to proposing a session.
func (s *Session) sendPresentation(ctx context.Context, sender Sender) error {
	if s.sentPresentation {
		return nil
	}
	if s.cfg.Mode == AuthPSK && len(s.cfg.LocalCertDER) == 0 {
		s.sentPresentation = true
		s.setState(StatePresented)
		return s.ensureOutgoingSessionRequestSent(ctx, sender)
	}
	msg, err := wire.WritePresentation(s.cfg.LocalCertDER)
	if err != nil {
		return s.reportError(err)
	}
	if err := sender.Send(ctx, msg); err != nil {
		return s.reportError(err)
	}
	s.sentPresentation = true
	s.lastSentAt = time.Now()
	s.setState(StatePresented)
	return nil
}

func (s *Session) handlePresentation(ctx context.Context, body []byte, sender Sender) error {
	certDER := wire.DecodePresentation(body)
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return s.reportError(certvalidator.ErrCertificateParseFailed)
	}
	if err := s.cfg.Validator.Validate(cert); err != nil {
		return s.reportError(err)
	}
	s.remoteCert = cert
	if s.cfg.Callbacks.OnRemoteIdentity != nil {
		s.cfg.Callbacks.OnRemoteIdentity(cert)
	}
	if err := s.sendPresentation(ctx, sender); err != nil {
		return err
	}
	return s.ensureOutgoingSessionRequestSent(ctx, sender)
}

// ensureOutgoingSessionRequestSent sends our own SESSION_REQUEST if this
// Session has not already proposed one for the current generation: either
// the first handshake (from StatePresented) or a self-triggered rekey
// (from StateEstablished). It is a no-op in every other state, including
// when the peer's own SESSION_REQUEST is what triggered the call and we
// already have one outstanding.
func (s *Session) ensureOutgoingSessionRequestSent(ctx context.Context, sender Sender) error {
	switch s.state {
	case StatePresented:
		return s.sendSessionRequest(ctx, sender, StateSessionRequested)
	case StateEstablished:
		return s.sendSessionRequest(ctx, sender, StateRekeying)
	default:
		return nil
	}
}

func (s *Session) sendSessionRequest(ctx context.Context, sender Sender, nextState State) error {
	req := wire.SessionRequest{
		SessionNumber: s.nextLocalSessionNumber(),
		HostID:        s.cfg.LocalHostID,
		CipherSuites:  s.cfg.CipherSuites,
		Curves:        s.cfg.Curves,
	}
	sig, err := s.cfg.sign(req.UnsignedPayload())
	if err != nil {
		return s.reportError(err)
	}
	req.Signature = sig
	msg, err := wire.WriteSessionRequest(req)
	if err != nil {
		return s.reportError(err)
	}
	if err := sender.Send(ctx, msg); err != nil {
		return s.reportError(err)
	}
	s.lastSentAt = time.Now()
	s.setState(nextState)
	s.armRetransmit(ctx, msg, sender)
	return nil
}

func (s *Session) handleSessionRequest(ctx context.Context, body []byte, sender Sender) error {
	switch s.state {
	case StatePresented, StateSessionRequested, StateHalfEstablished, StateEstablished, StateRekeying:
	default:
		return s.reportError(ErrUnexpectedMessage)
	}

	req, err := wire.DecodeSessionRequest(body)
	if err != nil {
		return s.reportError(err)
	}

	// A SESSION_REQUEST carrying a different host_id than the one this
	// peer last presented means the remote process restarted: its own
	// session_number counter restarted too, so the old replay floor and
	// key material no longer mean anything (spec §4.4.2's restart
	// detection). Drop straight to a fresh negotiation instead of
	// rejecting the lower session_number as a replay.
	if s.haveLastRemoteSessionNumber && s.remoteHostID != req.HostID {
		if s.cfg.Logger != nil {
			s.cfg.Logger.Infof("peer.restart_detected", "remote host_id changed, discarding session state")
		}
		s.current = nil
		s.next = nil
		s.ephemeral = nil
		s.curve = nil
		s.haveLastRemoteSessionNumber = false
	} else if s.haveLastRemoteSessionNumber && req.SessionNumber <= s.lastRemoteSessionNumber {
		return s.reportError(ErrReplayedHandshake)
	}
	if err := s.verify(req.UnsignedPayload(), req.Signature); err != nil {
		return s.reportError(err)
	}

	if err := s.ensureOutgoingSessionRequestSent(ctx, sender); err != nil {
		return err
	}

	s.remoteHostID = req.HostID
	s.remoteCipherSuites = req.CipherSuites
	s.remoteCurves = req.Curves
	s.lastRemoteSessionNumber = req.SessionNumber
	s.haveLastRemoteSessionNumber = true

	cipher, err := pickCipherSuite(s.cfg.CipherSuites, req.CipherSuites)
	if err != nil {
		return s.reportError(err)
	}
	curveID, err := pickCurve(s.cfg.Curves, req.Curves)
	if err != nil {
		return s.reportError(err)
	}
	if s.ephemeral == nil {
		curve, err := fcrypto.ECDHECurve(curveID)
		if err != nil {
			return s.reportError(err)
		}
		ephemeral, err := fcrypto.GenerateEphemeral(curve)
		if err != nil {
			return s.reportError(err)
		}
		s.curve = curve
		s.ephemeral = ephemeral
	}
	s.negotiatedCipher = cipher
	s.negotiatedCurve = curveID

	resp := wire.Session{
		SessionNumber:   s.localSessionNumber,
		HostID:          s.cfg.LocalHostID,
		ChosenCipher:    cipher,
		ChosenCurve:     curveID,
		EphemeralPubKey: s.ephemeral.PublicKey().Bytes(),
	}
	sig, err := s.cfg.sign(resp.UnsignedPayload())
	if err != nil {
		return s.reportError(err)
	}
	resp.Signature = sig
	msg, err := wire.WriteSession(resp)
	if err != nil {
		return s.reportError(err)
	}
	if err := sender.Send(ctx, msg); err != nil {
		return s.reportError(err)
	}
	s.lastSentAt = time.Now()
	if s.state != StateRekeying {
		s.setState(StateHalfEstablished)
	}
	return nil
}

func (s *Session) handleSession(ctx context.Context, body []byte, sender Sender) error {
	switch s.state {
	case StateSessionRequested, StateHalfEstablished, StateEstablished, StateRekeying:
	default:
		return s.reportError(ErrUnexpectedMessage)
	}

	sess, err := wire.DecodeSession(body)
	if err != nil {
		return s.reportError(err)
	}

	// A SESSION carrying a session_number at or below the one our current
	// keySet already trusts is a replay of an old (re)keying message: drop
	// it without touching state, so it can never redirect sendData onto a
	// keySet the peer no longer holds the ephemeral private key for (spec
	// §8, testable property 6).
	if s.current != nil && sess.SessionNumber <= s.current.remoteSessionNumber {
		return s.reportError(ErrReplayedHandshake)
	}

	if !containsCipher(s.cfg.CipherSuites, sess.ChosenCipher) {
		return s.reportError(ErrCapabilityMismatch)
	}
	if !containsCurve(s.cfg.Curves, sess.ChosenCurve) {
		return s.reportError(ErrCapabilityMismatch)
	}
	if s.remoteCipherSuites != nil && !containsCipher(s.remoteCipherSuites, sess.ChosenCipher) {
		return s.reportError(ErrCapabilityMismatch)
	}
	if s.remoteCurves != nil && !containsCurve(s.remoteCurves, sess.ChosenCurve) {
		return s.reportError(ErrCapabilityMismatch)
	}
	if err := s.verify(sess.UnsignedPayload(), sess.Signature); err != nil {
		return s.reportError(err)
	}

	s.retransmitter.Stop()
	s.remoteHostID = sess.HostID

	curve, err := fcrypto.ECDHECurve(sess.ChosenCurve)
	if err != nil {
		return s.reportError(err)
	}
	if s.ephemeral == nil {
		// The peer's SESSION arrived without us ever having processed a
		// SESSION_REQUEST from it in this generation (it already trusted
		// our PRESENTATION). Generate our ephemeral key on the curve it
		// chose, from our own offered set.
		ephemeral, err := fcrypto.GenerateEphemeral(curve)
		if err != nil {
			return s.reportError(err)
		}
		s.curve = curve
		s.ephemeral = ephemeral
		s.negotiatedCipher = sess.ChosenCipher
		s.negotiatedCurve = sess.ChosenCurve
	}

	shared, err := fcrypto.ECDH(s.curve, s.ephemeral, sess.EphemeralPubKey)
	if err != nil {
		return s.reportError(err)
	}
	keys, err := fcrypto.DeriveSessionKeys(shared, s.localSessionNumber, sess.SessionNumber, s.cfg.LocalHostID, s.remoteHostID, s.negotiatedCipher.KeySize())
	if err != nil {
		return s.reportError(err)
	}
	encrypt, err := fcrypto.NewAEAD(keys.EncryptKey)
	if err != nil {
		return s.reportError(err)
	}
	decrypt, err := fcrypto.NewAEAD(keys.DecryptKey)
	if err != nil {
		return s.reportError(err)
	}

	ks := &keySet{
		localSessionNumber:  s.localSessionNumber,
		remoteSessionNumber: sess.SessionNumber,
		cipher:              s.negotiatedCipher,
		encrypt:             encrypt,
		decrypt:             decrypt,
		noncePrefixLocal:    keys.NoncePrefixLocal,
		noncePrefixRemote:   keys.NoncePrefixRemote,
		establishedAt:       time.Now(),
	}

	if s.current == nil {
		s.current = ks
		s.setState(StateEstablished)
	} else {
		// Rekey: stay on the old keySet until a DATA message actually
		// arrives tagged with the new session_number (spec §4.4.5); both
		// sides must have sent and received a SESSION under the new
		// number before that promotion happens.
		s.next = ks
		s.setState(StateRekeying)
	}
	s.ephemeral = nil
	s.curve = nil
	return nil
}

// pickCipherSuite and pickCurve choose the negotiated value deterministically
// from the set of entries both sides advertised, independent of either
// side's preference ordering: the highest wire-encoded value in the
// intersection wins. Both peers hold the same two sets (their own
// configured list and the one carried in the peer's SESSION_REQUEST), so
// both compute the same result without either side dictating it to the
// other.
func pickCipherSuite(local, remote []wire.CipherSuite) (wire.CipherSuite, error) {
	var best wire.CipherSuite
	found := false
	for _, cs := range remote {
		if containsCipher(local, cs) && (!found || cs > best) {
			best, found = cs, true
		}
	}
	if !found {
		return 0, ErrCapabilityMismatch
	}
	return best, nil
}

func pickCurve(local, remote []wire.EllipticCurve) (wire.EllipticCurve, error) {
	var best wire.EllipticCurve
	found := false
	for _, ec := range remote {
		if containsCurve(local, ec) && (!found || ec > best) {
			best, found = ec, true
		}
	}
	if !found {
		return 0, ErrCapabilityMismatch
	}
	return best, nil
}

func containsCipher(list []wire.CipherSuite, v wire.CipherSuite) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsCurve(list []wire.EllipticCurve, v wire.EllipticCurve) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
