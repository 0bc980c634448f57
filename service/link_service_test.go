package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/ports"
)

// fakeChannel is an in-memory Channel: sent messages appear on Sent,
// and Deliver pushes server messages to the registered handlers.
type fakeChannel struct {
	mu       sync.Mutex
	state    core.SessionState
	handlers []ports.MessageHandler
	sendErrs int // number of leading Send calls that fail

	Sent chan any
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		state: core.StateAuthenticated,
		Sent:  make(chan any, 32),
	}
}

func (f *fakeChannel) Connect(ctx context.Context) error { return nil }
func (f *fakeChannel) Close() error                      { return nil }

func (f *fakeChannel) Send(msg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErrs > 0 {
		f.sendErrs--
		return errors.New("write failed")
	}

	f.Sent <- msg
	return nil
}

func (f *fakeChannel) OnMessage(handler ports.MessageHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
}

func (f *fakeChannel) State() core.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeChannel) Deliver(msg core.ServerMessage) {
	f.mu.Lock()
	handlers := make([]ports.MessageHandler, len(f.handlers))
	copy(handlers, f.handlers)
	f.mu.Unlock()

	for _, handler := range handlers {
		handler(msg)
	}
}

func (f *fakeChannel) expectSent(t *testing.T, want string) {
	t.Helper()

	select {
	case msg := <-f.Sent:
		switch m := msg.(type) {
		case core.GetProofMessage:
			require.Equal(t, want, m.Type)
		case core.VerifyMessage:
			require.Equal(t, want, m.Type)
		case core.AuthMessage:
			require.Equal(t, want, m.Type)
		default:
			t.Fatalf("unexpected message %T", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q to be sent", want)
	}
}

// staticSigner returns a fixed proof bound to whatever payload it is given
type staticSigner struct {
	address string
	delay   time.Duration
}

func (s staticSigner) RequestProof(ctx context.Context, c core.Challenge) (core.TonAccount, core.WalletProof, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return core.TonAccount{}, core.WalletProof{}, ctx.Err()
		}
	}

	account := core.TonAccount{Address: s.address, PublicKey: "pk", WalletStateInit: "state"}
	proof := core.WalletProof{
		Timestamp: time.Now().Unix(),
		Domain:    "app.example.com",
		Signature: "sig",
		Payload:   c.Payload,
	}
	return account, proof, nil
}

// blockingSigner parks until released or cancelled
type blockingSigner struct {
	release chan struct{}
}

func (s blockingSigner) RequestProof(ctx context.Context, c core.Challenge) (core.TonAccount, core.WalletProof, error) {
	select {
	case <-s.release:
		return staticSigner{address: "0:abc"}.RequestProof(ctx, c)
	case <-ctx.Done():
		return core.TonAccount{}, core.WalletProof{}, core.ErrSignerCancelled
	}
}

func newTestLinkService(ch ports.Channel, signer ports.WalletSigner) *LinkService {
	s := NewLinkService(ch, signer, zerolog.Nop())
	s.responseTimeout = 500 * time.Millisecond
	return s
}

func TestRequestLinkHappyPath(t *testing.T) {
	ch := newFakeChannel()
	s := newTestLinkService(ch, staticSigner{address: "0:abc"})

	results := make(chan core.LinkResult, 1)
	go func() {
		result, err := s.RequestLink(context.Background())
		require.NoError(t, err)
		results <- result
	}()

	ch.expectSent(t, core.MessageTypeGetProof)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeProof, Payload: "abc"})

	select {
	case msg := <-ch.Sent:
		verify, ok := msg.(core.VerifyMessage)
		require.True(t, ok, "expected a verify message, got %T", msg)
		assert.Equal(t, "abc", verify.Proof.Payload)
		assert.Equal(t, "0:abc", verify.Account.Address)
	case <-time.After(2 * time.Second):
		t.Fatal("proof was never submitted")
	}

	ch.Deliver(core.ServerMessage{Type: core.MessageTypeVerify, Status: core.StatusOK})

	result := <-results
	assert.Equal(t, core.StatusLinked, result.Status)
	assert.Equal(t, "0:abc", result.Address)
}

func TestRequestLinkExpiredChallengeRerequested(t *testing.T) {
	ch := newFakeChannel()
	s := newTestLinkService(ch, staticSigner{address: "0:abc"})
	s.challengeTTL = 50 * time.Millisecond

	results := make(chan core.LinkResult, 1)
	go func() {
		result, err := s.RequestLink(context.Background())
		require.NoError(t, err)
		results <- result
	}()

	// The payload lands after the freshness window measured from the
	// request; it must be discarded and re-requested, never submitted.
	ch.expectSent(t, core.MessageTypeGetProof)
	time.Sleep(80 * time.Millisecond)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeProof, Payload: "stale"})

	ch.expectSent(t, core.MessageTypeGetProof)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeProof, Payload: "fresh"})

	select {
	case msg := <-ch.Sent:
		verify, ok := msg.(core.VerifyMessage)
		require.True(t, ok)
		assert.Equal(t, "fresh", verify.Proof.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("fresh proof was never submitted")
	}

	ch.Deliver(core.ServerMessage{Type: core.MessageTypeVerify, Status: core.StatusOK})
	assert.Equal(t, core.StatusLinked, (<-results).Status)
}

func TestRequestLinkSingleFlight(t *testing.T) {
	ch := newFakeChannel()
	signer := blockingSigner{release: make(chan struct{})}
	s := newTestLinkService(ch, signer)

	results := make(chan core.LinkResult, 1)
	go func() {
		result, err := s.RequestLink(context.Background())
		require.NoError(t, err)
		results <- result
	}()

	ch.expectSent(t, core.MessageTypeGetProof)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeProof, Payload: "abc"})

	// Second call while the signer is parked must be rejected, not
	// allowed to race for the pending challenge slot.
	deadline := time.Now().Add(time.Second)
	for {
		_, err := s.RequestLink(context.Background())
		if errors.Is(err, core.ErrLinkInProgress) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("concurrent RequestLink was never rejected")
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(signer.release)
	ch.expectSent(t, core.MessageTypeVerify)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeVerify, Status: core.StatusOK})
	assert.Equal(t, core.StatusLinked, (<-results).Status)
}

func TestRequestLinkRejection(t *testing.T) {
	ch := newFakeChannel()
	s := newTestLinkService(ch, staticSigner{address: "0:abc"})

	results := make(chan core.LinkResult, 1)
	go func() {
		result, err := s.RequestLink(context.Background())
		require.NoError(t, err)
		results <- result
	}()

	ch.expectSent(t, core.MessageTypeGetProof)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeProof, Payload: "abc"})
	ch.expectSent(t, core.MessageTypeVerify)
	ch.Deliver(core.ServerMessage{
		Type:   core.MessageTypeVerify,
		Status: core.StatusError,
		Error:  "invalid signature",
	})

	result := <-results
	assert.Equal(t, core.StatusRejected, result.Status)
	assert.Equal(t, "invalid signature", result.Reason)

	// The same proof must never be resubmitted after a rejection.
	select {
	case msg := <-ch.Sent:
		t.Fatalf("unexpected message after rejection: %T", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRequestLinkErrorProof(t *testing.T) {
	ch := newFakeChannel()
	s := newTestLinkService(ch, staticSigner{address: "0:abc"})

	results := make(chan core.LinkResult, 1)
	go func() {
		result, err := s.RequestLink(context.Background())
		require.NoError(t, err)
		results <- result
	}()

	ch.expectSent(t, core.MessageTypeGetProof)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeErrorProof, Message: "no challenge available"})

	result := <-results
	assert.Equal(t, core.StatusRejected, result.Status)
	assert.Equal(t, "no challenge available", result.Reason)
}

func TestRequestLinkServerErrorSurfacedImmediately(t *testing.T) {
	ch := newFakeChannel()
	s := newTestLinkService(ch, staticSigner{address: "0:abc"})

	results := make(chan core.LinkResult, 1)
	go func() {
		result, err := s.RequestLink(context.Background())
		require.NoError(t, err)
		results <- result
	}()

	ch.expectSent(t, core.MessageTypeGetProof)

	// A non-auth error envelope answers the request; it must end the
	// wait as an explicit rejection, not degrade into a timeout.
	started := time.Now()
	ch.Deliver(core.ServerMessage{Code: 5, Error: "malformed request"})

	result := <-results
	assert.Equal(t, core.StatusRejected, result.Status)
	assert.Equal(t, "malformed request", result.Reason)
	assert.Less(t, time.Since(started), s.responseTimeout)
}

func TestRequestLinkConnectionLostWhileSigning(t *testing.T) {
	ch := newFakeChannel()
	signer := blockingSigner{release: make(chan struct{})}
	s := newTestLinkService(ch, signer)

	results := make(chan core.LinkResult, 1)
	go func() {
		result, err := s.RequestLink(context.Background())
		require.NoError(t, err)
		results <- result
	}()

	ch.expectSent(t, core.MessageTypeGetProof)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeProof, Payload: "doomed"})

	// The connection drops while the signer holds the challenge. The
	// resulting proof is bound to the dead connection and must be
	// discarded in favor of a fresh challenge.
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeConnectionLost})
	close(signer.release)

	ch.expectSent(t, core.MessageTypeGetProof)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeProof, Payload: "fresh"})

	select {
	case msg := <-ch.Sent:
		verify, ok := msg.(core.VerifyMessage)
		require.True(t, ok, "expected a verify message, got %T", msg)
		assert.Equal(t, "fresh", verify.Proof.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("fresh proof was never submitted")
	}

	ch.Deliver(core.ServerMessage{Type: core.MessageTypeVerify, Status: core.StatusOK})
	assert.Equal(t, core.StatusLinked, (<-results).Status)
}

func TestRequestLinkConnectionLostAwaitingVerdict(t *testing.T) {
	ch := newFakeChannel()
	s := newTestLinkService(ch, staticSigner{address: "0:abc"})

	results := make(chan core.LinkResult, 1)
	go func() {
		result, err := s.RequestLink(context.Background())
		require.NoError(t, err)
		results <- result
	}()

	ch.expectSent(t, core.MessageTypeGetProof)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeProof, Payload: "first"})
	ch.expectSent(t, core.MessageTypeVerify)

	// The verdict never arrives; the handshake restarts with a fresh
	// challenge instead of waiting out the timeout.
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeConnectionLost})

	ch.expectSent(t, core.MessageTypeGetProof)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeProof, Payload: "second"})
	ch.expectSent(t, core.MessageTypeVerify)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeVerify, Status: core.StatusOK})

	assert.Equal(t, core.StatusLinked, (<-results).Status)
}

func TestRequestLinkSignerCancelled(t *testing.T) {
	ch := newFakeChannel()
	signer := blockingSigner{release: make(chan struct{})}
	s := newTestLinkService(ch, signer)

	ctx, cancel := context.WithCancel(context.Background())

	results := make(chan core.LinkResult, 1)
	go func() {
		result, err := s.RequestLink(ctx)
		require.NoError(t, err)
		results <- result
	}()

	ch.expectSent(t, core.MessageTypeGetProof)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeProof, Payload: "abc"})

	// The user backs out while the signer waits.
	cancel()

	result := <-results
	assert.Equal(t, core.StatusCancelled, result.Status)
}

func TestRequestLinkSubmissionRetriedOnce(t *testing.T) {
	ch := newFakeChannel()
	s := newTestLinkService(ch, staticSigner{address: "0:abc"})

	results := make(chan core.LinkResult, 1)
	go func() {
		result, err := s.RequestLink(context.Background())
		require.NoError(t, err)
		results <- result
	}()

	ch.expectSent(t, core.MessageTypeGetProof)

	// Fail the first submission write only; the retry carries the same
	// proof because the challenge is still fresh.
	ch.mu.Lock()
	ch.sendErrs = 1
	ch.mu.Unlock()

	ch.Deliver(core.ServerMessage{Type: core.MessageTypeProof, Payload: "abc"})

	ch.expectSent(t, core.MessageTypeVerify)
	ch.Deliver(core.ServerMessage{Type: core.MessageTypeVerify, Status: core.StatusOK})
	assert.Equal(t, core.StatusLinked, (<-results).Status)
}

func TestRequestLinkResponseTimeout(t *testing.T) {
	ch := newFakeChannel()
	s := newTestLinkService(ch, staticSigner{address: "0:abc"})
	s.responseTimeout = 50 * time.Millisecond

	go func() {
		ch.expectSent(t, core.MessageTypeGetProof)
		// Never reply.
	}()

	result, err := s.RequestLink(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.StatusTimedOut, result.Status)
}

func TestRequestLinkRequiresAuthenticatedChannel(t *testing.T) {
	ch := newFakeChannel()
	ch.state = core.StateDisconnected
	s := newTestLinkService(ch, staticSigner{address: "0:abc"})

	_, err := s.RequestLink(context.Background())
	assert.Error(t, err)
}
