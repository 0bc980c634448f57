package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	steps := []struct {
		event SessionEvent
		want  SessionState
	}{
		{EventConnect, StateConnecting},
		{EventTransportOpen, StateAuthPending},
		{EventAuthAccepted, StateAuthenticated},
		{EventChallengeRequested, StateAwaitingChallenge},
		{EventChallengeReceived, StateAwaitingProof},
		{EventProofSubmitted, StateVerifying},
		{EventVerified, StateLinked},
	}

	state := StateDisconnected
	for _, step := range steps {
		next, err := Transition(state, step.event)
		require.NoError(t, err, "event %s from %s", step.event, state)
		assert.Equal(t, step.want, next)
		state = next
	}
}

func TestTransitionUnauthorizedFromAnyConnectedState(t *testing.T) {
	for _, state := range []SessionState{
		StateAuthPending,
		StateAuthenticated,
		StateAwaitingChallenge,
		StateAwaitingProof,
		StateVerifying,
	} {
		next, err := Transition(state, EventUnauthorized)
		require.NoError(t, err, "from %s", state)
		assert.Equal(t, StateAuthPending, next)
	}
}

func TestTransitionUnauthorizedWhileDisconnected(t *testing.T) {
	_, err := Transition(StateDisconnected, EventUnauthorized)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionTransportClosedFromAnywhere(t *testing.T) {
	for state := StateDisconnected; state <= StateFailed; state++ {
		next, err := Transition(state, EventTransportClosed)
		require.NoError(t, err)
		assert.Equal(t, StateDisconnected, next)
	}
}

func TestTransitionRejectsProofWhileDisconnected(t *testing.T) {
	_, err := Transition(StateDisconnected, EventProofSubmitted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionStaleChallengeRerequest(t *testing.T) {
	next, err := Transition(StateAwaitingProof, EventChallengeRequested)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingChallenge, next)
}

func TestTransitionRedeliveredProofAfterReauth(t *testing.T) {
	// Re-auth lands the session back in Authenticated; redelivering the
	// pending proof submission must move it to Verifying so the verdict
	// can still reach Linked.
	state, err := Transition(StateVerifying, EventUnauthorized)
	require.NoError(t, err)
	require.Equal(t, StateAuthPending, state)

	state, err = Transition(state, EventAuthAccepted)
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, state)

	state, err = Transition(state, EventProofSubmitted)
	require.NoError(t, err)
	require.Equal(t, StateVerifying, state)

	state, err = Transition(state, EventVerified)
	require.NoError(t, err)
	assert.Equal(t, StateLinked, state)
}

func TestTransitionProofResubmission(t *testing.T) {
	next, err := Transition(StateVerifying, EventProofSubmitted)
	require.NoError(t, err)
	assert.Equal(t, StateVerifying, next)
}

func TestTransitionServerError(t *testing.T) {
	next, err := Transition(StateAuthenticated, EventServerError)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, next)
}
