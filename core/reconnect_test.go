package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicyIsConstant(t *testing.T) {
	policy := DefaultReconnectPolicy()

	for attempt := 0; attempt < 10; attempt++ {
		assert.Equal(t, DefaultReconnectDelay, policy.NextDelay(attempt))
	}
}

func TestPolicyMonotonicAndCapped(t *testing.T) {
	policy := ReconnectPolicy{
		Delay:    time.Second,
		Step:     2 * time.Second,
		MaxDelay: 7 * time.Second,
	}

	previous := time.Duration(0)
	for attempt := 0; attempt < 20; attempt++ {
		delay := policy.NextDelay(attempt)
		assert.GreaterOrEqual(t, delay, previous)
		assert.LessOrEqual(t, delay, policy.MaxDelay)
		previous = delay
	}

	assert.Equal(t, 7*time.Second, policy.NextDelay(100))
}

func TestPolicyNegativeAttempt(t *testing.T) {
	policy := DefaultReconnectPolicy()
	assert.Equal(t, policy.NextDelay(0), policy.NextDelay(-3))
}
