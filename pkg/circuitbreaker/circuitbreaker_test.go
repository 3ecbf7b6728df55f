package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(Settings{
		Name:        "smtp",
		MaxFailures: 2,
		Timeout:     time.Minute,
		Now:         func() time.Time { return now },
	})
	boom := errors.New("dial failed")

	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	assert.ErrorIs(t, cb.Execute(func() error { called = true; return nil }), ErrOpen)
	assert.False(t, called)

	now = now.Add(2 * time.Minute)
	assert.NoError(t, cb.Execute(func() error { called = true; return nil }))
	assert.True(t, called)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(Settings{MaxFailures: 1, Timeout: time.Second, Now: func() time.Time { return now }})

	_ = cb.Execute(func() error { return errors.New("x") })
	now = now.Add(2 * time.Second)
	_ = cb.Execute(func() error { return errors.New("y") })

	assert.Equal(t, StateOpen, cb.State())
}
