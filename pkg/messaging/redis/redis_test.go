package redis

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewRedisBroker_InvalidURL(t *testing.T) {
	log := zerolog.Nop()
	_, err := NewRedisBroker(Config{URL: "not-a-url"}, &log)
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}

func TestNewRedisBroker_Unreachable(t *testing.T) {
	log := zerolog.Nop()
	_, err := NewRedisBroker(Config{URL: "redis://127.0.0.1:1/0"}, &log)
	assert.ErrorContains(t, err, "failed to connect to Redis")
}
