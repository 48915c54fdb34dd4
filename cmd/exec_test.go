package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ticket-inventory/config"
	"ticket-inventory/monitoring"
	"ticket-inventory/utils"
)

func TestNewCacheBreaker(t *testing.T) {
	cfg := &config.Config{
		BreakerMaxRequests:  2,
		BreakerInterval:     time.Minute,
		BreakerTimeout:      time.Minute,
		BreakerFailureRatio: 0.5,
	}
	breaker := newCacheBreaker(cfg, monitoring.NewMonitor(time.Minute))

	assert.Equal(t, "ticket-cache", breaker.Name())
	assert.Equal(t, map[string]any{
		"breaker":  "ticket-cache",
		"state":    "closed",
		"requests": uint32(0),
		"failures": uint32(0),
	}, breakerHealth(breaker))

	failure := errors.New("redis down")
	breaker.Execute(func() error { return nil })
	breaker.Execute(func() error { return failure })
	breaker.Execute(func() error { return failure })

	health := breakerHealth(breaker)
	assert.Equal(t, "open", health["state"])
	assert.Equal(t, utils.StateOpen, breaker.State())
}

func TestNewCacheBreaker_NilMonitor(t *testing.T) {
	breaker := newCacheBreaker(&config.Config{BreakerTimeout: time.Minute}, nil)

	breaker.Execute(func() error { return errors.New("redis down") })
	assert.Equal(t, utils.StateOpen, breaker.State())
}
