package monitor

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRegistrySamplesAndResetsCounters(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	r := New(Config{Interval: 30 * time.Millisecond, Logger: logger})

	c := r.Register("api_input")
	c.Add(5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	time.Sleep(80 * time.Millisecond)

	if v := c.Value(); v != 0 {
		t.Errorf("expected counter to be reset after sampling, got %d", v)
	}
}

func TestRegistryRegisterIsIdempotentByName(t *testing.T) {
	r := New(Config{Interval: time.Second})

	first := r.Register("chance")
	first.Inc()

	second := r.Register("chance")
	if second.Value() != 1 {
		t.Errorf("expected Register to return the existing counter, got value %d", second.Value())
	}
}
