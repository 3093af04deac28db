package shutdown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStack_ClosesInReverseOrder(t *testing.T) {
	var order []string
	s := &Stack{}
	s.PushFunc("history", func() { order = append(order, "history") })
	s.PushFunc("relay", func() { order = append(order, "relay") })
	s.PushFunc("router", func() { order = append(order, "router") })

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	expected := []string{"router", "relay", "history"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestStack_JoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	s := &Stack{}
	s.Push("a", func(context.Context) error { return errA })
	s.Push("ok", func(context.Context) error { return nil })
	s.Push("b", func(context.Context) error { return errB })

	err := s.Close(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both errors, got %v", err)
	}
}

func TestStack_CloseOnce(t *testing.T) {
	calls := 0
	s := &Stack{}
	s.PushFunc("count", func() { calls++ })

	_ = s.Close(context.Background())
	_ = s.Close(context.Background())
	s.PushFunc("late", func() { calls++ })
	_ = s.Close(context.Background())

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRun_ReturnsRunError(t *testing.T) {
	boom := errors.New("boom")
	closed := false
	s := &Stack{}
	s.PushFunc("mark", func() { closed = true })

	err := Run(context.Background(), discardLogger(), time.Second,
		func(context.Context) error { return boom }, s)

	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if !closed {
		t.Error("expected stack closed after run returned")
	}
}

func TestRun_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	closed := make(chan struct{})
	s := &Stack{}
	s.PushFunc("mark", func() { close(closed) })

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, discardLogger(), time.Second, func(runCtx context.Context) error {
			<-runCtx.Done()
			return runCtx.Err()
		}, s)
	}()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Run")
	}

	select {
	case <-closed:
	default:
		t.Error("expected stack closed")
	}
}

func TestRun_TimeoutWhenRunIgnoresCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan struct{})
	defer close(block)

	start := time.Now()
	err := Run(ctx, discardLogger(), 50*time.Millisecond, func(context.Context) error {
		<-block
		return nil
	}, nil)

	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected Run to give up after the timeout, took %v", elapsed)
	}
}
