package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMemoryRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRepository()

	if _, err := m.Get(ctx, "s1", "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store: err = %v, want ErrNotFound", err)
	}

	value := []byte(`{"qty":2}`)
	if err := m.Put(ctx, "s1", "k", value); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	value[0] = 'X'

	got, err := m.Get(ctx, "s1", "k")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != `{"qty":2}` {
		t.Fatalf("Get = %s, stored value must not alias caller buffer", got)
	}

	if _, err := m.Get(ctx, "s2", "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("scopes must be isolated, err = %v", err)
	}

	if err := m.Put(ctx, "s1", "k", []byte(`{"qty":3}`)); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, _ = m.Get(ctx, "s1", "k")
	if string(got) != `{"qty":3}` {
		t.Fatalf("last writer must win, got %s", got)
	}

	if err := m.Delete(ctx, "s1", "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := m.Get(ctx, "s1", "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Delete: err = %v, want ErrNotFound", err)
	}
	if err := m.Delete(ctx, "s1", "k"); err != nil {
		t.Fatalf("Delete of missing key must succeed, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, true},
		{"deadlock", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}), true},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Fatalf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetry(t *testing.T) {
	r := &PostgresRepository{delays: []time.Duration{time.Millisecond, time.Millisecond}}

	calls := 0
	err := r.withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}

	calls = 0
	err = r.withRetry(context.Background(), func() error {
		calls++
		return errors.New("boom")
	})
	if err == nil || calls != 1 {
		t.Fatalf("non-retryable error must stop after one call, calls = %d, err = %v", calls, err)
	}

	calls = 0
	err = r.withRetry(context.Background(), func() error {
		calls++
		return &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
	})
	if err == nil || calls != 3 {
		t.Fatalf("retries must be bounded, calls = %d, err = %v", calls, err)
	}
}
