/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package builder

import (
	"context"
	"errors"
	"testing"
	"time"

	"buildify/internal/project"
)

func TestRetryStopsOnNonRetriable(t *testing.T) {
	p := RetryPolicy{Attempts: 5, sleep: noSleep}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return project.NotFound("get", "p1")
	})
	if !errors.Is(err, project.ErrProjectNotFound) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
	calls = 0
	plain := errors.New("plain")
	if err := p.Do(context.Background(), func(context.Context) error { calls++; return plain }); err != plain || calls != 1 {
		t.Fatalf("plain errors are not retried: err=%v calls=%d", err, calls)
	}
}

func TestRetryBacksOffExponentially(t *testing.T) {
	var waits []time.Duration
	p := RetryPolicy{Attempts: 4, Backoff: 10 * time.Millisecond, sleep: func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}}
	transient := project.Fail("get", errors.New("timeout"))
	_ = p.Do(context.Background(), func(context.Context) error { return transient })
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v", waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("waits = %v", waits)
		}
	}
}

func TestRetryAppliesAttemptTimeout(t *testing.T) {
	p := RetryPolicy{Attempts: 1, Timeout: 20 * time.Millisecond}
	err := p.Do(context.Background(), func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("attempt context has no deadline")
		}
		<-ctx.Done()
		return project.Fail("get", ctx.Err())
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := RetryPolicy{Attempts: 5, Backoff: time.Hour}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, func(context.Context) error {
		calls++
		return project.Fail("get", errors.New("unavailable"))
	})
	if err == nil || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}
