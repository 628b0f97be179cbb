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
	"time"

	"buildify/internal/config"
	"buildify/internal/project"
)

// RetryPolicy bounds store calls: each attempt gets its own timeout, and
// retriable persistence failures are repeated with exponential backoff.
type RetryPolicy struct {
	Attempts int
	Timeout  time.Duration
	Backoff  time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

const defaultBackoff = 250 * time.Millisecond

// DefaultRetry is 3 attempts of 15s each, backing off from 250ms.
func DefaultRetry() RetryPolicy {
	return RetryPolicy{Attempts: 3, Timeout: 15 * time.Second, Backoff: defaultBackoff}
}

// RetryFromConfig derives the policy from the backend config section.
func RetryFromConfig(b config.BackendConfig) RetryPolicy {
	return RetryPolicy{Attempts: b.Attempts(), Timeout: b.Timeout(), Backoff: defaultBackoff}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs op until it succeeds, fails with a non-retriable error, the
// attempts are used up or ctx ends. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = p.attempt(ctx, op)
		if err == nil || attempt >= attempts || !project.Retriable(err) || ctx.Err() != nil {
			return err
		}
		if serr := sleep(ctx, p.Backoff<<(attempt-1)); serr != nil {
			return err
		}
	}
}

func (p RetryPolicy) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return op(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return op(actx)
}

func retryValue[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}
