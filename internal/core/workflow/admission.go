// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Admission bounds the number of renders running at once and smooths the
// rate at which they start external processes.
type Admission struct {
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	capacity int64

	mu       sync.Mutex
	inFlight int64
}

// NewAdmission allows maxConcurrent renders at once. spawnsPerSecond <= 0
// disables rate smoothing.
func NewAdmission(maxConcurrent int, spawnsPerSecond float64) *Admission {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	limit := rate.Inf
	if spawnsPerSecond > 0 && !math.IsInf(spawnsPerSecond, 1) {
		limit = rate.Limit(spawnsPerSecond)
	}
	return &Admission{
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		limiter:  rate.NewLimiter(limit, 1),
		capacity: int64(maxConcurrent),
	}
}

// Acquire blocks until a slot is free, or ctx ends. The returned function
// releases the slot and must be called exactly once.
func (a *Admission) Acquire(ctx context.Context) (func(), error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for render slot: %w", err)
	}
	if err := a.limiter.Wait(ctx); err != nil {
		a.sem.Release(1)
		return nil, fmt.Errorf("waiting for spawn budget: %w", err)
	}
	return a.admit(), nil
}

// TryAcquire takes a slot only if one is free right now.
func (a *Admission) TryAcquire() (func(), bool) {
	if !a.sem.TryAcquire(1) {
		return nil, false
	}
	return a.admit(), true
}

// admit counts a held slot and returns its idempotent release.
func (a *Admission) admit() func() {
	a.mu.Lock()
	a.inFlight++
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			a.inFlight--
			a.mu.Unlock()
			a.sem.Release(1)
		})
	}
}

// InFlight returns the number of renders holding a slot.
func (a *Admission) InFlight() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inFlight
}

// Capacity returns the configured concurrency ceiling.
func (a *Admission) Capacity() int64 {
	return a.capacity
}

