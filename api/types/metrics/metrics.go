/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics holds counters collected by the metrics aspect.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// InvocationMetrics holds call counters for intercepted methods.
type InvocationMetrics struct {
	Current int64 // Number of calls currently running
	Total   int64 // Total number of calls
	Failed  int64 // Number of calls that returned an error
	Success int64 // Number of calls that returned without error
	// Elapsed is the accumulated call duration in nanoseconds.
	Elapsed int64

	methods sync.Map // method name -> *InvocationMetrics
}

// NewInvocationMetrics creates a new instance of InvocationMetrics.
func NewInvocationMetrics() *InvocationMetrics {
	return &InvocationMetrics{}
}

// IncrementCurrent increases the count of current calls.
func (m *InvocationMetrics) IncrementCurrent() {
	atomic.AddInt64(&m.Current, 1)
}

// DecrementCurrent decreases the count of current calls.
func (m *InvocationMetrics) DecrementCurrent() {
	atomic.AddInt64(&m.Current, -1)
}

// IncrementTotal increases the total count of calls.
func (m *InvocationMetrics) IncrementTotal() {
	atomic.AddInt64(&m.Total, 1)
}

// IncrementFailed increases the count of failed calls.
func (m *InvocationMetrics) IncrementFailed() {
	atomic.AddInt64(&m.Failed, 1)
}

// IncrementSuccess increases the count of successful calls.
func (m *InvocationMetrics) IncrementSuccess() {
	atomic.AddInt64(&m.Success, 1)
}

// AddElapsed accumulates d.
func (m *InvocationMetrics) AddElapsed(d time.Duration) {
	atomic.AddInt64(&m.Elapsed, int64(d))
}

// Method returns the counters of a single method, creating them on first use.
func (m *InvocationMetrics) Method(name string) *InvocationMetrics {
	if v, ok := m.methods.Load(name); ok {
		return v.(*InvocationMetrics)
	}
	v, _ := m.methods.LoadOrStore(name, &InvocationMetrics{})
	return v.(*InvocationMetrics)
}

// Get returns a copy of the current counters.
func (m *InvocationMetrics) Get() Snapshot {
	return Snapshot{
		Current: atomic.LoadInt64(&m.Current),
		Total:   atomic.LoadInt64(&m.Total),
		Failed:  atomic.LoadInt64(&m.Failed),
		Success: atomic.LoadInt64(&m.Success),
		Elapsed: time.Duration(atomic.LoadInt64(&m.Elapsed)),
	}
}

// Reset resets all counters to zero, per method counters included.
func (m *InvocationMetrics) Reset() {
	atomic.StoreInt64(&m.Current, 0)
	atomic.StoreInt64(&m.Total, 0)
	atomic.StoreInt64(&m.Failed, 0)
	atomic.StoreInt64(&m.Success, 0)
	atomic.StoreInt64(&m.Elapsed, 0)
	m.methods.Range(func(key, _ any) bool {
		m.methods.Delete(key)
		return true
	})
}

// Snapshot is a point in time copy of InvocationMetrics.
type Snapshot struct {
	Current int64
	Total   int64
	Failed  int64
	Success int64
	Elapsed time.Duration
}
