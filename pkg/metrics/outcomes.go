// Package metrics counts responses by outcome between telemetry flushes.
package metrics

import (
	"sync"

	"envelope-service/pkg/envelope"
)

// Recorder is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	counts map[envelope.Outcome]int64
	other  int64
}

func NewRecorder() *Recorder {
	return &Recorder{counts: make(map[envelope.Outcome]int64)}
}

// Observe counts one response with the given status code. Codes outside
// the outcome table are counted separately.
func (r *Recorder) Observe(status int) {
	o, ok := envelope.OutcomeForStatus(status)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !ok {
		r.other++
		return
	}
	r.counts[o]++
}

type Snapshot struct {
	Counts map[envelope.Outcome]int64
	Other  int64
}

// Drain returns the counts gathered since the previous drain and resets them.
func (r *Recorder) Drain() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{Counts: r.counts, Other: r.other}
	r.counts = make(map[envelope.Outcome]int64)
	r.other = 0
	return snap
}

func (s Snapshot) Empty() bool {
	return len(s.Counts) == 0 && s.Other == 0
}
