// Package counters keeps per-operation request and response counters.
package counters

import "sync/atomic"

// APICounterValues holds the four monotonic counters of one operation.
// Increments are independent atomics; two fields read one after the other
// are not a consistent snapshot.
type APICounterValues struct {
	requestsOK     atomic.Uint64
	requestsError  atomic.Uint64
	responsesOK    atomic.Uint64
	responsesError atomic.Uint64
}

func (c *APICounterValues) IncRequestsOK()     { c.requestsOK.Add(1) }
func (c *APICounterValues) IncRequestsError()  { c.requestsError.Add(1) }
func (c *APICounterValues) IncResponsesOK()    { c.responsesOK.Add(1) }
func (c *APICounterValues) IncResponsesError() { c.responsesError.Add(1) }

type Snapshot struct {
	RequestsOK     uint64 `json:"requests_ok"`
	RequestsError  uint64 `json:"requests_error"`
	ResponsesOK    uint64 `json:"responses_ok"`
	ResponsesError uint64 `json:"responses_error"`
}

func (c *APICounterValues) ToSnapshot() Snapshot {
	return Snapshot{
		RequestsOK:     c.requestsOK.Load(),
		RequestsError:  c.requestsError.Load(),
		ResponsesOK:    c.responsesOK.Load(),
		ResponsesError: c.responsesError.Load(),
	}
}

// Set is a fixed collection of counters, one per operation name. The map is
// built once and never mutated, so lookups need no lock.
type Set struct {
	operations []string
	counters   map[string]*APICounterValues
}

func NewSet(operations ...string) *Set {
	s := &Set{counters: make(map[string]*APICounterValues, len(operations))}
	for _, op := range operations {
		if _, ok := s.counters[op]; ok {
			continue
		}
		s.operations = append(s.operations, op)
		s.counters[op] = &APICounterValues{}
	}
	return s
}

// Get returns the counters of op, or nil when the set does not track it.
func (s *Set) Get(op string) *APICounterValues {
	return s.counters[op]
}

func (s *Set) Operations() []string {
	return append([]string(nil), s.operations...)
}

func (s *Set) Snapshot() map[string]Snapshot {
	out := make(map[string]Snapshot, len(s.counters))
	for op, c := range s.counters {
		out[op] = c.ToSnapshot()
	}
	return out
}
