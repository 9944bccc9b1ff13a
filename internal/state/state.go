// Package state holds the durable record of a network-build job: the full
// candidate set, the processed subset, and the scheduler that slices pending
// work into bounded batches.
//
// The state file is single-writer. Persistence happens after every single
// item, so a crash mid-batch loses at most the in-flight handle.
package state

import "time"

// Phase describes where a job is in its lifecycle.
type Phase string

const (
	PhaseEmpty              Phase = "empty"
	PhasePopulated          Phase = "populated"
	PhasePartiallyProcessed Phase = "partially_processed"
	PhaseComplete           Phase = "complete"
)

// State is the durable snapshot of one network-build job.
//
// Pending is never stored: it is always recomputed as candidates minus
// processed, in candidate order, so reruns are deterministic.
type State struct {
	Candidates  []string  `json:"candidate_handles"`
	Processed   []string  `json:"processed_handles"`
	SourceTag   string    `json:"source_tag,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// Pending returns the candidates not yet processed, preserving the
// candidate list's original order.
func (s *State) Pending() []string {
	done := make(map[string]bool, len(s.Processed))
	for _, h := range s.Processed {
		done[h] = true
	}
	var out []string
	for _, h := range s.Candidates {
		if !done[h] {
			out = append(out, h)
		}
	}
	return out
}

// MarkProcessed records h as processed. Idempotent: marking an already
// processed handle is a no-op. It does not persist; the caller saves the
// snapshot, which is what lets the scheduler persist after every item.
func (s *State) MarkProcessed(h string) {
	for _, p := range s.Processed {
		if p == h {
			return
		}
	}
	s.Processed = append(s.Processed, h)
}

// Refresh replaces the candidate set and clears processed. This is a
// discard-and-restart transition, not a merge.
func (s *State) Refresh(candidates []string, sourceTag string) {
	s.Candidates = candidates
	s.Processed = nil
	s.SourceTag = sourceTag
}

// Phase derives the job's lifecycle phase.
func (s *State) Phase() Phase {
	if len(s.Candidates) == 0 {
		return PhaseEmpty
	}
	pending := len(s.Pending())
	switch {
	case pending == len(s.Candidates):
		return PhasePopulated
	case pending == 0:
		return PhaseComplete
	}
	return PhasePartiallyProcessed
}

// BatchSize computes the slice size for a batch fraction f in (0,1]:
// max(1, floor(pending*f)). Zero pending means no batch.
func BatchSize(pending int, f float64) int {
	if pending == 0 {
		return 0
	}
	n := int(float64(pending) * f)
	if n < 1 {
		n = 1
	}
	if n > pending {
		n = pending
	}
	return n
}

// NextBatch returns the next slice of pending handles to process, in their
// stable order. An empty slice means the job is complete.
func (s *State) NextBatch(f float64) []string {
	pending := s.Pending()
	n := BatchSize(len(pending), f)
	return pending[:n]
}
