package dashboard

import (
	"context"

	"github.com/pot-code/progress-engine/internal/domain"
)

// EntrySeq lazy continue-learning sequence.
//
// The ranking is computed on the first call to Next and iterated like rows:
//
//	for seq.Next() {
//		entry := seq.Entry()
//	}
//	if err := seq.Err(); err != nil {}
//
// Rewind restarts iteration over the same computed ranking. EntrySeq is not safe for concurrent use.
type EntrySeq struct {
	ctx     context.Context
	load    func(ctx context.Context) ([]*domain.ContinueLearningEntry, error)
	loaded  bool
	entries []*domain.ContinueLearningEntry
	pos     int
	err     error
}

func newEntrySeq(ctx context.Context, load func(ctx context.Context) ([]*domain.ContinueLearningEntry, error)) *EntrySeq {
	return &EntrySeq{ctx: ctx, load: load}
}

// Next advance to the next entry, false when exhausted or failed
func (s *EntrySeq) Next() bool {
	if !s.loaded {
		s.loaded = true
		s.entries, s.err = s.load(s.ctx)
	}
	if s.err != nil || s.pos >= len(s.entries) {
		return false
	}
	s.pos++
	return true
}

// Entry current entry, only valid after Next returned true
func (s *EntrySeq) Entry() *domain.ContinueLearningEntry {
	if s.pos == 0 || s.pos > len(s.entries) {
		return nil
	}
	return s.entries[s.pos-1]
}

// Err error that stopped the sequence, if any
func (s *EntrySeq) Err() error {
	return s.err
}

// Rewind restart from the first entry
func (s *EntrySeq) Rewind() {
	s.pos = 0
}

// Collect rewind and drain the sequence, at most limit entries when limit > 0
func (s *EntrySeq) Collect(limit int) ([]*domain.ContinueLearningEntry, error) {
	s.Rewind()
	result := make([]*domain.ContinueLearningEntry, 0)
	for s.Next() {
		result = append(result, s.Entry())
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, s.Err()
}
