package ai

import (
	"errors"
	"iter"
	"strings"
	"sync/atomic"
)

var ErrStreamConsumed = errors.New("stream already consumed")

// Stream is a lazy, finite sequence of text fragments. It cannot be restarted.
type Stream struct {
	seq      iter.Seq2[string, error]
	consumed atomic.Bool
}

func NewStream(seq iter.Seq2[string, error]) *Stream {
	return &Stream{seq: seq}
}

// StreamOf returns a stream that yields the given fragments in order.
func StreamOf(fragments ...string) *Stream {
	return NewStream(func(yield func(string, error) bool) {
		for _, f := range fragments {
			if !yield(f, nil) {
				return
			}
		}
	})
}

// Collect drains the stream, calling onFragment for every non-empty fragment
// in delivery order, and returns the concatenated text. On error the text
// received so far is returned together with the error.
func (s *Stream) Collect(onFragment func(string)) (string, error) {
	if s == nil || s.seq == nil {
		return "", errors.New("stream is not initialized")
	}
	if !s.consumed.CompareAndSwap(false, true) {
		return "", ErrStreamConsumed
	}

	var builder strings.Builder
	for fragment, err := range s.seq {
		if err != nil {
			return builder.String(), err
		}
		if fragment == "" {
			continue
		}
		builder.WriteString(fragment)
		if onFragment != nil {
			onFragment(fragment)
		}
	}

	return builder.String(), nil
}
