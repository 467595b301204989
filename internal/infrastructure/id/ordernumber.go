// Package id generates externally visible order numbers. A bare wall-clock
// value is not collision-free under concurrent creation, so each number
// composes the millisecond timestamp with a random per-process salt and an
// atomic per-process sequence.
package id

import (
	"math/rand"
	"sync/atomic"
	"time"
)

const (
	saltBits = 10
	seqBits  = 10
	saltMask = 1<<saltBits - 1
	seqMask  = 1<<seqBits - 1
)

type OrderNumberSource struct {
	salt int64
	seq  atomic.Int64
}

func NewOrderNumberSource() *OrderNumberSource {
	return &OrderNumberSource{
		salt: rand.Int63n(saltMask + 1),
	}
}

// Next returns a fresh order number. Numbers are monotonic-ish (the high
// bits are the creation millisecond) and unique within a process; the salt
// keeps two processes started in the same millisecond apart.
func (s *OrderNumberSource) Next() int64 {
	millis := time.Now().UnixMilli()
	seq := s.seq.Add(1) & seqMask
	return millis<<(saltBits+seqBits) | s.salt<<seqBits | seq
}
