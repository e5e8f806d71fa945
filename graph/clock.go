package graph

import "time"

// Clock supplies the "now" reading the merge rule compares incoming
// timestamps against. It is a seam so tests can pin time.
type Clock interface {
	Now() float64
}

// SystemClock reads the wall clock as float seconds since the epoch.
type SystemClock struct{}

func (SystemClock) Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// FixedClock always reads the same instant.
type FixedClock float64

func (c FixedClock) Now() float64 { return float64(c) }
