package core

import (
	"golang.org/x/exp/constraints"
)

// Series is an append-ordered sequence of comparable values, oldest
// first. Windows expose candle fields and indicator outputs as Series
// so strategies can phrase conditions against the most recent bars.
type Series[T constraints.Ordered] []T

// Values exposes the raw backing slice.
func (s Series[T]) Values() []T {
	return s
}

// Length reports how many values the series holds.
func (s Series[T]) Length() int {
	return len(s)
}

// Last indexes from the newest end: Last(0) is the latest value,
// Last(1) the one before it.
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

// LastValues returns the newest size values, or the whole series when
// it is shorter than that.
func (s Series[T]) LastValues(size int) Series[T] {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Crossover reports s moving above ref on the latest bar: s now leads
// while it did not on the previous bar.
func (s Series[T]) Crossover(ref Series[T]) bool {
	return s.Last(0) > ref.Last(0) && s.Last(1) <= ref.Last(1)
}

// Crossunder reports s dropping to or below ref on the latest bar
// after leading on the previous one.
func (s Series[T]) Crossunder(ref Series[T]) bool {
	return s.Last(0) <= ref.Last(0) && s.Last(1) > ref.Last(1)
}
