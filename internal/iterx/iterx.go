package iterx

import (
	"iter"
)

func FromSlice[T any](in []T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range in {
			if !yield(item) {
				break
			}
		}
	}
}

// FromChan yields values received from in until in is closed or done is
// closed, whichever happens first.
func FromChan[T any](in <-chan T, done <-chan struct{}) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			select {
			case <-done:
				return
			case item, ok := <-in:
				if !ok || !yield(item) {
					return
				}
			}
		}
	}
}

// Count yields n consecutive integers starting at start.
func Count(start, n int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := range n {
			if !yield(start + i) {
				return
			}
		}
	}
}
