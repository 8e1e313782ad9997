// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlite

import (
	"iter"
)

type queryState int

const (
	hasValue  queryState = iota // current holds a decoded row
	exhausted                   // every row was read; the statement is closed
	released                    // closed early or failed; the statement is closed
)

// Query lazily decodes the rows of a statement into values of type T.
//
// A Query owns its statement. It is positioned on its first row as soon as
// it is created, and it closes the statement once the rows run out.
// Exhausted tells a query that ran to its end from one that was closed early.
type Query[T any] struct {
	stmt    *Stmt
	decode  func(*Stmt) T
	current T
	state   queryState
}

// NewQuery takes ownership of stmt and steps it once. The statement must be
// fully bound. On error the statement is closed.
func NewQuery[T any](stmt *Stmt, decode func(*Stmt) T) (*Query[T], error) {
	q := &Query[T]{stmt: stmt, decode: decode}
	if err := q.advance(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Query[T]) advance() error {
	res, err := q.stmt.Step()
	if err != nil {
		q.release()
		return err
	}
	if res == Done {
		q.finish(exhausted)
		return nil
	}
	q.current = q.decode(q.stmt)
	q.state = hasValue
	return nil
}

// release closes the statement after a failed step.
func (q *Query[T]) release() {
	q.finish(released)
}

func (q *Query[T]) finish(state queryState) {
	// a finalize error repeats the step outcome that led here
	_ = q.stmt.Close()
	var zero T
	q.current = zero
	q.state = state
}

// Finished reports whether the query has no current value.
func (q *Query[T]) Finished() bool {
	return q.state != hasValue
}

// Current returns the value decoded from the current row.
// Current panics if the query is finished.
func (q *Query[T]) Current() T {
	if q.Finished() {
		panic(misuse("current value of a finished query"))
	}
	return q.current
}

// Exhausted reports whether every row of the query has been read. It is
// false for a query that is still running, was closed early, or failed.
func (q *Query[T]) Exhausted() bool {
	return q.state == exhausted
}

// Next moves to the following row. A step error finishes the query.
// Next panics if the query is already finished.
func (q *Query[T]) Next() error {
	if q.Finished() {
		panic(misuse("advancing a finished query"))
	}
	return q.advance()
}

// Close releases the statement of an unfinished query. Closing a finished
// query is a no-op.
func (q *Query[T]) Close() error {
	if q.Finished() {
		return nil
	}
	err := q.stmt.Close()
	var zero T
	q.current = zero
	q.state = released
	return err
}

// Position identifies where a query stands. Two positions are equal when
// both are the end position or both refer to the same unfinished query.
type Position[T any] struct {
	q *Query[T]
}

// Position returns the current position of q, or End if q is finished.
func (q *Query[T]) Position() Position[T] {
	if q.Finished() {
		return Position[T]{}
	}
	return Position[T]{q: q}
}

// End returns the position of every finished query.
func End[T any]() Position[T] {
	return Position[T]{}
}

// All yields the remaining values of the query. Stopping early closes the
// query. A step error is yielded once with the zero value and ends the
// sequence.
func (q *Query[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for !q.Finished() {
			if !yield(q.current, nil) {
				_ = q.Close()
				return
			}
			if err := q.Next(); err != nil {
				var zero T
				yield(zero, err)
				return
			}
		}
	}
}

// Collect returns the remaining values of q.
func Collect[T any](q *Query[T]) ([]T, error) {
	var values []T
	for v, err := range q.All() {
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}
