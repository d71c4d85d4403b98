package specs

import (
	"context"
)

// Specification is a rule over T that explains itself when it fails. Violations is empty
// exactly when IsSatisfiedBy is true. A cancelled context fails every rule.
type Specification[T any] interface {
	IsSatisfiedBy(ctx context.Context, v T) bool
	Violations(ctx context.Context, v T) []string
	And(other Specification[T]) Specification[T]
}

type rule[T any] struct {
	msg string
	fn  func(ctx context.Context, v T) bool
}

func (r rule[T]) IsSatisfiedBy(ctx context.Context, v T) bool {
	return ctx.Err() == nil && r.fn(ctx, v)
}

func (r rule[T]) Violations(ctx context.Context, v T) []string {
	if r.IsSatisfiedBy(ctx, v) {
		return nil
	}
	return []string{r.msg}
}

func (r rule[T]) And(other Specification[T]) Specification[T] { return all[T]{r, other} }

// reporter is a rule that can fail several times over, one message per offending part.
type reporter[T any] func(ctx context.Context, v T) []string

func (f reporter[T]) IsSatisfiedBy(ctx context.Context, v T) bool {
	return len(f.Violations(ctx, v)) == 0
}

func (f reporter[T]) Violations(ctx context.Context, v T) []string {
	if err := ctx.Err(); err != nil {
		return []string{err.Error()}
	}
	return f(ctx, v)
}

func (f reporter[T]) And(other Specification[T]) Specification[T] { return all[T]{f, other} }

// all evaluates every member in order. It never stops at the first failure, so the caller
// sees every problem at once.
type all[T any] []Specification[T]

func (a all[T]) IsSatisfiedBy(ctx context.Context, v T) bool {
	return len(a.Violations(ctx, v)) == 0
}

func (a all[T]) Violations(ctx context.Context, v T) []string {
	var out []string
	for _, s := range a {
		out = append(out, s.Violations(ctx, v)...)
	}
	return out
}

func (a all[T]) And(other Specification[T]) Specification[T] {
	next := make(all[T], len(a), len(a)+1)
	copy(next, a)
	return append(next, other)
}

// New constructs a Specification from a predicate and the message shown when it fails.
func New[T any](msg string, fn func(ctx context.Context, v T) bool) Specification[T] {
	return rule[T]{msg: msg, fn: fn}
}

// Each constructs a Specification that reports any number of messages.
func Each[T any](fn func(ctx context.Context, v T) []string) Specification[T] {
	return reporter[T](fn)
}
