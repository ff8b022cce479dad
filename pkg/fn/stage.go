package fn

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// Stage is a function that transforms In to Out within a context.
type Stage[In, Out any] func(context.Context, In) (Out, error)

// Then composes two stages, short-circuiting on error.
func Then[A, B, C any](first Stage[A, B], second Stage[B, C]) Stage[A, C] {
	return func(ctx context.Context, a A) (C, error) {
		b, err := first(ctx, a)
		if err != nil {
			var zero C
			return zero, err
		}
		return second(ctx, b)
	}
}

// Tap runs a side effect and passes the value through unchanged.
func Tap[T any](f func(context.Context, T)) Stage[T, T] {
	return func(ctx context.Context, t T) (T, error) {
		f(ctx, t)
		return t, nil
	}
}

// Traced wraps a stage with OTel span creation, recording errors.
func Traced[In, Out any](name string, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		ctx, span := otel.Tracer("pkg/fn").Start(ctx, name)
		defer span.End()
		out, err := stage(ctx, in)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return out, err
	}
}
