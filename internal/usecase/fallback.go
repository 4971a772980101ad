package usecase

import (
	"context"
	"errors"
	"fmt"
)

// errNotApplicable lets a step pass its turn without counting as a real failure
var errNotApplicable = errors.New("step not applicable")

type step[T any] struct {
	name string
	run  func(ctx context.Context) (T, error)
}

// firstSuccess runs steps in order and returns the first result that has no
// error, together with the name of the step that produced it. When every step
// fails the errors are joined in order.
func firstSuccess[T any](ctx context.Context, steps ...step[T]) (T, string, error) {
	var zero T
	var errs []error

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		v, err := s.run(ctx)
		if err == nil {
			return v, s.name, nil
		}
		if !errors.Is(err, errNotApplicable) {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}

	if len(errs) == 0 {
		errs = append(errs, errNotApplicable)
	}
	return zero, "", errors.Join(errs...)
}
