package sched

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned synchronously by the call that received a bad input:
	// a nil task, a task without a bound runner, or an empty join.
	ErrInvalidArgument = errors.New("sched: invalid argument")

	// ErrTooManySubordinates is returned when a join is given more than MaxSubordinates tasks.
	// It wraps ErrInvalidArgument.
	ErrTooManySubordinates = fmt.Errorf("%w: too many join subordinates", ErrInvalidArgument)
)
