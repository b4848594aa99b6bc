package domain

import "fmt"

// DataFormatError indicates malformed or insufficient input data: a missing
// date column, a non-numeric cell, non-positive prices for log returns, or
// too few observations for a statistic.
type DataFormatError struct {
	Msg string
	Err error
}

func (e *DataFormatError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *DataFormatError) Unwrap() error { return e.Err }

func DataFormatErrf(format string, args ...any) *DataFormatError {
	return &DataFormatError{Msg: fmt.Sprintf(format, args...)}
}

// OptimizationError indicates the allocator could not produce a weight
// vector: infeasible constraints, an indefinite covariance matrix, or
// non-convergence of the numerical solver.
type OptimizationError struct {
	Msg string
	Err error
}

func (e *OptimizationError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *OptimizationError) Unwrap() error { return e.Err }

func OptimizationErrf(format string, args ...any) *OptimizationError {
	return &OptimizationError{Msg: fmt.Sprintf(format, args...)}
}
