package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker refuses a call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrBulkheadFull is returned when the concurrency cap is reached
	// and the caller chose not to wait.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")
)
