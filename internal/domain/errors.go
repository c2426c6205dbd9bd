package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// StorageError represents a persistence failure that may be retriable
type StorageError struct {
	Op        string // Operation that failed (e.g., "save_state", "append_events")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) IsRetriable() bool {
	return e.Retriable
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new retriable storage error
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err, Retriable: true}
}

// NewFatalStorageError creates a non-retriable storage error
func NewFatalStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrTokenNotFound is returned when a player action names an unknown token.
	ErrTokenNotFound = errors.New("token not found")

	// ErrInvalidAmount is returned for non-positive or out-of-range trade sizes.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance is returned when a buy exceeds the SOL balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNoPosition is returned when selling a token that is not held.
	ErrNoPosition = errors.New("no position")

	// ErrClaimCooldown is returned when claiming before the cooldown elapsed.
	ErrClaimCooldown = errors.New("claim on cooldown")

	// ErrStateNotFound is returned by a StateStore for a missing key.
	ErrStateNotFound = errors.New("state not found")

	// ErrInboxFull is returned when the sequencer cannot accept more commands.
	ErrInboxFull = errors.New("sequencer inbox full")

	// ErrInvalidTimeframe is returned for an unknown candle timeframe name.
	ErrInvalidTimeframe = errors.New("invalid timeframe")
)
