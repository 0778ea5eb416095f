// Package errors defines the errors surfaced by the simulation client.
//
// Failures reported by the remote simulator arrive as *SimulationError and
// match the sentinel of their code through errors.Is. Transport failures are
// wrapped in *TransportError and payload encoding failures in
// *SerializationError.
package errors

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Sentinels for remote error codes
var (
	ErrInternal                 = errors.New("internal simulator error")
	ErrMissingArgument          = errors.New("missing argument")
	ErrInvalidTime              = errors.New("invalid simulation time")
	ErrInvalidPeriod            = errors.New("invalid period")
	ErrInvalidDeadline          = errors.New("invalid deadline")
	ErrInvalidMessage           = errors.New("invalid message")
	ErrInvalidKey               = errors.New("invalid event key")
	ErrInitializerPanic         = errors.New("bench initializer panicked")
	ErrSimulationNotStarted     = errors.New("simulation not started")
	ErrSimulationTerminated     = errors.New("simulation terminated")
	ErrSimulationDeadlock       = errors.New("simulation deadlock")
	ErrSimulationMessageLoss    = errors.New("simulation message loss")
	ErrSimulationNoRecipient    = errors.New("simulation message has no recipient")
	ErrSimulationPanic          = errors.New("model panicked")
	ErrSimulationTimeout        = errors.New("simulation step timed out")
	ErrSimulationOutOfSync      = errors.New("simulation clock out of sync")
	ErrSimulationBadQuery       = errors.New("bad query")
	ErrSimulationTimeOutOfRange = errors.New("simulation time out of range")
	ErrSimulationHalted         = errors.New("simulation halted")
	ErrSourceNotFound           = errors.New("source not found")
	ErrSinkNotFound             = errors.New("sink not found")
	ErrSinkReadTimeout          = errors.New("sink read timed out")
)

// Local sentinels
var (
	ErrClosed             = errors.New("simulation handle is closed")
	ErrUnexpectedResponse = errors.New("unexpected response from simulator")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrInvalidAddress     = errors.New("invalid server address")
)

var codeSentinels = map[Code]error{
	CodeInternal:                 ErrInternal,
	CodeMissingArgument:          ErrMissingArgument,
	CodeInvalidTime:              ErrInvalidTime,
	CodeInvalidPeriod:            ErrInvalidPeriod,
	CodeInvalidDeadline:          ErrInvalidDeadline,
	CodeInvalidMessage:           ErrInvalidMessage,
	CodeInvalidKey:               ErrInvalidKey,
	CodeInitializerPanic:         ErrInitializerPanic,
	CodeSimulationNotStarted:     ErrSimulationNotStarted,
	CodeSimulationTerminated:     ErrSimulationTerminated,
	CodeSimulationDeadlock:       ErrSimulationDeadlock,
	CodeSimulationMessageLoss:    ErrSimulationMessageLoss,
	CodeSimulationNoRecipient:    ErrSimulationNoRecipient,
	CodeSimulationPanic:          ErrSimulationPanic,
	CodeSimulationTimeout:        ErrSimulationTimeout,
	CodeSimulationOutOfSync:      ErrSimulationOutOfSync,
	CodeSimulationBadQuery:       ErrSimulationBadQuery,
	CodeSimulationTimeOutOfRange: ErrSimulationTimeOutOfRange,
	CodeSimulationHalted:         ErrSimulationHalted,
	CodeSourceNotFound:           ErrSourceNotFound,
	CodeSinkNotFound:             ErrSinkNotFound,
	CodeSinkReadTimeout:          ErrSinkReadTimeout,
}

// Sentinel returns the sentinel error of a code, or ErrInternal for codes
// this client does not know.
func (c Code) Sentinel() error {
	if err, ok := codeSentinels[c]; ok {
		return err
	}
	return ErrInternal
}

// SimulationError is an error reported by the simulator in a reply.
type SimulationError struct {
	Op      string
	Code    Code
	Message string
}

func (e *SimulationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Code.Sentinel())
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
}

// Is matches the sentinel of the error code.
func (e *SimulationError) Is(target error) bool {
	return target == e.Code.Sentinel()
}

// TransportError wraps a gRPC failure of an operation.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode returns the gRPC status code carried by the error.
func (e *TransportError) StatusCode() codes.Code {
	return status.Code(e.Err)
}

// SerializationError wraps a failure to encode or decode a payload.
type SerializationError struct {
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s: serialization: %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// ConfigError represents an error related to configuration
type ConfigError struct {
	Component string
	Field     string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config %s.%s: %v", e.Component, e.Field, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Component, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Error wrapping constructors
func NewSimulationError(op string, code Code, message string) error {
	return &SimulationError{Op: op, Code: code, Message: message}
}

// WrapTransportError wraps err unless it is nil. Context errors that gRPC
// reports as Canceled or DeadlineExceeded still match context.Canceled and
// context.DeadlineExceeded through errors.Is.
func WrapTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Canceled:
		err = fmt.Errorf("%w: %w", context.Canceled, err)
	case codes.DeadlineExceeded:
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return &TransportError{Op: op, Err: err}
}

func WrapSerializationError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SerializationError{Op: op, Err: err}
}

func NewConfigError(component, field string, err error) error {
	return &ConfigError{Component: component, Field: field, Err: fmt.Errorf("%w: %v", ErrInvalidConfig, err)}
}

// Error classification functions
func IsSimulationError(err error) bool {
	var se *SimulationError
	return errors.As(err, &se)
}

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsSerializationError(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// GetCode extracts the remote error code, if any.
func GetCode(err error) (Code, bool) {
	var se *SimulationError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrSourceNotFound) || errors.Is(err, ErrSinkNotFound)
}

func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Re-exported so callers need a single errors import.
func Is(err, target error) bool    { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
func New(text string) error         { return errors.New(text) }
func Join(errs ...error) error      { return errors.Join(errs...) }
