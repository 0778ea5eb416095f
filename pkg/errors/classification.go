package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCategory groups errors by what the caller can do about them.
type ErrorCategory string

const (
	CategoryUsage         ErrorCategory = "usage"
	CategoryState         ErrorCategory = "state"
	CategoryModel         ErrorCategory = "model"
	CategoryTransport     ErrorCategory = "transport"
	CategorySerialization ErrorCategory = "serialization"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryUnknown       ErrorCategory = "unknown"
)

// ErrorSeverity tells how serious an error is for the running bench.
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "critical"
	SeverityHigh     ErrorSeverity = "high"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityLow      ErrorSeverity = "low"
)

// ClassifiedError is an error with a category, a severity and a message
// meant for people rather than logs.
type ClassifiedError struct {
	Err      error
	Category ErrorCategory
	Severity ErrorSeverity
	UserMsg  string
}

func (e *ClassifiedError) Error() string {
	return e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// ClassifyError classifies an error based on its type and remote code.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if code, ok := GetCode(err); ok {
		return classifyCode(err, code)
	}

	switch {
	case errors.Is(err, ErrClosed):
		return &ClassifiedError{err, CategoryUsage, SeverityLow, "The simulation handle was already closed."}

	case IsConfigError(err), errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrInvalidAddress):
		return &ClassifiedError{err, CategoryConfiguration, SeverityHigh, "Configuration error. Please check the server address and configuration file."}

	case IsSerializationError(err):
		return &ClassifiedError{err, CategorySerialization, SeverityMedium, "A payload could not be converted to or from the type expected by the bench."}

	case errors.Is(err, ErrUnexpectedResponse):
		return &ClassifiedError{err, CategoryTransport, SeverityHigh, "The server replied with an unexpected message. Client and server versions may not match."}

	case errors.Is(err, context.Canceled):
		return &ClassifiedError{err, CategoryTimeout, SeverityLow, "Operation was canceled."}

	case errors.Is(err, context.DeadlineExceeded):
		return &ClassifiedError{err, CategoryTimeout, SeverityMedium, "Operation timed out."}

	case IsTransportError(err):
		if status.Code(err) == codes.Unavailable {
			return &ClassifiedError{err, CategoryTransport, SeverityHigh, "The simulation server is unreachable. Is it running at the configured address?"}
		}
		return &ClassifiedError{err, CategoryTransport, SeverityHigh, "Communication with the simulation server failed."}
	}

	return &ClassifiedError{err, CategoryUnknown, SeverityMedium, "An unexpected error occurred."}
}

func classifyCode(err error, code Code) *ClassifiedError {
	switch code {
	case CodeMissingArgument, CodeInvalidTime, CodeInvalidPeriod, CodeInvalidDeadline,
		CodeInvalidMessage, CodeInvalidKey:
		return &ClassifiedError{err, CategoryUsage, SeverityLow, "The request was rejected by the simulator: " + code.Sentinel().Error() + "."}

	case CodeSourceNotFound, CodeSinkNotFound:
		return &ClassifiedError{err, CategoryUsage, SeverityLow, "No such endpoint in the bench: " + code.Sentinel().Error() + "."}

	case CodeSimulationNotStarted:
		return &ClassifiedError{err, CategoryState, SeverityLow, "The simulation has not been started yet."}

	case CodeSimulationTerminated, CodeSimulationHalted:
		return &ClassifiedError{err, CategoryState, SeverityMedium, "The simulation is no longer running: " + code.Sentinel().Error() + "."}

	case CodeSinkReadTimeout, CodeSimulationTimeout, CodeSimulationOutOfSync:
		return &ClassifiedError{err, CategoryTimeout, SeverityMedium, code.Sentinel().Error() + "."}

	case CodeInitializerPanic, CodeSimulationPanic, CodeSimulationDeadlock,
		CodeSimulationMessageLoss, CodeSimulationNoRecipient, CodeSimulationBadQuery,
		CodeSimulationTimeOutOfRange:
		return &ClassifiedError{err, CategoryModel, SeverityCritical, "The simulation bench failed: " + code.Sentinel().Error() + "."}
	}

	return &ClassifiedError{err, CategoryUnknown, SeverityHigh, "The simulator reported an internal error."}
}

// GetSeverity returns the severity of an error, SeverityLow when nil.
func GetSeverity(err error) ErrorSeverity {
	classified := ClassifyError(err)
	if classified == nil {
		return SeverityLow
	}
	return classified.Severity
}

// GetCategory returns the category of an error, CategoryUnknown when nil.
func GetCategory(err error) ErrorCategory {
	classified := ClassifyError(err)
	if classified == nil {
		return CategoryUnknown
	}
	return classified.Category
}

func GetUserMessage(err error) string {
	classified := ClassifyError(err)
	if classified == nil {
		return "An error occurred."
	}
	return classified.UserMsg
}

// IsCritical reports errors after which the bench should be restarted.
func IsCritical(err error) bool {
	return GetSeverity(err) == SeverityCritical
}

// FormatErrorForLogging formats an error for structured logging
func FormatErrorForLogging(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	classified := ClassifyError(err)
	result := map[string]interface{}{
		"error":    err.Error(),
		"category": string(classified.Category),
		"severity": string(classified.Severity),
	}

	if code, ok := GetCode(err); ok {
		result["code"] = code.String()
	}
	var te *TransportError
	if errors.As(err, &te) {
		result["grpc_code"] = te.StatusCode().String()
	}

	return result
}

// LogError logs an error with its classification fields.
func LogError(logger interface{ Error(string, ...interface{}) }, err error, msg string) {
	if err == nil {
		return
	}

	logData := FormatErrorForLogging(err)
	args := make([]interface{}, 0, len(logData)*2)
	for k, v := range logData {
		args = append(args, k, v)
	}

	logger.Error(msg, args...)
}
