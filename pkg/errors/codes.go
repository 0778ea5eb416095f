package errors

import "fmt"

// Code is an error code reported by the simulation server.
type Code int32

// Codes of the simulation.v1 ErrorCode enum.
const (
	CodeInternal                 Code = 0
	CodeMissingArgument          Code = 1
	CodeInvalidTime              Code = 2
	CodeInvalidPeriod            Code = 3
	CodeInvalidDeadline          Code = 4
	CodeInvalidMessage           Code = 5
	CodeInvalidKey               Code = 6
	CodeInitializerPanic         Code = 7
	CodeSimulationNotStarted     Code = 8
	CodeSimulationTerminated     Code = 9
	CodeSimulationDeadlock       Code = 10
	CodeSimulationMessageLoss    Code = 11
	CodeSimulationNoRecipient    Code = 12
	CodeSimulationPanic          Code = 13
	CodeSimulationTimeout        Code = 14
	CodeSimulationOutOfSync      Code = 15
	CodeSimulationBadQuery       Code = 16
	CodeSimulationTimeOutOfRange Code = 17
	CodeSimulationHalted         Code = 18
	CodeSourceNotFound           Code = 20
	CodeSinkNotFound             Code = 21
	CodeSinkReadTimeout          Code = 22
)

var codeNames = map[Code]string{
	CodeInternal:                 "INTERNAL_ERROR",
	CodeMissingArgument:          "MISSING_ARGUMENT",
	CodeInvalidTime:              "INVALID_TIME",
	CodeInvalidPeriod:            "INVALID_PERIOD",
	CodeInvalidDeadline:          "INVALID_DEADLINE",
	CodeInvalidMessage:           "INVALID_MESSAGE",
	CodeInvalidKey:               "INVALID_KEY",
	CodeInitializerPanic:         "INITIALIZER_PANIC",
	CodeSimulationNotStarted:     "SIMULATION_NOT_STARTED",
	CodeSimulationTerminated:     "SIMULATION_TERMINATED",
	CodeSimulationDeadlock:       "SIMULATION_DEADLOCK",
	CodeSimulationMessageLoss:    "SIMULATION_MESSAGE_LOSS",
	CodeSimulationNoRecipient:    "SIMULATION_NO_RECIPIENT",
	CodeSimulationPanic:          "SIMULATION_PANIC",
	CodeSimulationTimeout:        "SIMULATION_TIMEOUT",
	CodeSimulationOutOfSync:      "SIMULATION_OUT_OF_SYNC",
	CodeSimulationBadQuery:       "SIMULATION_BAD_QUERY",
	CodeSimulationTimeOutOfRange: "SIMULATION_TIME_OUT_OF_RANGE",
	CodeSimulationHalted:         "SIMULATION_HALTED",
	CodeSourceNotFound:           "SOURCE_NOT_FOUND",
	CodeSinkNotFound:             "SINK_NOT_FOUND",
	CodeSinkReadTimeout:          "SINK_READ_TIMEOUT",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int32(c))
}

// Codes lists every known code in ascending order.
func Codes() []Code {
	return []Code{
		CodeInternal, CodeMissingArgument, CodeInvalidTime, CodeInvalidPeriod,
		CodeInvalidDeadline, CodeInvalidMessage, CodeInvalidKey, CodeInitializerPanic,
		CodeSimulationNotStarted, CodeSimulationTerminated, CodeSimulationDeadlock,
		CodeSimulationMessageLoss, CodeSimulationNoRecipient, CodeSimulationPanic,
		CodeSimulationTimeout, CodeSimulationOutOfSync, CodeSimulationBadQuery,
		CodeSimulationTimeOutOfRange, CodeSimulationHalted, CodeSourceNotFound,
		CodeSinkNotFound, CodeSinkReadTimeout,
	}
}
