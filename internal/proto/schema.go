// Package proto holds the simulation.v1 gRPC schema spoken by NeXosim
// servers.
//
// The schema is owned by the simulator. Instead of generated stubs it is
// declared here as a FileDescriptorProto, linked against the protobuf
// well-known types at first use, and messages are handled as dynamicpb
// messages through the Message wrapper.
package proto

import (
	"fmt"
	"sync"

	gproto "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	// Register the well-known types the schema imports.
	_ "google.golang.org/protobuf/types/known/durationpb"
	_ "google.golang.org/protobuf/types/known/emptypb"
	_ "google.golang.org/protobuf/types/known/timestamppb"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
)

const (
	FileName    = "simulation.proto"
	Package     = "simulation.v1"
	ServiceName = Package + ".Simulation"
)

type fieldType = descriptorpb.FieldDescriptorProto_Type

const (
	tString  = descriptorpb.FieldDescriptorProto_TYPE_STRING
	tBytes   = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	tBool    = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	tUint64  = descriptorpb.FieldDescriptorProto_TYPE_UINT64
	tEnum    = descriptorpb.FieldDescriptorProto_TYPE_ENUM
	tMessage = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
)

const (
	wktTimestamp = ".google.protobuf.Timestamp"
	wktDuration  = ".google.protobuf.Duration"
	wktEmpty     = ".google.protobuf.Empty"
	typeError    = "." + Package + ".Error"
	typeEventKey = "." + Package + ".EventKey"
	typeCode     = "." + Package + ".ErrorCode"
)

type fieldSpec struct {
	name     string
	number   int32
	typ      fieldType
	typeName string
	repeated bool
	oneof    string
}

type messageSpec struct {
	name   string
	fields []fieldSpec
}

func scalar(name string, number int32, typ fieldType) fieldSpec {
	return fieldSpec{name: name, number: number, typ: typ}
}

func message(name string, number int32, typeName string) fieldSpec {
	return fieldSpec{name: name, number: number, typ: tMessage, typeName: typeName}
}

func (f fieldSpec) in(oneof string) fieldSpec {
	f.oneof = oneof
	return f
}

func (f fieldSpec) list() fieldSpec {
	f.repeated = true
	return f
}

// Reply layouts shared by most methods.
func emptyReply(name string) messageSpec {
	return messageSpec{name, []fieldSpec{
		message("empty", 1, wktEmpty).in("result"),
		message("error", 100, typeError).in("result"),
	}}
}

func timeReply(name string) messageSpec {
	return messageSpec{name, []fieldSpec{
		message("time", 1, wktTimestamp).in("result"),
		message("error", 100, typeError).in("result"),
	}}
}

// listReply hoists the repeated payload out of the oneof, which protobuf
// does not allow to hold repeated fields.
func listReply(name, list string) messageSpec {
	return messageSpec{name, []fieldSpec{
		scalar(list, 1, tBytes).list(),
		message("empty", 10, wktEmpty).in("result"),
		message("error", 100, typeError).in("result"),
	}}
}

func deadline() []fieldSpec {
	return []fieldSpec{
		message("time", 1, wktTimestamp).in("deadline"),
		message("duration", 2, wktDuration).in("deadline"),
	}
}

var messages = []messageSpec{
	{"Error", []fieldSpec{
		{name: "code", number: 1, typ: tEnum, typeName: typeCode},
		scalar("message", 2, tString),
	}},
	{"EventKey", []fieldSpec{
		scalar("subkey1", 1, tUint64),
		scalar("subkey2", 2, tUint64),
	}},

	{"InitRequest", []fieldSpec{scalar("cfg", 1, tBytes)}},
	emptyReply("InitReply"),
	{"HaltRequest", nil},
	emptyReply("HaltReply"),
	{"TerminateRequest", nil},
	emptyReply("TerminateReply"),
	{"TimeRequest", nil},
	timeReply("TimeReply"),
	{"StepRequest", nil},
	timeReply("StepReply"),
	{"StepUntilRequest", deadline()},
	timeReply("StepUntilReply"),
	{"StepUnboundedRequest", nil},
	timeReply("StepUnboundedReply"),

	{"ScheduleEventRequest", append(deadline(),
		scalar("source_name", 3, tString),
		scalar("event", 4, tBytes),
		message("period", 5, wktDuration),
		scalar("with_key", 6, tBool),
	)},
	{"ScheduleEventReply", []fieldSpec{
		message("empty", 1, wktEmpty).in("result"),
		message("key", 2, typeEventKey).in("result"),
		message("error", 100, typeError).in("result"),
	}},
	{"CancelEventRequest", []fieldSpec{message("key", 1, typeEventKey)}},
	emptyReply("CancelEventReply"),

	{"ProcessEventRequest", []fieldSpec{
		scalar("source_name", 1, tString),
		scalar("event", 2, tBytes),
	}},
	emptyReply("ProcessEventReply"),
	{"ProcessQueryRequest", []fieldSpec{
		scalar("source_name", 1, tString),
		scalar("request", 2, tBytes),
	}},
	listReply("ProcessQueryReply", "replies"),

	{"ReadEventsRequest", []fieldSpec{scalar("sink_name", 1, tString)}},
	listReply("ReadEventsReply", "events"),
	{"AwaitEventRequest", []fieldSpec{
		scalar("sink_name", 1, tString),
		message("timeout", 2, wktDuration),
	}},
	{"AwaitEventReply", []fieldSpec{
		scalar("event", 1, tBytes).in("result"),
		message("error", 100, typeError).in("result"),
	}},
	{"OpenSinkRequest", []fieldSpec{scalar("sink_name", 1, tString)}},
	emptyReply("OpenSinkReply"),
	{"CloseSinkRequest", []fieldSpec{scalar("sink_name", 1, tString)}},
	emptyReply("CloseSinkReply"),

	{"SaveRequest", nil},
	{"SaveReply", []fieldSpec{
		scalar("state", 1, tBytes).in("result"),
		message("error", 100, typeError).in("result"),
	}},
	{"RestoreRequest", []fieldSpec{scalar("state", 1, tBytes)}},
	emptyReply("RestoreReply"),
}

// Methods lists the unary RPCs of the Simulation service. Each takes
// <Name>Request and returns <Name>Reply.
var Methods = []string{
	"Init",
	"Halt",
	"Terminate",
	"Time",
	"Step",
	"StepUntil",
	"StepUnbounded",
	"ScheduleEvent",
	"CancelEvent",
	"ProcessEvent",
	"ProcessQuery",
	"ReadEvents",
	"AwaitEvent",
	"OpenSink",
	"CloseSink",
	"Save",
	"Restore",
}

func buildFileDescriptorProto() *descriptorpb.FileDescriptorProto {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    gproto.String(FileName),
		Package: gproto.String(Package),
		Syntax:  gproto.String("proto3"),
		Dependency: []string{
			"google/protobuf/duration.proto",
			"google/protobuf/empty.proto",
			"google/protobuf/timestamp.proto",
		},
		Options: &descriptorpb.FileOptions{
			GoPackage: gproto.String("github.com/nexosim/nexosim-go/internal/proto"),
		},
	}

	code := &descriptorpb.EnumDescriptorProto{Name: gproto.String("ErrorCode")}
	for _, c := range simerrors.Codes() {
		code.Value = append(code.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   gproto.String(c.String()),
			Number: gproto.Int32(int32(c)),
		})
	}
	fdp.EnumType = append(fdp.EnumType, code)

	for _, spec := range messages {
		fdp.MessageType = append(fdp.MessageType, buildMessage(spec))
	}

	svc := &descriptorpb.ServiceDescriptorProto{Name: gproto.String("Simulation")}
	for _, m := range Methods {
		svc.Method = append(svc.Method, &descriptorpb.MethodDescriptorProto{
			Name:       gproto.String(m),
			InputType:  gproto.String("." + Package + "." + m + "Request"),
			OutputType: gproto.String("." + Package + "." + m + "Reply"),
		})
	}
	fdp.Service = append(fdp.Service, svc)

	return fdp
}

func buildMessage(spec messageSpec) *descriptorpb.DescriptorProto {
	msg := &descriptorpb.DescriptorProto{Name: gproto.String(spec.name)}
	oneofs := map[string]int32{}

	for _, f := range spec.fields {
		label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
		if f.repeated {
			label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
		}
		field := &descriptorpb.FieldDescriptorProto{
			Name:     gproto.String(f.name),
			Number:   gproto.Int32(f.number),
			Label:    label.Enum(),
			Type:     f.typ.Enum(),
			JsonName: gproto.String(jsonName(f.name)),
		}
		if f.typeName != "" {
			field.TypeName = gproto.String(f.typeName)
		}
		if f.oneof != "" {
			idx, ok := oneofs[f.oneof]
			if !ok {
				idx = int32(len(msg.OneofDecl))
				oneofs[f.oneof] = idx
				msg.OneofDecl = append(msg.OneofDecl, &descriptorpb.OneofDescriptorProto{
					Name: gproto.String(f.oneof),
				})
			}
			field.OneofIndex = gproto.Int32(idx)
		}
		msg.Field = append(msg.Field, field)
	}
	return msg
}

func jsonName(name string) string {
	out := make([]byte, 0, len(name))
	upper := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}

var (
	fileOnce sync.Once
	file     protoreflect.FileDescriptor
	fileErr  error
)

// File returns the linked schema. The schema is static, so a failure to
// link it is a programming error and panics.
func File() protoreflect.FileDescriptor {
	fileOnce.Do(func() {
		file, fileErr = protodesc.NewFile(buildFileDescriptorProto(), protoregistry.GlobalFiles)
	})
	if fileErr != nil {
		panic(fmt.Sprintf("proto: invalid %s schema: %v", FileName, fileErr))
	}
	return file
}

// FileDescriptorProto returns a fresh copy of the schema in descriptor form,
// e.g. for serving it through gRPC reflection or dumping it with protoc.
func FileDescriptorProto() *descriptorpb.FileDescriptorProto {
	return protodesc.ToFileDescriptorProto(File())
}

// MessageDescriptor looks up a message of the schema by short name.
func MessageDescriptor(name string) protoreflect.MessageDescriptor {
	md := File().Messages().ByName(protoreflect.Name(name))
	if md == nil {
		panic(fmt.Sprintf("proto: unknown message %s.%s", Package, name))
	}
	return md
}

// MethodDescriptor looks up a method of the Simulation service.
func MethodDescriptor(name string) protoreflect.MethodDescriptor {
	md := File().Services().ByName("Simulation").Methods().ByName(protoreflect.Name(name))
	if md == nil {
		panic(fmt.Sprintf("proto: unknown method %s.%s", ServiceName, name))
	}
	return md
}

// FullMethod returns the gRPC path of a method, e.g.
// "/simulation.v1.Simulation/Init".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}
