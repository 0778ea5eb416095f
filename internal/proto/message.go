package proto

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
)

// Message is a schema message addressed by field name. Setters return the
// receiver so requests can be built in one expression. Naming a field that
// the message does not declare is a programming error and panics.
type Message struct {
	msg protoreflect.Message
}

// NewMessage allocates an empty message of the schema, e.g.
// NewMessage("StepRequest").
func NewMessage(name string) *Message {
	return &Message{msg: dynamicpb.NewMessage(MessageDescriptor(name))}
}

// NewRequest allocates the request message of a method.
func NewRequest(method string) *Message {
	return &Message{msg: dynamicpb.NewMessage(MethodDescriptor(method).Input())}
}

// NewReply allocates the reply message of a method.
func NewReply(method string) *Message {
	return &Message{msg: dynamicpb.NewMessage(MethodDescriptor(method).Output())}
}

// Proto returns the underlying message, suitable for gRPC encoding.
func (m *Message) Proto() protoreflect.ProtoMessage {
	return m.msg.Interface()
}

// Name returns the short message name.
func (m *Message) Name() string {
	return string(m.msg.Descriptor().Name())
}

func (m *Message) field(name string) protoreflect.FieldDescriptor {
	fd := m.msg.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Sprintf("proto: message %s has no field %q", m.msg.Descriptor().FullName(), name))
	}
	return fd
}

func (m *Message) SetString(name, v string) *Message {
	m.msg.Set(m.field(name), protoreflect.ValueOfString(v))
	return m
}

func (m *Message) SetBytes(name string, v []byte) *Message {
	if v == nil {
		v = []byte{}
	}
	m.msg.Set(m.field(name), protoreflect.ValueOfBytes(v))
	return m
}

func (m *Message) SetBool(name string, v bool) *Message {
	m.msg.Set(m.field(name), protoreflect.ValueOfBool(v))
	return m
}

func (m *Message) SetUint64(name string, v uint64) *Message {
	m.msg.Set(m.field(name), protoreflect.ValueOfUint64(v))
	return m
}

func (m *Message) SetInt64(name string, v int64) *Message {
	m.msg.Set(m.field(name), protoreflect.ValueOfInt64(v))
	return m
}

func (m *Message) SetInt32(name string, v int32) *Message {
	m.msg.Set(m.field(name), protoreflect.ValueOfInt32(v))
	return m
}

func (m *Message) SetEnum(name string, v int32) *Message {
	m.msg.Set(m.field(name), protoreflect.ValueOfEnum(protoreflect.EnumNumber(v)))
	return m
}

// Mutable returns the nested message of a field, allocating and marking it
// present if needed. Setting a oneof member clears its siblings.
func (m *Message) Mutable(name string) *Message {
	return &Message{msg: m.msg.Mutable(m.field(name)).Message()}
}

// SetEmpty marks a google.protobuf.Empty field as present.
func (m *Message) SetEmpty(name string) *Message {
	m.Mutable(name)
	return m
}

// SetTimestamp sets a google.protobuf.Timestamp field.
func (m *Message) SetTimestamp(name string, secs int64, nanos int32) *Message {
	m.Mutable(name).SetInt64("seconds", secs).SetInt32("nanos", nanos)
	return m
}

// SetDuration sets a google.protobuf.Duration field.
func (m *Message) SetDuration(name string, secs int64, nanos int32) *Message {
	m.Mutable(name).SetInt64("seconds", secs).SetInt32("nanos", nanos)
	return m
}

// AppendBytes appends to a repeated bytes field.
func (m *Message) AppendBytes(name string, values ...[]byte) *Message {
	list := m.msg.Mutable(m.field(name)).List()
	for _, v := range values {
		list.Append(protoreflect.ValueOfBytes(v))
	}
	return m
}

// SetError sets the "error" member of a reply's result.
func (m *Message) SetError(code simerrors.Code, message string) *Message {
	m.Mutable("error").SetEnum("code", int32(code)).SetString("message", message)
	return m
}

func (m *Message) Has(name string) bool {
	return m.msg.Has(m.field(name))
}

func (m *Message) String(name string) string {
	return m.msg.Get(m.field(name)).String()
}

func (m *Message) Bytes(name string) []byte {
	return m.msg.Get(m.field(name)).Bytes()
}

func (m *Message) Bool(name string) bool {
	return m.msg.Get(m.field(name)).Bool()
}

func (m *Message) Uint64(name string) uint64 {
	return m.msg.Get(m.field(name)).Uint()
}

func (m *Message) Int64(name string) int64 {
	return m.msg.Get(m.field(name)).Int()
}

func (m *Message) Enum(name string) int32 {
	return int32(m.msg.Get(m.field(name)).Enum())
}

// Get returns a nested message for reading. An absent field reads as an
// empty message.
func (m *Message) Get(name string) *Message {
	return &Message{msg: m.msg.Get(m.field(name)).Message()}
}

// Timestamp reads a google.protobuf.Timestamp field.
func (m *Message) Timestamp(name string) (secs int64, nanos int32) {
	ts := m.Get(name)
	return ts.Int64("seconds"), int32(ts.Int64("nanos"))
}

// Duration reads a google.protobuf.Duration field.
func (m *Message) Duration(name string) (secs int64, nanos int32) {
	d := m.Get(name)
	return d.Int64("seconds"), int32(d.Int64("nanos"))
}

// RepeatedBytes reads a repeated bytes field.
func (m *Message) RepeatedBytes(name string) [][]byte {
	list := m.msg.Get(m.field(name)).List()
	out := make([][]byte, list.Len())
	for i := range out {
		out[i] = list.Get(i).Bytes()
	}
	return out
}

// Which returns the name of the populated member of a oneof, or "" when
// none is set.
func (m *Message) Which(oneof string) string {
	od := m.msg.Descriptor().Oneofs().ByName(protoreflect.Name(oneof))
	if od == nil {
		panic(fmt.Sprintf("proto: message %s has no oneof %q", m.msg.Descriptor().FullName(), oneof))
	}
	fd := m.msg.WhichOneof(od)
	if fd == nil {
		return ""
	}
	return string(fd.Name())
}

// Err converts the "error" member of a reply's result into a
// *SimulationError for op. It returns nil when the reply holds no error.
func (m *Message) Err(op string) error {
	if m.Which("result") != "error" {
		return nil
	}
	e := m.Get("error")
	return simerrors.NewSimulationError(op, simerrors.Code(e.Enum("code")), e.String("message"))
}
