package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// Proto encodes generated protobuf messages.
type Proto[T proto.Message] struct{}

func (Proto[T]) Name() string        { return NameProto }
func (Proto[T]) ContentType() string { return "application/x-protobuf" }

func (Proto[T]) Encode(v T) ([]byte, error) {
	b, err := proto.Marshal(v)
	if err != nil {
		return nil, encodeErr(err)
	}
	return b, nil
}

func (Proto[T]) Decode(data []byte) (T, error) {
	var zero T
	msg, ok := zero.ProtoReflect().New().Interface().(T)
	if !ok {
		return zero, decodeErr(errors.New("cannot instantiate message"))
	}
	if err := proto.Unmarshal(data, msg); err != nil {
		return zero, decodeErr(err)
	}
	return msg, nil
}
