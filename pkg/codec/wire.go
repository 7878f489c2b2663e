package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/morezero/comms-transport/pkg/errmodel"
	"github.com/morezero/comms-transport/pkg/headers"
)

// Protobuf field numbers of the wire messages.
//
//	message MetaData      { string key = 1; string value = 2; }
//	message ErrorDetails  { string reason = 1; string domain = 2; repeated MetaData metadata = 3; }
//	message ErrorReply    { int32 code = 1; string message = 2; int32 status = 3; repeated ErrorDetails details = 4; }
//	message MetadataMap   { string key = 1; repeated string value = 2; }
const (
	fieldMetaKey   protowire.Number = 1
	fieldMetaValue protowire.Number = 2

	fieldDetailReason   protowire.Number = 1
	fieldDetailDomain   protowire.Number = 2
	fieldDetailMetadata protowire.Number = 3

	fieldReplyCode    protowire.Number = 1
	fieldReplyMessage protowire.Number = 2
	fieldReplyStatus  protowire.Number = 3
	fieldReplyDetails protowire.Number = 4

	fieldEntryKey   protowire.Number = 1
	fieldEntryValue protowire.Number = 2
)

// FieldFunc handles one field during Walk and returns the number of bytes it consumed from b.
// Returning -1 skips the field.
type FieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// Walk iterates over the fields of a protobuf message.
func Walk(b []byte, fn FieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return nil
}

// AppendStringField appends a non-empty string field.
func AppendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// AppendInt32Field appends a non-zero int32 field.
func AppendInt32Field(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

// AppendMessageField appends an embedded message field.
func AppendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// ConsumeString reads a string field value.
func ConsumeString(typ protowire.Type, b []byte) (string, int, error) {
	if typ != protowire.BytesType {
		return "", 0, fmt.Errorf("unexpected wire type %d for string", typ)
	}
	s, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", 0, protowire.ParseError(n)
	}
	return s, n, nil
}

// ConsumeBytes reads a length-delimited field value.
func ConsumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("unexpected wire type %d for bytes", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

// ConsumeInt32 reads a varint field value as int32.
func ConsumeInt32(typ protowire.Type, b []byte) (int32, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("unexpected wire type %d for int32", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return int32(v), n, nil
}

// MarshalErrorReply encodes an ErrorReply in its protobuf form.
func MarshalErrorReply(r *errmodel.ErrorReply) []byte {
	var b []byte
	b = AppendInt32Field(b, fieldReplyCode, r.Code)
	b = AppendStringField(b, fieldReplyMessage, r.Message)
	b = AppendInt32Field(b, fieldReplyStatus, r.Status)
	for _, d := range r.Details {
		b = AppendMessageField(b, fieldReplyDetails, marshalDetails(d))
	}
	return b
}

func marshalDetails(d errmodel.ErrorDetailsReply) []byte {
	var b []byte
	b = AppendStringField(b, fieldDetailReason, d.Reason)
	b = AppendStringField(b, fieldDetailDomain, d.Domain)
	for _, m := range d.Metadata {
		var mb []byte
		mb = AppendStringField(mb, fieldMetaKey, m.Key)
		mb = AppendStringField(mb, fieldMetaValue, m.Value)
		b = AppendMessageField(b, fieldDetailMetadata, mb)
	}
	return b
}

// UnmarshalErrorReply decodes the protobuf form of an ErrorReply.
func UnmarshalErrorReply(b []byte) (*errmodel.ErrorReply, error) {
	r := &errmodel.ErrorReply{}
	err := Walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldReplyCode:
			v, n, err := ConsumeInt32(typ, b)
			r.Code = v
			return n, err
		case fieldReplyMessage:
			s, n, err := ConsumeString(typ, b)
			r.Message = s
			return n, err
		case fieldReplyStatus:
			v, n, err := ConsumeInt32(typ, b)
			r.Status = v
			return n, err
		case fieldReplyDetails:
			raw, n, err := ConsumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			d, err := unmarshalDetails(raw)
			if err != nil {
				return 0, err
			}
			r.Details = append(r.Details, d)
			return n, nil
		}
		return -1, nil
	})
	if err != nil {
		return nil, decodeErr(err)
	}
	return r, nil
}

func unmarshalDetails(b []byte) (errmodel.ErrorDetailsReply, error) {
	var d errmodel.ErrorDetailsReply
	err := Walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldDetailReason:
			s, n, err := ConsumeString(typ, b)
			d.Reason = s
			return n, err
		case fieldDetailDomain:
			s, n, err := ConsumeString(typ, b)
			d.Domain = s
			return n, err
		case fieldDetailMetadata:
			raw, n, err := ConsumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			var m errmodel.MetaData
			err = Walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case fieldMetaKey:
					s, n, err := ConsumeString(typ, b)
					m.Key = s
					return n, err
				case fieldMetaValue:
					s, n, err := ConsumeString(typ, b)
					m.Value = s
					return n, err
				}
				return -1, nil
			})
			if err != nil {
				return 0, err
			}
			d.Metadata = append(d.Metadata, m)
			return n, nil
		}
		return -1, nil
	})
	return d, err
}

// MarshalMetadataEntry encodes one wire header entry.
func MarshalMetadataEntry(e headers.MetadataEntry) []byte {
	var b []byte
	b = AppendStringField(b, fieldEntryKey, e.Key)
	for _, v := range e.Value {
		// Empty values are kept: they are part of the value sequence.
		b = protowire.AppendTag(b, fieldEntryValue, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

// UnmarshalMetadataEntry decodes one wire header entry.
func UnmarshalMetadataEntry(b []byte) (headers.MetadataEntry, error) {
	var e headers.MetadataEntry
	err := Walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldEntryKey:
			s, n, err := ConsumeString(typ, b)
			e.Key = s
			return n, err
		case fieldEntryValue:
			s, n, err := ConsumeString(typ, b)
			e.Value = append(e.Value, s)
			return n, err
		}
		return -1, nil
	})
	if err != nil {
		return e, decodeErr(err)
	}
	if e.Key == "" {
		return e, decodeErr(errors.New("metadata entry without key"))
	}
	return e, nil
}
