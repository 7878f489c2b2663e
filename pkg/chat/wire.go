package chat

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/morezero/comms-transport/pkg/codec"
)

// Protobuf forms of the chat payloads.
//
//	message CreateChatGroup { string title = 1; string about = 2; }
//	message GetChatGroup    { string id = 1; }
//	message ChatGroup       { string id = 1; string title = 2; string about = 3; string owner_id = 4; int64 created_unix_ms = 5; }

const protoContentType = "application/x-protobuf"

// CreateProto is the protobuf payload codec of CreateChatGroup.
var CreateProto = codec.Funcs[CreateChatGroup]{
	CodecName: codec.NameProto,
	Type:      protoContentType,
	EncodeFn: func(v CreateChatGroup) ([]byte, error) {
		b := codec.AppendStringField(nil, 1, v.Title)
		return codec.AppendStringField(b, 2, v.About), nil
	},
	DecodeFn: func(b []byte) (CreateChatGroup, error) {
		var v CreateChatGroup
		err := codec.Walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch num {
			case 1:
				s, n, err := codec.ConsumeString(typ, b)
				v.Title = s
				return n, err
			case 2:
				s, n, err := codec.ConsumeString(typ, b)
				v.About = s
				return n, err
			}
			return -1, nil
		})
		return v, err
	},
}

// GetProto is the protobuf payload codec of GetChatGroup.
var GetProto = codec.Funcs[GetChatGroup]{
	CodecName: codec.NameProto,
	Type:      protoContentType,
	EncodeFn: func(v GetChatGroup) ([]byte, error) {
		return codec.AppendStringField(nil, 1, v.ID), nil
	},
	DecodeFn: func(b []byte) (GetChatGroup, error) {
		var v GetChatGroup
		err := codec.Walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num == 1 {
				s, n, err := codec.ConsumeString(typ, b)
				v.ID = s
				return n, err
			}
			return -1, nil
		})
		return v, err
	},
}

// GroupProto is the protobuf payload codec of ChatGroup.
var GroupProto = codec.Funcs[ChatGroup]{
	CodecName: codec.NameProto,
	Type:      protoContentType,
	EncodeFn: func(v ChatGroup) ([]byte, error) {
		b := codec.AppendStringField(nil, 1, v.ID)
		b = codec.AppendStringField(b, 2, v.Title)
		b = codec.AppendStringField(b, 3, v.About)
		b = codec.AppendStringField(b, 4, v.OwnerID)
		if !v.Created.IsZero() {
			b = protowire.AppendTag(b, 5, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(v.Created.UnixMilli()))
		}
		return b, nil
	},
	DecodeFn: func(b []byte) (ChatGroup, error) {
		var v ChatGroup
		err := codec.Walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			var n int
			var err error
			switch num {
			case 1:
				v.ID, n, err = codec.ConsumeString(typ, b)
			case 2:
				v.Title, n, err = codec.ConsumeString(typ, b)
			case 3:
				v.About, n, err = codec.ConsumeString(typ, b)
			case 4:
				v.OwnerID, n, err = codec.ConsumeString(typ, b)
			case 5:
				if typ != protowire.VarintType {
					return -1, nil
				}
				ms, m := protowire.ConsumeVarint(b)
				if m < 0 {
					return 0, protowire.ParseError(m)
				}
				v.Created = time.UnixMilli(int64(ms)).UTC()
				n = m
			default:
				return -1, nil
			}
			return n, err
		})
		return v, err
	},
}
