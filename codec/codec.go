// Package codec turns structured response payloads into wire bytes. Every
// supported format is a variant of Encoder, so the set of body encodings a
// response can carry stays closed and switchable; callers needing anything
// else wrap a TransformFunc with Custom.
package codec

import (
	"errors"
	"fmt"
)

// ErrUnsupportedShape is returned when a payload cannot be represented in
// the requested format, such as a scalar encoded as CSV.
var ErrUnsupportedShape = errors.New("payload shape not supported by codec")

// TransformFunc converts a structured value into a response body.
type TransformFunc func(v any) ([]byte, error)

// Kind identifies an Encoder variant.
type Kind uint8

const (
	KindNone Kind = iota
	KindJSON
	KindJSONLines
	KindMsgPack
	KindCSV
	KindForm
	KindBSON
	KindCustom
)

var kindNames = [...]string{
	KindNone:      "none",
	KindJSON:      "json",
	KindJSONLines: "jsonlines",
	KindMsgPack:   "msgpack",
	KindCSV:       "csv",
	KindForm:      "form",
	KindBSON:      "bson",
	KindCustom:    "custom",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Encoder is a body encoding strategy. The zero value encodes nothing and
// reports IsZero.
type Encoder struct {
	kind Kind
	fn   TransformFunc
}

// Built-in encoders.
var (
	JSON      = Encoder{kind: KindJSON}
	JSONLines = Encoder{kind: KindJSONLines}
	MsgPack   = Encoder{kind: KindMsgPack}
	CSV       = Encoder{kind: KindCSV}
	Form      = Encoder{kind: KindForm}
	BSON      = Encoder{kind: KindBSON}
)

// Custom wraps a caller supplied transform.
func Custom(fn TransformFunc) Encoder {
	return Encoder{kind: KindCustom, fn: fn}
}

// ByName resolves a built-in encoder from its Kind name.
func ByName(name string) (Encoder, bool) {
	for _, enc := range []Encoder{JSON, JSONLines, MsgPack, CSV, Form, BSON} {
		if enc.kind.String() == name {
			return enc, true
		}
	}
	return Encoder{}, false
}

// Kind returns the encoder variant.
func (e Encoder) Kind() Kind { return e.kind }

// IsZero reports whether no encoder is configured.
func (e Encoder) IsZero() bool { return e.kind == KindNone }

// ContentType returns the media type matching the encoder, or an empty string
// for custom and zero encoders.
func (e Encoder) ContentType() string {
	switch e.kind {
	case KindJSON:
		return ContentTypeJSON
	case KindJSONLines:
		return ContentTypeJSONLines
	case KindMsgPack:
		return ContentTypeMsgPack
	case KindCSV:
		return ContentTypeCSV
	case KindForm:
		return ContentTypeForm
	case KindBSON:
		return ContentTypeBSON
	default:
		return ""
	}
}

// Encode runs the encoder against v.
func (e Encoder) Encode(v any) ([]byte, error) {
	return e.Append(nil, v)
}

// Append encodes v and appends the result to dst.
func (e Encoder) Append(dst []byte, v any) ([]byte, error) {
	switch e.kind {
	case KindJSON:
		return AppendJSON(dst, v)
	case KindJSONLines:
		return AppendJSONLines(dst, v)
	case KindMsgPack:
		return AppendMsgPack(dst, v)
	case KindCSV:
		return AppendCSV(dst, v)
	case KindForm:
		return AppendForm(dst, v)
	case KindBSON:
		return AppendBSON(dst, v)
	case KindCustom:
		if e.fn == nil {
			return nil, errors.New("custom encoder has no transform")
		}
		out, err := e.fn(v)
		if err != nil {
			return nil, err
		}
		return append(dst, out...), nil
	case KindNone:
		return dst, nil
	default:
		return nil, fmt.Errorf("unknown encoder %s", e.kind)
	}
}
