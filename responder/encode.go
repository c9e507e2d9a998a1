package responder

import (
	"github.com/google/uuid"

	"github.com/drblury/replyweaver/codec"
	"github.com/drblury/replyweaver/jsonutil"
)

// envelopeMargin is the capacity reserved for the envelope fields around a
// raw payload.
const envelopeMargin = 128

// envelope is the JSON shape of a response: an RFC 9457 problem document on
// failure, a success flag with message and data otherwise.
type envelope struct {
	Type      string  `json:"type,omitempty"`
	Title     string  `json:"title,omitempty"`
	Status    int     `json:"status"`
	Error     string  `json:"error,omitempty"`
	Detail    *string `json:"detail,omitempty"`
	Instance  string  `json:"instance,omitempty"`
	Success   bool    `json:"success"`
	Message   *string `json:"message,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
	Data      any     `json:"data,omitempty"`
}

func (r *Response[S]) envelope() envelope {
	env := envelope{
		Type:     r.typeURI,
		Title:    r.title,
		Status:   r.status,
		Error:    r.errorCode,
		Instance: r.instance,
		Success:  r.success,
	}
	if r.hasNote {
		note := r.note
		if r.success {
			env.Message = &note
		} else {
			env.Detail = &note
		}
	}
	if r.requestID != uuid.Nil {
		env.RequestID = r.requestID.String()
	}
	switch p := r.payload.(type) {
	case rawPayload:
		env.Data = p
	case structuredPayload:
		env.Data = p.value
	}
	return env
}

// MarshalJSON renders the response envelope.
func (r *Response[S]) MarshalJSON() ([]byte, error) {
	return jsonutil.Marshal(r.envelope())
}

// ReadBytes produces the body. An installed encoder wins; JSON media types
// get the whole envelope; other media types encode the payload alone, with
// strings written verbatim. Codec failures are returned, not absorbed.
func (r *Response[S]) ReadBytes() ([]byte, error) {
	if !r.encoder.IsZero() {
		value, err := r.payloadValue()
		if err != nil {
			return nil, err
		}
		return r.encoder.Encode(value)
	}

	contentType := r.ContentType()
	if codec.IsJSON(contentType) {
		capacity := envelopeMargin
		if raw, ok := r.payload.(rawPayload); ok {
			capacity += len(raw)
		}
		return codec.AppendJSON(make([]byte, 0, capacity), r.envelope())
	}

	switch p := r.payload.(type) {
	case rawPayload:
		var value any
		if err := jsonutil.Unmarshal(p, &value); err != nil {
			return nil, err
		}
		return encodePayload(make([]byte, 0, len(p)), contentType, value, p)
	case structuredPayload:
		return encodePayload(nil, contentType, p.value, nil)
	default:
		return []byte{}, nil
	}
}

func encodePayload(dst []byte, contentType string, value any, raw []byte) ([]byte, error) {
	switch {
	case codec.IsCSV(contentType):
		return codec.AppendCSV(dst, value)
	case codec.IsJSONLines(contentType):
		return codec.AppendJSONLines(dst, value)
	case codec.IsMsgPack(contentType):
		return codec.AppendMsgPack(dst, value)
	case codec.IsBSON(contentType):
		return codec.AppendBSON(dst, value)
	}
	if s, ok := value.(string); ok {
		return append(dst, s...), nil
	}
	if raw != nil {
		return append(dst, raw...), nil
	}
	return codec.AppendJSON(dst, value)
}

// payloadValue returns the value handed to an installed encoder: the
// structured payload, or the decoded raw payload.
func (r *Response[S]) payloadValue() (any, error) {
	switch p := r.payload.(type) {
	case structuredPayload:
		return p.value, nil
	case rawPayload:
		var value any
		if err := jsonutil.Unmarshal(p, &value); err != nil {
			return nil, err
		}
		return value, nil
	default:
		return nil, nil
	}
}
