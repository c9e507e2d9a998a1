package responder

// Validation collects per-field failures of a request. The zero value is
// ready to use and successful.
type Validation struct {
	failed map[string]string
}

// NewValidation returns an empty, successful Validation.
func NewValidation() *Validation {
	return &Validation{}
}

// RecordFail marks key as invalid with the given message. A later failure
// for the same key replaces the earlier one.
func (v *Validation) RecordFail(key, message string) {
	if v.failed == nil {
		v.failed = make(map[string]string)
	}
	v.failed[key] = message
}

// RecordError marks key as invalid with the text of err.
func (v *Validation) RecordError(key string, err error) {
	if err != nil {
		v.RecordFail(key, err.Error())
	}
}

// IsSuccess reports whether no field failed.
func (v *Validation) IsSuccess() bool {
	return v == nil || len(v.failed) == 0
}

// Map returns the failed fields and their messages.
func (v *Validation) Map() map[string]string {
	out := make(map[string]string)
	if v == nil {
		return out
	}
	for key, msg := range v.failed {
		out[key] = msg
	}
	return out
}

// FromValidation builds an OK response for a successful validation and a bad
// request carrying the field failures as data otherwise.
func FromValidation[S Code[S]](v *Validation) *Response[S] {
	codes := wellKnown[S]()
	if v.IsSuccess() {
		return New(codes.OK())
	}
	r := New(codes.BadRequest())
	r.SetValidationData(v)
	return r
}
