package responder

import (
	"fmt"
	"net/http"
)

// ResponseCode describes a status outcome. Empty strings mean the field is
// absent from the rendered response.
type ResponseCode interface {
	IsSuccess() bool
	StatusCode() int
	Title() string
	TypeURI() string
	ErrorCode() string
	Message() string
}

// Code is the constraint a status representation must satisfy to
// parametrise Response. The factory methods are called on the zero value and
// must not depend on the receiver.
type Code[S any] interface {
	ResponseCode
	OK() S
	BadRequest() S
	InternalServerError() S
}

func wellKnown[S Code[S]]() S {
	var s S
	return s
}

// StatusCode adapts plain HTTP status codes to ResponseCode. Codes below 400
// are successful. Failures carry the status text as title and a
// statusDocBaseURL link as problem type.
type StatusCode int

func (c StatusCode) IsSuccess() bool { return c >= 100 && c < 400 }

func (c StatusCode) StatusCode() int { return int(c) }

func (c StatusCode) Title() string {
	if c.IsSuccess() {
		return ""
	}
	return http.StatusText(int(c))
}

func (c StatusCode) TypeURI() string {
	if c.IsSuccess() {
		return ""
	}
	return fmt.Sprintf("%s/%d", statusDocBaseURL, int(c))
}

func (c StatusCode) ErrorCode() string { return "" }

func (c StatusCode) Message() string { return http.StatusText(int(c)) }

func (StatusCode) OK() StatusCode { return http.StatusOK }

func (StatusCode) BadRequest() StatusCode { return http.StatusBadRequest }

func (StatusCode) InternalServerError() StatusCode { return http.StatusInternalServerError }
