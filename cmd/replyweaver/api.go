package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/drblury/replyweaver/codec"
	"github.com/drblury/replyweaver/responder"
	"github.com/drblury/replyweaver/timing"
)

var errUnknownFormat = errors.New("unknown format")

// newAPI returns the demo endpoints:
//
//	POST /v1/encode?format=csv   echoes the JSON body in the chosen format
//	GET  /v1/status/{code}       answers with the given status
//	POST /v1/validate            checks a {"name","email"} document
func newAPI(res *responder.Responder) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/encode", func(w http.ResponseWriter, req *http.Request) {
		var body any
		if !res.ReadRequestBody(w, req, &body) {
			return
		}
		format := req.URL.Query().Get("format")
		if format == "" || format == "envelope" {
			res.RespondWithData(w, req, http.StatusOK, body)
			return
		}
		enc, ok := codec.ByName(format)
		if !ok {
			res.HandleBadRequestError(w, req, fmt.Errorf("%w %q", errUnknownFormat, format))
			return
		}
		res.RespondWithEncoder(w, req, http.StatusOK, body, enc)
	})

	mux.HandleFunc("GET /v1/status/{code}", func(w http.ResponseWriter, req *http.Request) {
		code, err := strconv.Atoi(req.PathValue("code"))
		if err != nil || code < 200 || code > 599 {
			res.HandleBadRequestError(w, req, fmt.Errorf("invalid status code %q", req.PathValue("code")))
			return
		}
		out := res.NewResponse(req, code)
		out.RecordServerTiming(timing.NewMetric("handler").WithDescription("status"))
		if msg := req.URL.Query().Get("message"); msg != "" {
			out.SetMessage(msg)
		}
		res.Respond(w, req, out)
	})

	mux.HandleFunc("POST /v1/validate", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if !res.ReadRequestBody(w, req, &body) {
			return
		}
		v := responder.NewValidation()
		if body.Name == "" {
			v.RecordFail("name", "required")
		}
		if body.Email == "" {
			v.RecordFail("email", "required")
		}
		res.RespondWithValidation(w, req, v)
	})

	return mux
}
