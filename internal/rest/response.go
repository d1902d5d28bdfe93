package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// Response is a successful call. Value holds the decoded JSON document, or the
// body as a string when the server answered with a non-JSON content type.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	Value       any
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return decodeError(err)
	}
	return nil
}

// Object returns Value as a JSON object, or nil.
func (r *Response) Object() map[string]any {
	m, _ := r.Value.(map[string]any)
	return m
}

// IsJSON reports whether Value was decoded from JSON.
func (r *Response) IsJSON() bool {
	return isJSONType(r.ContentType)
}

func (r *Response) Text() string {
	return string(r.Body)
}

func mediaType(header string) string {
	if header == "" {
		return "application/json"
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		mt = strings.TrimSpace(strings.Split(header, ";")[0])
	}
	return strings.ToLower(mt)
}

func isJSONType(mt string) bool {
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func decodeError(err error) *Error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var offset int64
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	return newError(KindDecode, fmt.Sprintf("JSON Decode Error from position %d", offset))
}

// interpret maps a completed HTTP exchange to a Response or an *Error.
func interpret(status int, header http.Header, body []byte) (*Response, error) {
	switch {
	case status == http.StatusUnauthorized:
		return nil, &Error{Kind: KindAuth, Msg: MsgAuthRequired, Status: status}
	case status == http.StatusNotFound:
		return nil, &Error{Kind: KindNotFound, Msg: MsgNotFound, Status: status}
	case status == http.StatusUnprocessableEntity:
		return nil, &Error{Kind: KindUnprocessable, Msg: MsgUnprocessable, Status: status}
	case status == http.StatusInternalServerError:
		msg := MsgServerError
		if detail := serverDetail(body); detail != "" {
			msg += " - " + detail
		}
		return nil, &Error{Kind: KindServerError, Msg: msg, Status: status}
	case status < 200 || status > 299:
		return nil, &Error{
			Kind:   KindStatus,
			Msg:    fmt.Sprintf("Status code: %d, Reason: %s", status, http.StatusText(status)),
			Status: status,
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &Error{Kind: KindEmpty, Msg: MsgEmpty, Status: status}
	}

	mt := mediaType(header.Get("Content-Type"))
	resp := &Response{Status: status, ContentType: mt, Body: body}
	if !isJSONType(mt) {
		resp.Value = string(body)
		return resp, nil
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, decodeError(err)
	}
	if msg, ok := domainMessage(value); ok {
		return nil, &Error{Kind: KindDomain, Msg: msg, Status: status}
	}
	resp.Value = value
	return resp, nil
}

// domainMessage extracts error.msg from a decoded document.
func domainMessage(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	e, ok := obj["error"].(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := e["msg"].(string)
	return msg, ok
}

// serverDetail picks a human readable message out of a 500 body.
func serverDetail(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return strings.TrimSpace(string(body))
	}
	if msg, ok := domainMessage(v); ok {
		return msg
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return strings.TrimSpace(string(body))
	}
	exception, _ := obj["exception"].(string)
	message, _ := obj["message"].(string)
	switch {
	case exception != "" && message != "":
		return exception + " - " + message
	case message != "":
		return message
	case exception != "":
		return exception
	}
	return strings.TrimSpace(string(body))
}

// As decodes a call's response into T, passing call errors through.
func As[T any](resp *Response, err error) (T, error) {
	var v T
	if err != nil {
		return v, err
	}
	if err := resp.Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}
