// Package envelope maps request outcomes to fixed HTTP status codes and
// assembles the JSON body that goes with them.
//
// Success-like outcomes carry a "data" payload, error outcomes carry an
// "errors" sequence, and every body carries a "message" string. The
// package does no I/O; encoding the body is left to the caller.
package envelope

import "reflect"

const (
	KeyData    = "data"
	KeyErrors  = "errors"
	KeyMessage = "message"
)

// Body is a JSON-ready envelope.
type Body map[string]interface{}

// Response pairs a status code with its envelope.
type Response struct {
	Outcome Outcome
	Status  int
	Body    Body
}

// Builder assembles envelopes. The zero value nests payloads under "data".
// With FlattenPayload set, the fields of a mapping payload are merged into
// the top level of the body instead.
type Builder struct {
	FlattenPayload bool
}

var defaultBuilder Builder

// Build dispatches on the outcome's family. For success outcomes payload is
// the data, for error outcomes it is the errors sequence ([]interface{} or
// any other slice or array, copied in order; an error contributes its
// message and any other value becomes a one-element sequence), and for
// NoContent it is ignored.
func (b Builder) Build(o Outcome, payload interface{}, message string) Response {
	switch o.Family() {
	case FamilySuccess:
		return b.data(o, payload, message)
	case FamilyNoContent:
		return b.noContent(message)
	default:
		return b.errors(o, errorList(payload), message)
	}
}

func (b Builder) Success(data interface{}, message string) Response {
	return b.data(Success, data, message)
}

func (b Builder) Created(data interface{}, message string) Response {
	return b.data(Created, data, message)
}

func (b Builder) Accepted(data interface{}, message string) Response {
	return b.data(Accepted, data, message)
}

// NoContent never carries data or errors.
func (b Builder) NoContent(message string) Response {
	return b.noContent(message)
}

func (b Builder) BadRequest(errs []interface{}, message string) Response {
	return b.errors(BadRequest, errs, message)
}

func (b Builder) Unauthorized(errs []interface{}, message string) Response {
	return b.errors(Unauthorized, errs, message)
}

func (b Builder) Forbidden(errs []interface{}, message string) Response {
	return b.errors(Forbidden, errs, message)
}

func (b Builder) NotFound(errs []interface{}, message string) Response {
	return b.errors(NotFound, errs, message)
}

func (b Builder) MethodNotAllowed(errs []interface{}, message string) Response {
	return b.errors(MethodNotAllowed, errs, message)
}

func (b Builder) RequestTimeout(errs []interface{}, message string) Response {
	return b.errors(RequestTimeout, errs, message)
}

func (b Builder) Conflict(errs []interface{}, message string) Response {
	return b.errors(Conflict, errs, message)
}

func (b Builder) UnsupportedMediaType(errs []interface{}, message string) Response {
	return b.errors(UnsupportedMediaType, errs, message)
}

func (b Builder) InternalServerError(errs []interface{}, message string) Response {
	return b.errors(InternalServerError, errs, message)
}

func (b Builder) NotImplemented(errs []interface{}, message string) Response {
	return b.errors(NotImplemented, errs, message)
}

func (b Builder) data(o Outcome, data interface{}, message string) Response {
	if isNil(data) {
		data = map[string]interface{}{}
	}

	body := Body{KeyData: data}
	if b.FlattenPayload {
		if fields, ok := stringKeyed(data); ok {
			body = make(Body, len(fields)+1)
			for k, v := range fields {
				body[k] = v
			}
		}
	}
	body[KeyMessage] = message

	return Response{Outcome: o, Status: o.Status(), Body: body}
}

func (b Builder) noContent(message string) Response {
	return Response{
		Outcome: NoContent,
		Status:  NoContent.Status(),
		Body:    Body{KeyMessage: message},
	}
}

func (b Builder) errors(o Outcome, errs []interface{}, message string) Response {
	if errs == nil {
		errs = []interface{}{}
	}
	return Response{
		Outcome: o,
		Status:  o.Status(),
		Body:    Body{KeyErrors: errs, KeyMessage: message},
	}
}

// stringKeyed copies a map with string keys into a fresh map.
func stringKeyed(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Body:
		return m, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// isNil reports an untyped nil or a nil map, slice, pointer or interface.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Ptr, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// errorList keeps the order of any slice or array payload.
func errorList(payload interface{}) []interface{} {
	if isNil(payload) {
		return nil
	}

	switch errs := payload.(type) {
	case []interface{}:
		return errs
	case []string:
		return Messages(errs...)
	case error:
		return Messages(errs.Error())
	}

	rv := reflect.ValueOf(payload)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []interface{}{payload}
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// Messages turns plain strings into an errors sequence.
func Messages(msgs ...string) []interface{} {
	errs := make([]interface{}, len(msgs))
	for i, m := range msgs {
		errs[i] = m
	}
	return errs
}

// Build uses the zero Builder, which nests payloads under "data".
func Build(o Outcome, payload interface{}, message string) Response {
	return defaultBuilder.Build(o, payload, message)
}
