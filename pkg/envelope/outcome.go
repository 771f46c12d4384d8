package envelope

import "net/http"

// Outcome is the semantic result of handling a request.
type Outcome int

const (
	Success Outcome = iota
	Created
	Accepted
	NoContent
	BadRequest
	Unauthorized
	Forbidden
	NotFound
	MethodNotAllowed
	RequestTimeout
	Conflict
	UnsupportedMediaType
	InternalServerError
	NotImplemented
)

type Family string

const (
	FamilySuccess   Family = "success"
	FamilyNoContent Family = "no_content"
	FamilyError     Family = "error"
)

type outcomeInfo struct {
	status  int
	name    string
	family  Family
	message string
}

var outcomes = [...]outcomeInfo{
	Success:              {http.StatusOK, "success", FamilySuccess, "The request was successfully processed."},
	Created:              {http.StatusCreated, "created", FamilySuccess, "The resource was successfully created."},
	Accepted:             {http.StatusAccepted, "accepted", FamilySuccess, "The request is accepted but the result is not available yet."},
	NoContent:            {http.StatusNoContent, "no_content", FamilyNoContent, "Successfully processed the request and is not returning any content."},
	BadRequest:           {http.StatusBadRequest, "bad_request", FamilyError, "Cannot process the request."},
	Unauthorized:         {http.StatusUnauthorized, "unauthorized", FamilyError, "The request could not be authenticated."},
	Forbidden:            {http.StatusForbidden, "forbidden", FamilyError, "The request was authenticated but is not authorised to access the resource."},
	NotFound:             {http.StatusNotFound, "not_found", FamilyError, "The resource was not found."},
	MethodNotAllowed:     {http.StatusMethodNotAllowed, "method_not_allowed", FamilyError, "Method not allowed on resource."},
	RequestTimeout:       {http.StatusRequestTimeout, "request_timeout", FamilyError, "The request timed out before a response was received."},
	Conflict:             {http.StatusConflict, "conflict", FamilyError, "The request conflicts with a resource that already exists."},
	UnsupportedMediaType: {http.StatusUnsupportedMediaType, "unsupported_media_type", FamilyError, "The content type of the request is not supported."},
	InternalServerError:  {http.StatusInternalServerError, "internal_server_error", FamilyError, "An internal server error."},
	NotImplemented:       {http.StatusNotImplemented, "not_implemented", FamilyError, "The request method is not supported by the server and cannot be handled for any resource."},
}

// Outcomes lists every outcome in declaration order.
func Outcomes() []Outcome {
	all := make([]Outcome, len(outcomes))
	for i := range outcomes {
		all[i] = Outcome(i)
	}
	return all
}

func (o Outcome) valid() bool {
	return o >= 0 && int(o) < len(outcomes)
}

// Status returns the fixed HTTP status code for o.
// Unknown outcomes report 500.
func (o Outcome) Status() int {
	if !o.valid() {
		return http.StatusInternalServerError
	}
	return outcomes[o].status
}

func (o Outcome) String() string {
	if !o.valid() {
		return "unknown"
	}
	return outcomes[o].name
}

func (o Outcome) Family() Family {
	if !o.valid() {
		return FamilyError
	}
	return outcomes[o].family
}

// DefaultMessage is a human description of the outcome. The builder never
// applies it on its own; callers opt in by passing it as the message.
func (o Outcome) DefaultMessage() string {
	if !o.valid() {
		return ""
	}
	return outcomes[o].message
}

// OutcomeForStatus maps a status code back to its outcome.
func OutcomeForStatus(status int) (Outcome, bool) {
	for i, info := range outcomes {
		if info.status == status {
			return Outcome(i), true
		}
	}
	return 0, false
}
