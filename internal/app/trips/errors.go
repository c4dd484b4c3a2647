package trips

import "net/http"

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// NotFoundError is returned for missing trips and for trips owned by someone else.
func NotFoundError() *Error {
	return &Error{Status: http.StatusNotFound, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
}

func ValidationError(message string, details map[string]any) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: "VALIDATION_ERROR", Message: message, Details: details}
}
