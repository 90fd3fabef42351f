package app

import "fmt"

// DomainError is a user-facing failure with a fixed HTTP status and
// code. Validation failures put their field map in Details; optional
// capabilities (search, export, media, email) use it for the
// *_UNAVAILABLE codes when unconfigured.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
