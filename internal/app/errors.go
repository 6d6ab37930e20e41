package app

import (
	"fmt"
	"net/http"
)

// Entities named in NOT_FOUND details.
const (
	entityPost           = "post"
	entityReply          = "reply"
	entityReplyNotInPost = "reply-not-in-post"
	entityUser           = "user"
	entityAdmin          = "admin"
	entityGuestbook      = "guestbook"
	entityGuestbookReply = "guestbook-reply"
	entityUpload         = "upload"
)

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

func errValidation(format string, args ...any) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf(format, args...), nil)
}

func errNotFound(entity string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", entity+" not found", map[string]any{"entity": entity})
}

func errForbidden(message string) *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", message, nil)
}
