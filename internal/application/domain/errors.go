package domain

import "errors"

type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindNotFound
	KindForbidden
	KindConflict
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindBadRequest:
		return "bad_request"
	}
	return "unknown"
}

// Error is an expected lifecycle outcome. Errors with the same Code match
// under errors.Is regardless of Message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// KindOf returns the kind of a lifecycle error, or KindUnknown for anything
// else (store failures included).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Code: "unauthenticated", Message: "Authentication required"}

	ErrNotFound            = &Error{Kind: KindNotFound, Code: "application_not_found", Message: "Application not found"}
	ErrOpportunityNotFound = &Error{Kind: KindNotFound, Code: "opportunity_not_found", Message: "Opportunity not found"}

	ErrForbidden       = &Error{Kind: KindForbidden, Code: "forbidden", Message: "You cannot access these applications"}
	ErrForbiddenUpdate = &Error{Kind: KindForbidden, Code: "forbidden", Message: "You cannot update this application"}
	ErrForbiddenSubmit = &Error{Kind: KindForbidden, Code: "forbidden", Message: "You cannot submit this application"}
	ErrForbiddenReview = &Error{Kind: KindForbidden, Code: "forbidden", Message: "You cannot review this application"}

	ErrConflict = &Error{Kind: KindConflict, Code: "application_exists", Message: "Application already exists"}

	ErrNotDraft           = &Error{Kind: KindBadRequest, Code: "not_draft", Message: "Only draft applications can be updated or submitted"}
	ErrNotDraftUpdate     = &Error{Kind: KindBadRequest, Code: "not_draft", Message: "Only draft applications can be updated"}
	ErrNotDraftSubmit     = &Error{Kind: KindBadRequest, Code: "not_draft", Message: "Only draft applications can be submitted"}
	ErrInvalidStage       = &Error{Kind: KindBadRequest, Code: "invalid_stage", Message: "Invalid review stage"}
	ErrNotSubmitted       = &Error{Kind: KindBadRequest, Code: "not_submitted", Message: "Draft applications cannot be reviewed"}
	ErrClosed             = &Error{Kind: KindBadRequest, Code: "application_closed", Message: "Closed applications cannot be reviewed"}
	ErrInvalidID          = &Error{Kind: KindBadRequest, Code: "invalid_id", Message: "Invalid application id"}
	ErrInvalidOpportunity = &Error{Kind: KindBadRequest, Code: "invalid_opportunity", Message: "Invalid opportunity id"}
	ErrFieldTooLong       = &Error{Kind: KindBadRequest, Code: "field_too_long", Message: "Field is too long"}
)

// FieldTooLong reports which field exceeded its configured maximum.
func FieldTooLong(field string) error {
	return &Error{
		Kind:    KindBadRequest,
		Code:    ErrFieldTooLong.Code,
		Message: field + " is too long",
		Field:   field,
	}
}
