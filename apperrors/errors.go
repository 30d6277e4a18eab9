// Package apperrors provides structured errors with machine-readable codes.
package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping and retry policy.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindPermission
	KindConflict
	KindExpired
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Group errors
	CodeGroupNameEmpty    Code = "GROUP_NAME_EMPTY"
	CodeGroupNameTooLong  Code = "GROUP_NAME_TOO_LONG"
	CodeGroupDescTooLong  Code = "GROUP_DESCRIPTION_TOO_LONG"
	CodeGroupInvalidType  Code = "GROUP_INVALID_TYPE"
	CodeGroupNotFound     Code = "GROUP_NOT_FOUND"
	CodeGroupLastMember   Code = "GROUP_LAST_MEMBER"
	CodeGroupVersionStale Code = "GROUP_VERSION_STALE"

	// Membership errors
	CodeMemberNotFound      Code = "MEMBER_NOT_FOUND"
	CodeMemberAlreadyExists Code = "MEMBER_ALREADY_EXISTS"
	CodeMemberInvalidRole   Code = "MEMBER_INVALID_ROLE"
	CodeOwnerRoleImmutable  Code = "OWNER_ROLE_IMMUTABLE"

	// Permission errors
	CodeNotAuthorized Code = "NOT_AUTHORIZED"
	CodeActionDenied  Code = "ACTION_DENIED"

	// User errors
	CodeUserNotFound Code = "USER_NOT_FOUND"

	// Friendship errors
	CodeFriendSelfRequest    Code = "FRIEND_SELF_REQUEST"
	CodeFriendAlreadyFriends Code = "FRIEND_ALREADY_FRIENDS"
	CodeFriendRequestPending Code = "FRIEND_REQUEST_PENDING"
	CodeFriendUserBlocked    Code = "FRIEND_USER_BLOCKED"
	CodeFriendshipNotFound   Code = "FRIENDSHIP_NOT_FOUND"
	CodeFriendNotPending     Code = "FRIEND_REQUEST_NOT_PENDING"
	CodeFriendNotFriends     Code = "FRIEND_NOT_FRIENDS"

	// Invitation errors
	CodeInvitationNotFound      Code = "INVITATION_NOT_FOUND"
	CodeInvitationInvalid       Code = "INVITATION_INVALID"
	CodeInvitationExpired       Code = "INVITATION_EXPIRED"
	CodeInvitationTargetMissing Code = "INVITATION_TARGET_MISSING"
	CodeInvitationCodeMissing   Code = "INVITATION_CODE_MISSING"
	CodeInvitationMsgTooLong    Code = "INVITATION_MESSAGE_TOO_LONG"
)

// Error carries a kind, a machine-readable code and a human message.
type Error struct {
	Kind    Kind   `json:"-"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// New creates a structured error.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code Code, message string) *Error {
	return New(KindValidation, code, message)
}

func NotFound(code Code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Permission(code Code, message string) *Error {
	return New(KindPermission, code, message)
}

func Conflict(code Code, message string) *Error {
	return New(KindConflict, code, message)
}

func Expired(code Code, message string) *Error {
	return New(KindExpired, code, message)
}

// KindOf extracts the kind from any error chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsPermission(err error) bool { return KindOf(err) == KindPermission }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsExpired(err error) bool    { return KindOf(err) == KindExpired }

// HTTPStatus maps an error to the status code its kind represents.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
