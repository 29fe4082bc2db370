package services

import "errors"

// Error taxonomy. Callers match with errors.Is; concrete failures wrap these.
var (
	ErrConfigInvalid = errors.New("configuration invalid")

	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrRemoteNotFound    = errors.New("remote document not found")
	ErrRemoteForbidden   = errors.New("remote document not writable by this credential")
	ErrRemoteMalformed   = errors.New("remote document malformed")

	ErrLocalIO = errors.New("local state file error")

	ErrInputValidation = errors.New("invalid input")
	ErrAuthRequired    = errors.New("authentication required")
)
