package domain

import "errors"

var (
	ErrAuthentication  = errors.New("authentication failed")
	ErrSessionExpired  = errors.New("session expired")
	ErrNetwork         = errors.New("network error")
	ErrValidation      = errors.New("validation error")
	ErrLoginInProgress = errors.New("login already in progress")
	ErrLoginSuperseded = errors.New("login superseded by logout")
	ErrEmptyPatch      = errors.New("empty patch")
)
