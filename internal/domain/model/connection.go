package model

import "errors"

// ConnectionDescriptor identifies the downstream target a request wants to
// reach, optionally carrying per-request override credentials extracted from
// the request. A nil Credential means "use whatever the resolver finds".
type ConnectionDescriptor struct {
	TargetID   string
	Credential *Credential
}

// ErrAccessDenied marks a connection failure caused by the target rejecting
// the presented credentials or requiring credentials that were not presented.
var ErrAccessDenied = errors.New("target access denied")

// ConnectionError reports a failure at the connection layer while reaching a
// remote target. Cause distinguishes security failures (ErrAccessDenied) from
// plain unreachability.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return "target connection failed: " + e.Cause.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}
