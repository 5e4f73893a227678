package bridge

import "errors"

// ErrNoCredential is returned when no eligible account exists. No upstream
// call is made.
var ErrNoCredential = errors.New("service unavailable: no eligible upstream credential")

// ErrInvalidRequest marks a client request the bridge refuses to forward.
var ErrInvalidRequest = errors.New("invalid request")
