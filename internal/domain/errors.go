package domain

import "errors"

var (
	ErrWSDisconnect      = errors.New("websocket disconnected")
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	ErrCommandTransport  = errors.New("command transport failure")
	ErrCommandRejected   = errors.New("command rejected")
	ErrNotConfirmed      = errors.New("operator did not confirm")
	ErrNotFound          = errors.New("not found")
)
