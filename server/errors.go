package server

import "errors"

// ErrModelUnavailable is reported to a client when the model stream cannot
// be opened.
var ErrModelUnavailable = errors.New("failed to connect to speech service")
