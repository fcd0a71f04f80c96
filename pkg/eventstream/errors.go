package eventstream

import "errors"

// ErrNilEvent indicates a nil sample event payload was provided to a publisher.
var ErrNilEvent = errors.New("nil sample event")
