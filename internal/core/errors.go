package core

import "errors"

// ErrDuplicateClient signals a registry add with an id that is already
// present. The id generation scheme should make this unreachable; it is
// surfaced via metrics and aborts the add, never the process.
var ErrDuplicateClient = errors.New("client id already registered")
