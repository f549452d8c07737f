package memory

import "errors"

var errEmptyKey = errors.New("key is required")
