package queue

import "errors"

// ErrItemNotFound is returned when a case is not in the review queue.
var ErrItemNotFound = errors.New("queue item not found")
