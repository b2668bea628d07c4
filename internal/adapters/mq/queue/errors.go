package queue

import "errors"

// ErrRejected is reported for a job the queue refused (full or closed).
var ErrRejected = errors.New("write queue is full or closed")
