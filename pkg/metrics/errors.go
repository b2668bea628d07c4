package metrics

import "errors"

// ErrCollectorStopped is returned by RunSystemCollector when its context ends.
var ErrCollectorStopped = errors.New("metrics collector stopped")
