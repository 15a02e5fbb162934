package renderable

import "sync/atomic"

// IDSource hands out process-unique, monotonically increasing identifiers.
// The counter starts at zero when the source is created and is never reset.
type IDSource struct {
	next atomic.Uint64
}

// DefaultIDs is the source used by renderables that are not given one explicitly.
// It is created once at process start.
var DefaultIDs = NewIDSource()

// NewIDSource creates an independent identifier source. The first ID it returns is 1.
//
// Returns:
//   - *IDSource: the new source
func NewIDSource() *IDSource {
	return &IDSource{}
}

// Next returns the next identifier. Safe for concurrent use.
//
// Returns:
//   - uint64: an identifier greater than every one returned before
func (s *IDSource) Next() uint64 {
	return s.next.Add(1)
}
