package core

import "fmt"

// UpstreamError reports a non-success status from the embedding or completion
// endpoint. The raw response body is kept as the failure detail. Upstream
// failures are not retried at this layer.
type UpstreamError struct {
	Op     string // "embedding" or "completion"
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s endpoint returned status %d: %s", e.Op, e.Status, e.Body)
}
