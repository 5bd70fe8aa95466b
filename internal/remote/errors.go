package remote

import "fmt"

// FetchError reports a failed exchange with the commerce platform: transport
// failures, non-2xx statuses and success=false envelopes all end up here.
type FetchError struct {
	Op         string
	Collection string
	Page       int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("remote %s %s page %d: %v", e.Op, e.Collection, e.Page, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
