package extract

import "fmt"

// ExtractionError reports a dataset that could not be fetched and has no
// cached copy.
type ExtractionError struct {
	Dataset string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("unable to download dataset '%s' and no cache is available: %v", e.Dataset, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
