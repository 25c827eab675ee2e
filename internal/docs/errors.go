// File: internal/docs/errors.go
package docs

import "fmt"

// DocumentationLoadError reports a missing or empty documentation artifact
// that was explicitly requested. It is fatal and aborts the run before the
// first turn.
type DocumentationLoadError struct {
	Path string
	Err  error
}

func (e *DocumentationLoadError) Error() string {
	return fmt.Sprintf("documentation load failed for %q: %v", e.Path, e.Err)
}

func (e *DocumentationLoadError) Unwrap() error { return e.Err }

// GraphUnavailableError reports that the process-knowledge graph cannot be
// reached or queried. Graph mode has no fallback: degrading to an
// undocumented run would silently change the experimental condition, so this
// is always fatal.
type GraphUnavailableError struct {
	URI string
	Err error
}

func (e *GraphUnavailableError) Error() string {
	return fmt.Sprintf("process graph unavailable at %q: %v", e.URI, e.Err)
}

func (e *GraphUnavailableError) Unwrap() error { return e.Err }
