package export

import "context"

// Record is one read-only title/author pair handed to the pipeline.
type Record struct {
	Title  string
	Author string
}

// Source supplies every record to export, newest first.
type Source interface {
	FetchAll(ctx context.Context) ([]Record, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) ([]Record, error)

// FetchAll calls f.
func (f SourceFunc) FetchAll(ctx context.Context) ([]Record, error) {
	return f(ctx)
}
