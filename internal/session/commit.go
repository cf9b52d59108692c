package session

import "context"

// Committer inserts finished text at the cursor.
type Committer interface {
	Commit(context.Context, string) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(context.Context, string) error

func (f CommitFunc) Commit(ctx context.Context, text string) error {
	return f(ctx, text)
}

// InsertError reports a failed text insertion.
type InsertError struct {
	Err error
}

func (e *InsertError) Error() string { return "Failed to insert text" }

func (e *InsertError) Unwrap() error { return e.Err }
