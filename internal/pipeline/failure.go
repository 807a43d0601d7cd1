package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Every kind is terminal for the
// run; nothing is retried.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindDownload      Kind = "download"
	KindProve         Kind = "prove"
	KindPublish       Kind = "publish"
)

// Failure is the tagged error the pipeline short-circuits on.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func failf(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
