package docstore

import (
	"errors"
	"fmt"
)

// Result is the envelope every public operation returns. On success Resp
// carries the operation payload; a successful call that legitimately has no
// payload (no matching documents, empty batch) sets Text instead. On failure
// Status is false and Text describes what went wrong. Resp and Text never
// both carry payload for the same outcome.
type Result struct {
	Status bool   `json:"status"`
	Resp   any    `json:"resp,omitempty"`
	Text   string `json:"text,omitempty"`
}

func OK(resp any) Result {
	return Result{Status: true, Resp: resp}
}

// OKText reports success with an informational message and no payload,
// e.g. a query that matched nothing.
func OKText(text string) Result {
	return Result{Status: true, Text: text}
}

func Fail(text string) Result {
	return Result{Status: false, Text: text}
}

func Failf(format string, args ...any) Result {
	return Result{Status: false, Text: fmt.Sprintf(format, args...)}
}

func FailErr(err error) Result {
	return Result{Status: false, Text: err.Error()}
}

// Err returns nil for successful results, and an error built from Text
// otherwise.
func (r Result) Err() error {
	if r.Status {
		return nil
	}

	return errors.New(r.Text)
}
