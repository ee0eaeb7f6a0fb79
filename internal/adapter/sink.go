package adapter

import (
	"context"
	"errors"
	"fmt"

	m "qlty.dev/pkg/qlty/internal/model"
)

// ErrSinkSkipped is returned by a sink that deliberately did not publish.
var ErrSinkSkipped = errors.New("sink skipped")

// Sink publishes a finalized run to one external destination.
// Implementations must not mutate records.
type Sink interface {
	Kind() m.SinkKind
	Publish(ctx context.Context, summary m.RunSummary, records []m.TestRecord) error
}

// Project describes the application under test.
type Project struct {
	Name        string
	Release     string
	Environment string
}

// BuildLabel is the human identifier of a run shown by every sink,
// e.g. "[1a2b3c] Shop | 24.1".
func BuildLabel(run m.TestRun, project Project) string {
	short := run.ID
	if len(short) > 6 {
		short = short[:6]
	}

	return fmt.Sprintf("[%s] %s | %s", short, project.Name, project.Release)
}

func skipped(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSinkSkipped, fmt.Sprintf(format, args...))
}
