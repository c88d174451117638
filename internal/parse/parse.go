// Package parse turns raw feed payloads into reports. Each format gets
// its own Parser; the Dispatcher tries them in priority order and the
// first one that recognizes the payload wins.
package parse

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/quakewatch/quakewatch/internal/quake"
)

// ErrRejected marks a payload the parser does not recognize, as opposed
// to one it recognizes but cannot convert. Dispatchers move on to the
// next parser when they see it.
var ErrRejected = errors.New("payload not recognized")

// Rejection builds an ErrRejected with context, checkable via errors.Is.
func Rejection(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrRejected)...)
}

// Parser converts one raw payload into zero or more reports.
type Parser interface {
	Type() string
	Priority() int
	Parse(data []byte) ([]quake.Report, error)
}

// Dispatcher fans a payload across its parsers, highest priority first.
type Dispatcher struct {
	parsers []Parser
}

func NewDispatcher(parsers ...Parser) *Dispatcher {
	sorted := append([]Parser(nil), parsers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})
	return &Dispatcher{parsers: sorted}
}

// Parse returns the first parser's output that accepts the payload,
// along with that parser's type. A payload no parser recognizes comes
// back as ErrRejected.
func (d *Dispatcher) Parse(data []byte) ([]quake.Report, string, error) {
	for _, parser := range d.parsers {
		reports, err := parser.Parse(data)
		if errors.Is(err, ErrRejected) {
			continue
		}
		if err != nil {
			return nil, parser.Type(), err
		}
		if parser.Type() != "Social" {
			slog.Info("payload identified",
				"format", parser.Type(), "reports", len(reports))
		}
		return reports, parser.Type(), nil
	}
	return nil, "", fmt.Errorf("no parser accepted payload: %w", ErrRejected)
}
