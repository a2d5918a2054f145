// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress reports per-item advancement of batch operations such
// as adding or downloading many files.
package progress

import (
	"fmt"
	"io"
)

// Sink receives progress events. Implementations must tolerate Advance
// being called more times than the announced total; sources sometimes
// discover work as they go.
type Sink interface {
	// Start announces a new operation with an expected item count.
	// A total of 0 means the count is unknown.
	Start(label string, total int)

	// Advance reports that one item finished.
	Advance(item string)

	// Done marks the operation finished.
	Done()
}

// Nop is a Sink that discards all events.
type Nop struct{}

func (Nop) Start(string, int) {}
func (Nop) Advance(string)    {}
func (Nop) Done()             {}

// Writer is a Sink that prints one line per item to an io.Writer.
type Writer struct {
	w     io.Writer
	label string
	total int
	count int
}

// NewWriter returns a Sink printing progress lines to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (p *Writer) Start(label string, total int) {
	p.label = label
	p.total = total
	p.count = 0
	if total > 0 {
		fmt.Fprintf(p.w, "%s: %d item(s)\n", label, total)
	} else {
		fmt.Fprintf(p.w, "%s\n", label)
	}
}

func (p *Writer) Advance(item string) {
	p.count++
	if p.total > 0 {
		fmt.Fprintf(p.w, "  [%d/%d] %s\n", p.count, p.total, item)
	} else {
		fmt.Fprintf(p.w, "  [%d] %s\n", p.count, item)
	}
}

func (p *Writer) Done() {
	fmt.Fprintf(p.w, "%s: done (%d item(s))\n", p.label, p.count)
}
