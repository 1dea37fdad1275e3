// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/sink"
)

var _ sink.Sink = &writerSink{}

// writerSink dumps every operation to an io.Writer, one block per record.
type writerSink struct {
	writer io.Writer

	lock sync.Mutex
}

// NewSink returns a sink.Sink writing human-readable output to w.
func NewSink(w io.Writer) sink.Sink {
	return &writerSink{
		writer: w,
	}
}

// Add implements sink.Sink.
func (s *writerSink) Add(_ context.Context, rec record.Record) error {
	builder := new(strings.Builder)

	builder.WriteString("Add record:\n")
	builder.WriteString("\tID: " + rec.ID + "\n")
	builder.WriteString("\tType: " + string(rec.Type) + "\n")
	builder.WriteString("\tPayload:\n\t\t")

	encoder := json.NewEncoder(builder)
	encoder.SetIndent("\t\t", "\t")
	_ = encoder.Encode(rec.Payload)
	builder.WriteString("\n")

	s.lock.Lock()
	defer s.lock.Unlock()
	fmt.Fprint(s.writer, builder.String())
	return nil
}

// Remove implements sink.Sink.
func (s *writerSink) Remove(_ context.Context, rec record.Record) error {
	builder := new(strings.Builder)
	builder.WriteString("Remove record:\n")
	builder.WriteString("\tID: " + rec.ID + "\n")
	builder.WriteString("\tType: " + string(rec.Type) + "\n")
	builder.WriteString("\n")

	s.lock.Lock()
	defer s.lock.Unlock()
	fmt.Fprint(s.writer, builder.String())
	return nil
}
