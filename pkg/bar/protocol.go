package bar

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Sink receives status lines. Implementations are not safe for concurrent
// use; the Emitter owns its sink.
type Sink interface {
	// Begin is called once before the first Emit.
	Begin() error
	// Emit writes one status line and flushes it.
	Emit(blocks []Block) error
}

// Preamble is the fixed i3bar protocol header: the version object, the
// opening of the infinite array and an empty first status line.
const Preamble = "{\"version\": 1}\n[\n[]\n"

// I3bar writes the i3bar JSON protocol.
type I3bar struct {
	w   *bufio.Writer
	buf bytes.Buffer
	enc *json.Encoder
}

// NewI3bar returns an i3bar sink writing to w.
func NewI3bar(w io.Writer) *I3bar {
	s := &I3bar{w: bufio.NewWriter(w)}
	s.enc = json.NewEncoder(&s.buf)
	s.enc.SetEscapeHTML(false)
	return s
}

// Begin writes the preamble.
func (s *I3bar) Begin() error {
	if _, err := s.w.WriteString(Preamble); err != nil {
		return fmt.Errorf("write preamble: %w", err)
	}
	return s.flush()
}

// Emit writes ",[...]" followed by a newline.
func (s *I3bar) Emit(blocks []Block) error {
	line, err := s.Encode(blocks)
	if err != nil {
		return err
	}
	s.w.WriteByte(',')
	s.w.Write(line)
	s.w.WriteByte('\n')
	return s.flush()
}

// Encode returns the JSON array for blocks without a trailing newline.
// The returned slice is only valid until the next call.
func (s *I3bar) Encode(blocks []Block) ([]byte, error) {
	s.buf.Reset()
	if blocks == nil {
		blocks = []Block{}
	}
	if err := s.enc.Encode(blocks); err != nil {
		return nil, fmt.Errorf("encode blocks: %w", err)
	}
	return bytes.TrimRight(s.buf.Bytes(), "\n"), nil
}

func (s *I3bar) flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
