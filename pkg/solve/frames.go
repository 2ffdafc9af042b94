package solve

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// Frame is one event+data block from a solve response stream.
type Frame struct {
	Event string
	Data  json.RawMessage
}

const readChunkSize = 4096

// FrameParser incrementally decodes a stream of SSE-style frames:
// an "event: <name>" line followed by a "data: <json>" line, blocks
// separated by a blank line. Chunk boundaries may fall anywhere, so
// text after the last complete delimiter is carried over to the next
// read; emitted frames are never re-parsed. A frame whose data line is
// not valid JSON is dropped, the stream keeps going.
//
// The frame sequence is finite, ordered and non-restartable: Next
// returns io.EOF exactly when the underlying stream closes.
type FrameParser struct {
	r       io.Reader
	carry   []byte
	pending []Frame
	readBuf []byte
	eof     bool
}

func NewFrameParser(r io.Reader) *FrameParser {
	return &FrameParser{
		r:       r,
		readBuf: make([]byte, readChunkSize),
	}
}

// Next returns the next complete frame. It returns io.EOF when the
// stream is exhausted, or the underlying read error (including
// context cancellation surfaced by the transport).
func (p *FrameParser) Next() (Frame, error) {
	for {
		if len(p.pending) > 0 {
			frame := p.pending[0]
			p.pending = p.pending[1:]
			return frame, nil
		}

		if p.eof {
			return Frame{}, io.EOF
		}

		n, err := p.r.Read(p.readBuf)
		if n > 0 {
			p.carry = append(p.carry, p.readBuf[:n]...)
			p.splitCarry()
		}
		if err == io.EOF {
			p.eof = true
			// A well-formed trailing block without its final blank
			// line still counts.
			p.flushCarry()
			continue
		}
		if err != nil {
			return Frame{}, err
		}
	}
}

// splitCarry extracts every complete block from the carry buffer,
// leaving any trailing partial block in place.
func (p *FrameParser) splitCarry() {
	for {
		idx := bytes.Index(p.carry, []byte("\n\n"))
		if idx < 0 {
			return
		}
		block := p.carry[:idx]
		p.carry = p.carry[idx+2:]

		if frame, ok := parseBlock(block); ok {
			p.pending = append(p.pending, frame)
		}
	}
}

// flushCarry parses whatever remains once the stream has closed.
func (p *FrameParser) flushCarry() {
	if len(bytes.TrimSpace(p.carry)) == 0 {
		p.carry = nil
		return
	}
	if frame, ok := parseBlock(p.carry); ok {
		p.pending = append(p.pending, frame)
	}
	p.carry = nil
}

// parseBlock parses one event+data block. Malformed blocks, including
// invalid JSON in the data line, are dropped: transport-level
// corruption must not abort an otherwise-healthy run.
func parseBlock(block []byte) (Frame, bool) {
	var event, data string

	for _, line := range strings.Split(string(block), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if event == "" || data == "" {
		return Frame{}, false
	}
	if !json.Valid([]byte(data)) {
		return Frame{}, false
	}

	return Frame{Event: event, Data: json.RawMessage(data)}, true
}
