// Package json reads newline-delimited JSON (NDJSON): one JSON object per
// line, e.g.
//
//	{"song_id":"SOAAA","title":"..."}
//	{"song_id":"SOAAB","title":"..."}
//
// Blank lines are skipped. Any other line that is not a JSON object is a
// *SyntaxError carrying the 1-based line number. ObjectDecoder reads objects
// that span lines. Decoding into typed values is left to the caller.
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxLineBytes bounds a single NDJSON line.
const MaxLineBytes = 16 << 20

// Line is one non-blank input line.
type Line struct {
	// Number is the 1-based physical line number in the input.
	Number int
	// Raw is the JSON object on that line. It is only valid until the next
	// call to Next unless copied.
	Raw json.RawMessage
}

// SyntaxError reports a line that is not a single JSON object.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("json parser: line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

var errNotObject = errors.New("not a JSON object")

// Decoder reads NDJSON lines from an io.Reader.
type Decoder struct {
	sc   *bufio.Scanner
	line int
}

// NewDecoder constructs a Decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	return &Decoder{sc: sc}
}

// Next returns the next non-blank line. io.EOF is returned when the input is
// exhausted; read errors are returned as-is.
func (d *Decoder) Next() (Line, error) {
	for d.sc.Scan() {
		d.line++
		b := bytes.TrimSpace(d.sc.Bytes())
		if len(b) == 0 {
			continue
		}
		if b[0] != '{' {
			return Line{}, &SyntaxError{Line: d.line, Err: errNotObject}
		}
		if !json.Valid(b) {
			// Re-decode to get encoding/json's description of the problem.
			var v map[string]any
			err := json.Unmarshal(b, &v)
			if err == nil {
				err = errNotObject
			}
			return Line{}, &SyntaxError{Line: d.line, Err: err}
		}
		return Line{Number: d.line, Raw: b}, nil
	}
	if err := d.sc.Err(); err != nil {
		return Line{}, fmt.Errorf("json parser: read after line %d: %w", d.line, err)
	}
	return Line{}, io.EOF
}

// ObjectDecoder reads a stream of JSON objects that may span several lines,
// such as a pretty-printed catalog file or several concatenated objects. It
// yields the same Line values as Decoder; Number is the line on which the
// object starts, and a malformed object is reported at that line too.
type ObjectDecoder struct {
	r    io.Reader
	data []byte
	dec  *json.Decoder
}

// NewObjectDecoder constructs an ObjectDecoder over r. The input is read in
// full on the first call to Next.
func NewObjectDecoder(r io.Reader) *ObjectDecoder {
	return &ObjectDecoder{r: r}
}

// Next returns the next object, or io.EOF once only whitespace remains.
func (d *ObjectDecoder) Next() (Line, error) {
	if d.dec == nil {
		data, err := io.ReadAll(io.LimitReader(d.r, MaxLineBytes+1))
		if err != nil {
			return Line{}, fmt.Errorf("json parser: read: %w", err)
		}
		if len(data) > MaxLineBytes {
			return Line{}, fmt.Errorf("json parser: input exceeds %d bytes", MaxLineBytes)
		}
		d.data = data
		d.dec = json.NewDecoder(bytes.NewReader(data))
	}

	start := int(d.dec.InputOffset())
	for start < len(d.data) && isSpace(d.data[start]) {
		start++
	}
	if start == len(d.data) {
		return Line{}, io.EOF
	}
	line := 1 + bytes.Count(d.data[:start], []byte{'\n'})
	if d.data[start] != '{' {
		return Line{}, &SyntaxError{Line: line, Err: errNotObject}
	}

	var raw json.RawMessage
	if err := d.dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Line{}, &SyntaxError{Line: line, Err: err}
	}
	return Line{Number: line, Raw: raw}, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
