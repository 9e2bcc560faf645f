package executor

import (
	"bytes"
	"fmt"
	"io"
)

// prefixWriter relays child-process output line by line, tagging each line
// with the job it belongs to so interleaved sweep output stays readable.
type prefixWriter struct {
	w       io.Writer
	prefix  string
	pending []byte
}

func newPrefixWriter(w io.Writer, prefix string) *prefixWriter {
	return &prefixWriter{w: w, prefix: prefix}
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	p.pending = append(p.pending, b...)
	for {
		i := bytes.IndexByte(p.pending, '\n')
		if i < 0 {
			break
		}
		if _, err := fmt.Fprintf(p.w, "%s%s", p.prefix, p.pending[:i+1]); err != nil {
			return len(b), err
		}
		p.pending = p.pending[i+1:]
	}
	return len(b), nil
}

// Flush writes any trailing output that did not end in a newline.
func (p *prefixWriter) Flush() error {
	if len(p.pending) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(p.w, "%s%s\n", p.prefix, p.pending)
	p.pending = nil
	return err
}
