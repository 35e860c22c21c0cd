package logging

import "bytes"

// TailWriter is an io.Writer that keeps only the last limit bytes written.
// Subprocess wrappers use it to bound the stderr kept for diagnostics.
type TailWriter struct {
	buf   bytes.Buffer
	limit int
}

func NewTailWriter(limit int) *TailWriter {
	return &TailWriter{limit: limit}
}

func (tw *TailWriter) Write(p []byte) (int, error) {
	n := len(p)
	tw.buf.Write(p)
	if tw.buf.Len() > tw.limit {
		b := tw.buf.Bytes()
		rest := b[len(b)-tw.limit:]
		trimmed := make([]byte, tw.limit)
		copy(trimmed, rest)
		tw.buf.Reset()
		tw.buf.Write(trimmed)
	}
	return n, nil
}

func (tw *TailWriter) String() string {
	return tw.buf.String()
}

// Tail truncates s to its last maxLen bytes, marking the cut.
func Tail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}
