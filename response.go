package rsp

import "strconv"

// response.go implements ResponseWriter (§4.4): a buffered encoder that
// accumulates one reply body, tracks its running checksum, optionally
// applies run-length encoding, and flushes it as `$body#cc` followed by the
// ack/nak handshake (unless no-ack mode is active).

// forbiddenRLEByte reports whether b may never appear as the repeated byte
// or the count byte of an `X*N` run, per §4.4(a)/(b).
func forbiddenRLEByte(b byte) bool {
	switch b {
	case '#', '$', '+', '-', '*':
		return true
	default:
		return false
	}
}

// DefaultMaxNakRetries bounds ResponseWriter.Flush's resend loop on a
// literal '-' before declaring a fatal framing error (see SPEC_FULL.md
// §4.13). Every ResponseWriter uses this bound; Flush would treat a negative
// bound as unlimited, but ResponseWriter has no setter to change it.
const DefaultMaxNakRetries = 1

// ResponseWriter accumulates one reply body and flushes it to a ByteConn.
type ResponseWriter struct {
	conn   ByteConn
	scratch []byte
	rle     bool

	noAck         bool
	multiprocess  bool
	maxNakRetries int

	lastFramed []byte // most recently flushed wire bytes, for nak retry
}

// NewResponseWriter constructs a ResponseWriter with a scratch buffer sized
// like the packet buffer.
func NewResponseWriter(conn ByteConn, bufSize int) *ResponseWriter {
	return &ResponseWriter{
		conn:          conn,
		scratch:       make([]byte, 0, bufSize),
		maxNakRetries: DefaultMaxNakRetries,
	}
}

// SetNoAck toggles whether Flush awaits a +/- handshake.
func (w *ResponseWriter) SetNoAck(v bool) { w.noAck = v }

// SetMultiprocess toggles thread-ID encoding between "<tid>" and "p<pid>.<tid>".
func (w *ResponseWriter) SetMultiprocess(v bool) { w.multiprocess = v }

// EnableRLE turns on run-length encoding for subsequent flushes. Off by
// default; decoding support is unconditional regardless of this setting.
func (w *ResponseWriter) EnableRLE(v bool) { w.rle = v }

// Reset clears the scratch buffer for a new reply.
func (w *ResponseWriter) Reset() { w.scratch = w.scratch[:0] }

// WriteByte appends a single raw byte to the reply body.
func (w *ResponseWriter) WriteByte(b byte) { w.scratch = append(w.scratch, b) }

// WriteString appends raw ASCII bytes (e.g. wire literals like "OK").
func (w *ResponseWriter) WriteString(s string) { w.scratch = append(w.scratch, s...) }

// WriteNum appends v as a hex (default) or decimal integer literal. Hex
// output uses the minimal number of digits needed (no leading zeros, "0"
// for v == 0), matching the variable-width numeric fields GDB itself emits
// for addresses, lengths, and counts.
func (w *ResponseWriter) WriteNum(v uint64, base int) {
	if base == 10 {
		w.scratch = strconv.AppendUint(w.scratch, v, 10)
		return
	}

	w.scratch = strconv.AppendUint(w.scratch, v, 16)
}

// WriteHexByte appends v as exactly two lowercase hex digits, zero-padded.
// Stop-reply fields such as the signal in `S<AA>`/`T<AA>` and the exit code
// in `W<AA>` are fixed-width single-byte values with no delimiter after
// them, so they must always be exactly two digits wide.
func (w *ResponseWriter) WriteHexByte(v uint8) {
	w.scratch = append(w.scratch, hexDigitsLower[v>>4], hexDigitsLower[v&0x0f])
}

// WriteHexBuf appends data as a hex-encoded byte buffer.
func (w *ResponseWriter) WriteHexBuf(data []byte) {
	w.scratch = append(w.scratch, encodeHexString(data)...)
}

// WriteBinary appends data with the `}`-escape applied to `#`, `$`, `}`, `*`.
func (w *ResponseWriter) WriteBinary(data []byte) {
	for _, b := range data {
		switch b {
		case '#', '$', '}', '*':
			w.scratch = append(w.scratch, '}', b^0x20)
		default:
			w.scratch = append(w.scratch, b)
		}
	}
}

// WriteThreadID appends tid encoded per the negotiated multiprocess mode.
func (w *ResponseWriter) WriteThreadID(tid ThreadID) {
	w.scratch = append(w.scratch, tid.Encode(w.multiprocess)...)
}

// body returns the current reply body, optionally run-length encoded.
func (w *ResponseWriter) body() []byte {
	if !w.rle {
		return w.scratch
	}

	return rleEncode(w.scratch)
}

// rleEncode collapses runs of a repeated byte into `b*N` (N = count+29-1),
// skipping any run whose repeated byte or count byte would be one of
// `# $ + - *`.
func rleEncode(in []byte) []byte {
	out := make([]byte, 0, len(in))

	i := 0
	for i < len(in) {
		b := in[i]

		runLen := 1
		for i+runLen < len(in) && in[i+runLen] == b && runLen < 97 {
			runLen++
		}

		// RLE is only worthwhile (and only legal) for runs of at least
		// 3 extra repeats; the count byte N = extra+29 must avoid the
		// forbidden set.
		extra := runLen - 1
		n := byte(extra + 29)

		if extra >= 3 && !forbiddenRLEByte(b) && !forbiddenRLEByte(n) {
			out = append(out, b, '*', n)
			i += runLen
		} else {
			out = append(out, b)
			i++
		}
	}

	return out
}

// Flush emits `$body#cc`, then awaits `+`/`-` unless no-ack mode is active.
// On `-`, the exact same framed bytes are resent up to maxNakRetries times
// before returning a fatal framing error.
func (w *ResponseWriter) Flush(readAck func() (byte, error)) error {
	body := w.body()

	sum := byte(0)
	for _, b := range body {
		sum += b
	}

	framed := make([]byte, 0, len(body)+4)
	framed = append(framed, '$')
	framed = append(framed, body...)
	framed = append(framed, '#')
	framed = append(framed, hexDigitsLower[sum>>4], hexDigitsLower[sum&0x0f])

	w.lastFramed = framed

	attempts := 0

	for {
		if err := w.conn.WriteAll(framed); err != nil {
			return &ConnError{Kind: ConnWrite, Err: err}
		}

		if err := w.conn.Flush(); err != nil {
			return &ConnError{Kind: ConnWrite, Err: err}
		}

		if w.noAck {
			return nil
		}

		ack, err := readAck()
		if err != nil {
			return &ConnError{Kind: ConnRead, Err: err}
		}

		if ack == '+' {
			return nil
		}

		attempts++

		if w.maxNakRetries >= 0 && attempts > w.maxNakRetries {
			return &ParseError{Reason: "exceeded negative-ack retry budget"}
		}
	}
}
