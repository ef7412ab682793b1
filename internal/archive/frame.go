package archive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	markerHeader   = "Kabi-Archive"
	lengthHeader   = "Content-Length"
	encodingHeader = "Content-Encoding"

	formatVersion = 1
	encodingZstd  = "zstd"
	encodingNone  = "identity"
)

var (
	ErrBadMarker = errors.New("segment does not start with archive marker")
	ErrBadHeader = errors.New("malformed segment header")
	ErrTruncated = errors.New("truncated segment")
)

// frame is one self-contained segment: a header block naming the payload
// size and encoding, then the payload.
type frame struct {
	Version  int
	Encoding string
	Body     []byte
}

// readFrame reads the next segment. It returns io.EOF only when the stream
// ends cleanly between segments.
func readFrame(r *bufio.Reader) (*frame, error) {
	// 1. Marker line
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return nil, io.EOF
		}
		if err == io.EOF {
			return nil, ErrTruncated
		}
		return nil, err
	}
	name, value, ok := splitHeader(line)
	if !ok || name != markerHeader {
		return nil, ErrBadMarker
	}
	version, err := strconv.Atoi(value)
	if err != nil || version < 1 || version > formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrBadHeader, value)
	}

	// 2. Remaining headers
	f := &frame{Version: version, Encoding: encodingNone}
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil, ErrTruncated
			}
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			// End of headers
			break
		}

		name, value, ok := splitHeader(line)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBadHeader, line)
		}
		switch name {
		case lengthHeader:
			contentLength, err = strconv.Atoi(value)
			if err != nil || contentLength < 0 {
				return nil, fmt.Errorf("%w: invalid Content-Length %q", ErrBadHeader, value)
			}
		case encodingHeader:
			f.Encoding = value
		}
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("%w: missing Content-Length", ErrBadHeader)
	}

	// 3. Body; the buffer grows with the data actually present, not the header
	var body bytes.Buffer
	if _, err := io.CopyN(&body, r, int64(contentLength)); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	f.Body = body.Bytes()

	return f, nil
}

// writeFrame writes one segment.
func writeFrame(w io.Writer, f *frame) error {
	header := fmt.Sprintf("%s: %d\r\n%s: %d\r\n%s: %s\r\n\r\n",
		markerHeader, f.Version,
		lengthHeader, len(f.Body),
		encodingHeader, f.Encoding)
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := w.Write(f.Body); err != nil {
		return err
	}
	return nil
}

func splitHeader(line string) (string, string, bool) {
	parts := strings.SplitN(strings.TrimSpace(line), ": ", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
