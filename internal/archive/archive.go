// Package archive persists declaration graphs as framed segments.
//
// Each Save writes one self-contained segment whose header block starts with
// the archive marker. A producer that saves once per input file and appends
// every segment to the same output ends up with a concatenation of segments
// rather than one archive; Load reads only the first segment, LoadAll reads
// them all and merges their declaration maps.
package archive

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"

	"kabimap/internal/graph"
)

// wireGraph is the serialized form of one store. Scratch state such as the
// order index is rebuilt on load.
type wireGraph struct {
	Root     graph.Link
	Decls    []wireDecl
	Segments []int // segment start orders of a compacted store
}

type wireDecl struct {
	Key      graph.Key
	Text     string
	Flags    graph.Flags
	Children []graph.Link
	Siblings []graph.Occurrence
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil)
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return encoder, decoder, codecErr
}

// Save writes the store as one segment.
func Save(w io.Writer, s *graph.Store) error {
	wg := wireGraph{Root: s.Root(), Segments: s.SegmentStarts()}
	for _, k := range s.Keys() {
		d, _ := s.Lookup(k)
		wg.Decls = append(wg.Decls, wireDecl{
			Key:      d.Key,
			Text:     d.Text,
			Flags:    d.Flags,
			Children: d.Children,
			Siblings: d.Siblings,
		})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&wg); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}

	enc, _, err := codecs()
	if err != nil {
		return fmt.Errorf("failed to init zstd: %w", err)
	}
	f := &frame{
		Version:  formatVersion,
		Encoding: encodingZstd,
		Body:     enc.EncodeAll(buf.Bytes(), nil),
	}
	if err := writeFrame(w, f); err != nil {
		return fmt.Errorf("failed to write segment: %w", err)
	}
	return nil
}

// Load reads the first segment of r.
func Load(r io.Reader) (*graph.Store, error) {
	f, err := readFrame(bufio.NewReader(r))
	if err == io.EOF {
		return nil, fmt.Errorf("segment 0: %w", ErrTruncated)
	}
	if err != nil {
		return nil, fmt.Errorf("segment 0: %w", err)
	}
	s, err := decodeFrame(f)
	if err != nil {
		return nil, fmt.Errorf("segment 0: %w", err)
	}
	return s, nil
}

// LoadAll reads every segment of r and merges them into one store.
func LoadAll(r io.Reader) (*graph.Store, error) {
	var combined *graph.Store
	err := Each(r, func(i int, s *graph.Store) error {
		if combined == nil {
			combined = s
			return nil
		}
		combined.Merge(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if combined == nil {
		return nil, fmt.Errorf("segment 0: %w", ErrTruncated)
	}
	return combined, nil
}

// Each decodes the segments of r one at a time and passes them to fn.
func Each(r io.Reader, fn func(i int, s *graph.Store) error) error {
	br := bufio.NewReader(r)
	for i := 0; ; i++ {
		f, err := readFrame(br)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		s, err := decodeFrame(f)
		if err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if err := fn(i, s); err != nil {
			return err
		}
	}
}

// Split copies every segment of r to its own writer, as returned by next.
// It returns the number of segments copied.
func Split(r io.Reader, next func(i int) (io.WriteCloser, error)) (int, error) {
	br := bufio.NewReader(r)
	for i := 0; ; i++ {
		f, err := readFrame(br)
		if err == io.EOF {
			return i, nil
		}
		if err != nil {
			return i, fmt.Errorf("segment %d: %w", i, err)
		}
		w, err := next(i)
		if err != nil {
			return i, err
		}
		if err := writeFrame(w, f); err != nil {
			w.Close()
			return i, fmt.Errorf("segment %d: %w", i, err)
		}
		if err := w.Close(); err != nil {
			return i, err
		}
	}
}

// Compact rewrites a concatenated stream as a single segment.
func Compact(r io.Reader, w io.Writer) (*graph.Store, error) {
	s, err := LoadAll(r)
	if err != nil {
		return nil, err
	}
	if err := Save(w, s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads every segment of the named file.
func LoadFile(path string) (*graph.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := LoadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// AppendFile appends the store to the named file as a new segment.
func AppendFile(path string, s *graph.Store) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := Save(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func decodeFrame(f *frame) (*graph.Store, error) {
	body := f.Body
	switch f.Encoding {
	case encodingZstd:
		_, dec, err := codecs()
		if err != nil {
			return nil, fmt.Errorf("failed to init zstd: %w", err)
		}
		body, err = dec.DecodeAll(f.Body, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress: %w", err)
		}
	case encodingNone:
	default:
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrBadHeader, f.Encoding)
	}

	var wg wireGraph
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&wg); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}

	s := graph.NewStore()
	for i := range wg.Decls {
		wd := wg.Decls[i]
		s.Add(&graph.Decl{
			Key:      wd.Key,
			Text:     wd.Text,
			Flags:    wd.Flags,
			Children: wd.Children,
			Siblings: wd.Siblings,
		})
	}
	if !wg.Root.IsNull() {
		s.SetRoot(wg.Root)
	}
	s.SetSegmentStarts(wg.Segments)
	return s, nil
}
