package historical

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"golang.org/x/exp/mmap"
)

var (
	ErrEof          = errors.New("EOF")
	ErrTruncated    = errors.New("tick file is not a whole number of records")
	binaryTickBytes = binary.Size(BinaryTick{})
)

// TickFile memory maps a file written by WriteBinary. It reuses one record
// buffer and is not safe for concurrent use.
type TickFile struct {
	path   string
	reader *mmap.ReaderAt
	count  int64
	buffer []byte
}

func OpenTickFile(path string) (*TickFile, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open tick file %q: %w", path, err)
	}

	size := int64(reader.Len())
	if size%int64(binaryTickBytes) != 0 {
		_ = reader.Close()
		return nil, fmt.Errorf("%q holds %d bytes: %w", path, size, ErrTruncated)
	}

	return &TickFile{
		path:   path,
		reader: reader,
		count:  size / int64(binaryTickBytes),
		buffer: make([]byte, binaryTickBytes),
	}, nil
}

func (f *TickFile) Close() {
	_ = f.reader.Close()
}

// Len is the number of records in the file.
func (f *TickFile) Len() int64 { return f.count }

func (f *TickFile) Read(index int64) (BinaryTick, error) {
	var tick BinaryTick
	if index < 0 || index >= f.count {
		return tick, ErrEof
	}

	if _, err := f.reader.ReadAt(f.buffer, index*int64(binaryTickBytes)); err != nil && !errors.Is(err, io.EOF) {
		return tick, fmt.Errorf("unable to read record %d of %q: %w", index, f.path, err)
	}
	if _, err := binary.Decode(f.buffer, binary.NativeEndian, &tick); err != nil {
		return tick, fmt.Errorf("unable to decode record %d of %q: %w", index, f.path, err)
	}
	return tick, nil
}

// Search returns the index of the first record stamped at or after ts, or Len
// when there is none. Records are expected in timestamp order.
func (f *TickFile) Search(ts int64) (int64, error) {
	var readErr error
	idx := sort.Search(int(f.count), func(i int) bool {
		if readErr != nil {
			return true
		}
		tick, err := f.Read(int64(i))
		if err != nil {
			readErr = err
			return true
		}
		return tick.TimeStamp >= ts
	})
	if readErr != nil {
		return 0, readErr
	}
	return int64(idx), nil
}
