package sequence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// State file layout, little-endian int32 throughout, no header:
//
//	cursor, length, then length records of {steps, speedIndex, distanceMm}
const (
	headerSize = 8
	recordSize = 12
)

// FileState persists snapshots in a binary file.
type FileState struct {
	path string
}

// NewFileState returns a persister for path. The file is created on first save.
func NewFileState(path string) *FileState {
	return &FileState{path: path}
}

// Path returns the state file location.
func (f *FileState) Path() string { return f.path }

// Read decodes the state file. A missing file yields an fs.ErrNotExist error.
func (f *FileState) Read(maxPoints int) (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Snapshot{}, err
	}
	return Decode(data, maxPoints)
}

// Write replaces the state file: the snapshot goes to a temporary file in
// the same directory which is then renamed over the old one.
func (f *FileState) Write(s Snapshot) error {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Encode writes s in the state file layout.
func Encode(w io.Writer, s Snapshot) error {
	words := make([]int32, 0, 2+3*len(s.Points))
	words = append(words, clamp32(s.Cursor), clamp32(len(s.Points)))
	for _, p := range s.Points {
		words = append(words, clamp32(p.Steps), clamp32(p.SpeedIndex), clamp32(p.DistanceMm))
	}
	return binary.Write(w, binary.LittleEndian, words)
}

// Decode parses a state file. It never returns more than maxPoints points,
// nor more than the complete records present in data; a negative length
// reads as empty. Data shorter than the header is an error.
func Decode(data []byte, maxPoints int) (Snapshot, error) {
	if len(data) < headerSize {
		return Snapshot{}, fmt.Errorf("state file truncated: %d bytes, header needs %d", len(data), headerSize)
	}
	cursor := int(int32(binary.LittleEndian.Uint32(data[0:4])))
	length := int(int32(binary.LittleEndian.Uint32(data[4:8])))

	available := (len(data) - headerSize) / recordSize
	length = max(0, min(length, available, maxPoints))

	points := make([]Point, length)
	for i := range points {
		rec := data[headerSize+i*recordSize:]
		points[i] = Point{
			Steps:      int(int32(binary.LittleEndian.Uint32(rec[0:4]))),
			SpeedIndex: int(int32(binary.LittleEndian.Uint32(rec[4:8]))),
			DistanceMm: int(int32(binary.LittleEndian.Uint32(rec[8:12]))),
		}
	}
	return Snapshot{Cursor: cursor, Points: points}, nil
}

func clamp32(v int) int32 {
	return int32(max(math.MinInt32, min(math.MaxInt32, v)))
}
