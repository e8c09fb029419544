package slot

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"hash/crc32"
	"io"
	"time"
)

// Metadata is the descriptive header stored alongside the opaque payload.
// It is written by the store on every save and never mutated by rotation
// or migration.
type Metadata struct {
	SaveName        string    `json:"save_name"`
	PlayerName      string    `json:"player_name"`
	Level           int       `json:"level"`
	Depth           int       `json:"depth"`
	PlaytimeSeconds uint64    `json:"playtime_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	LastSaved       time.Time `json:"last_saved"`
	GameVersion     string    `json:"game_version"`
	Seed            *uint64   `json:"seed,omitempty"`
	Difficulty      string    `json:"difficulty"`
}

// NewMetadata returns a Metadata with identity fields set and progress
// fields at their starting values.
func NewMetadata(saveName, playerName string) Metadata {
	now := time.Now().UTC()
	return Metadata{
		SaveName:   saveName,
		PlayerName: playerName,
		Level:      1,
		Depth:      1,
		CreatedAt:  now,
		LastSaved:  now,
		Difficulty: "normal",
	}
}

// FormattedPlaytime renders the playtime as "1h 2m 3s", dropping leading
// zero units.
func (m Metadata) FormattedPlaytime() string {
	hours := m.PlaytimeSeconds / 3600
	minutes := (m.PlaytimeSeconds % 3600) / 60
	seconds := m.PlaytimeSeconds % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// File is the on-disk unit: metadata, the stored payload bytes and a
// checksum over them. When Compressed is set the payload bytes are
// gzip-compressed; the checksum always covers the stored representation,
// so Verify does not need to decompress.
type File struct {
	Metadata   Metadata `json:"metadata"`
	Payload    []byte   `json:"payload"`
	Compressed bool     `json:"compressed"`
	Checksum   string   `json:"checksum"`
}

// newFile builds a File from raw payload bytes, compressing them first
// when requested and checksumming the stored form.
func newFile(meta Metadata, payload []byte, compress bool) (*File, error) {
	stored := payload
	if compress {
		var err error
		stored, err = gzipBytes(payload)
		if err != nil {
			return nil, fmt.Errorf("compress payload: %w", err)
		}
	}
	return &File{
		Metadata:   meta,
		Payload:    stored,
		Compressed: compress,
		Checksum:   checksumBytes(stored),
	}, nil
}

// Verify recomputes the checksum over the stored payload bytes and
// compares it with the recorded one.
func (f *File) Verify() bool {
	return f.Checksum != "" && f.Checksum == checksumBytes(f.Payload)
}

// Body returns the logical payload bytes, decompressing when needed.
func (f *File) Body() ([]byte, error) {
	if !f.Compressed {
		return f.Payload, nil
	}
	b, err := gunzipBytes(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return b, nil
}

// checksumBytes returns the CRC32 (IEEE) of b as fixed-width hex. The
// digest depends only on the payload bytes, so identical payloads always
// carry identical checksums regardless of metadata.
func checksumBytes(b []byte) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(b))
}

func gzipBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
