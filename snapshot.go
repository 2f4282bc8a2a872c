package portals

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// snapshotVersion is the format version written to snapshot headers.
const snapshotVersion = 1

// SnapshotHeader is the first line of a snapshot file.
type SnapshotHeader struct {
	Version int       `json:"version"`
	Written time.Time `json:"written"`
	Owners  int       `json:"owners"`
	Records int       `json:"records"`
}

// snapshotRecord is one stored property.
type snapshotRecord struct {
	Owner EntityID `json:"owner"`
	Key   string   `json:"key"`
	Kind  string   `json:"kind"`
	Value any      `json:"value"`
}

// WriteSnapshot writes every property of s to path as zstd compressed JSON
// lines. The file is replaced atomically.
func WriteSnapshot(path string, s Store) (SnapshotHeader, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return SnapshotHeader{}, err
	}

	var records []snapshotRecord
	owners := s.Owners()
	for _, owner := range owners {
		for _, key := range s.PropertyKeys(owner) {
			v, ok := s.Property(owner, key)
			if !ok {
				continue
			}
			kind, ok := KindOf(v)
			if !ok {
				continue
			}
			records = append(records, snapshotRecord{Owner: owner, Key: key, Kind: kind.String(), Value: v})
		}
	}
	header := SnapshotHeader{
		Version: snapshotVersion,
		Written: time.Now().UTC(),
		Owners:  len(owners),
		Records: len(records),
	}

	tmp := path + ".tmp"
	if err := writeSnapshotFile(tmp, header, records); err != nil {
		_ = os.Remove(tmp)
		return SnapshotHeader{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return SnapshotHeader{}, err
	}
	return header, nil
}

func writeSnapshotFile(path string, header SnapshotHeader, records []snapshotRecord) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	je := json.NewEncoder(bw)

	if err := je.Encode(header); err != nil {
		return fmt.Errorf("snapshot header: %w", err)
	}
	for _, rec := range records {
		if err := je.Encode(rec); err != nil {
			return fmt.Errorf("snapshot record %s/%s: %w", rec.Owner, rec.Key, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// ReadSnapshot loads the properties stored at path into s.
func ReadSnapshot(path string, s Store) (SnapshotHeader, error) {
	var header SnapshotHeader
	f, err := os.Open(path)
	if err != nil {
		return header, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return header, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReaderSize(dec, 64*1024))
	if err := jd.Decode(&header); err != nil {
		return header, fmt.Errorf("snapshot header: %w", err)
	}
	if header.Version != snapshotVersion {
		return header, fmt.Errorf("snapshot version %d not supported", header.Version)
	}

	var errs []error
	for n := 0; ; n++ {
		var rec snapshotRecord
		if err := jd.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return header, fmt.Errorf("snapshot record %d: %w", n, err)
		}
		if kind, ok := KindOf(rec.Value); !ok || kind.String() != rec.Kind {
			errs = append(errs, fmt.Errorf("snapshot record %s/%s: value does not match kind %s", rec.Owner, rec.Key, rec.Kind))
			continue
		}
		if err := s.SetProperty(rec.Owner, rec.Key, rec.Value); err != nil {
			errs = append(errs, err)
		}
	}
	return header, errors.Join(errs...)
}
