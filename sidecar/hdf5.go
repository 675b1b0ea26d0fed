package sidecar

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/phobologic/persist/ndarray"
	"github.com/phobologic/persist/persisterr"
)

// hdf5Magic mirrors the real HDF5 superblock signature so tooling that
// sniffs the first eight bytes recognizes the file family. Nothing past
// those eight bytes follows the real HDF5 object-header format: this
// backend is a self-consistent container of our own design, not wire
// compatible with libhdf5.
var hdf5Magic = [8]byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

type hdf5Dataset struct {
	Key       string
	Shape     []int
	Dtype     string
	BigEndian bool
	Offset    int64
	Length    int64
	Hash      [32]byte
}

type hdf5Manifest struct {
	Datasets []hdf5Dataset
}

const hdf5File = "arrays.h5"

func saveHDF5(dir string, arrays []Array, keys []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var payload []byte
	manifest := hdf5Manifest{}

	for i, a := range arrays {
		key := keys[i]
		data := a.Bytes()
		offset := int64(len(payload))
		payload = append(payload, data...)

		manifest.Datasets = append(manifest.Datasets, hdf5Dataset{
			Key:       key,
			Shape:     a.Shape(),
			Dtype:     a.Dtype(),
			BigEndian: a.ByteOrder() == binary.BigEndian,
			Offset:    offset,
			Length:    int64(len(data)),
			Hash:      blake3.Sum256(data),
		})
	}

	manifestBytes, err := cbor.Marshal(manifest)
	if err != nil {
		return err
	}

	var buf []byte
	buf = append(buf, hdf5Magic[:]...)
	buf = append(buf, payload...)
	manifestOffset := int64(len(buf))
	buf = append(buf, manifestBytes...)

	var trailer [16]byte
	binary.LittleEndian.PutUint64(trailer[0:8], uint64(manifestOffset))
	binary.LittleEndian.PutUint64(trailer[8:16], uint64(len(manifestBytes)))
	buf = append(buf, trailer[:]...)

	return os.WriteFile(filepath.Join(dir, hdf5File), buf, 0o644)
}

func loadHDF5(dir string) (map[string]Array, error) {
	path := filepath.Join(dir, hdf5File)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sidecar: reading %s: %w", path, err)
	}
	if len(raw) < len(hdf5Magic)+16 || [8]byte(raw[:8]) != hdf5Magic {
		return nil, fmt.Errorf("sidecar: %s is not a recognized sidecar container", path)
	}

	trailer := raw[len(raw)-16:]
	manifestOffset := int64(binary.LittleEndian.Uint64(trailer[0:8]))
	manifestLen := int64(binary.LittleEndian.Uint64(trailer[8:16]))

	if manifestOffset < 0 || manifestOffset+manifestLen > int64(len(raw)-16) {
		return nil, fmt.Errorf("sidecar: %s has an out-of-range manifest trailer", path)
	}
	manifestBytes := raw[manifestOffset : manifestOffset+manifestLen]

	var manifest hdf5Manifest
	if err := cbor.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, fmt.Errorf("sidecar: decoding %s manifest: %w", path, err)
	}

	payload := raw[len(hdf5Magic):manifestOffset]

	out := make(map[string]Array, len(manifest.Datasets))
	for _, d := range manifest.Datasets {
		if d.Offset < 0 || d.Offset+d.Length > int64(len(payload)) {
			return nil, &persisterr.CorruptArchiveError{Key: d.Key, Reason: "dataset extent falls outside payload region"}
		}
		data := payload[d.Offset : d.Offset+d.Length]
		if blake3.Sum256(data) != d.Hash {
			return nil, &persisterr.CorruptArchiveError{Key: d.Key, Reason: "content hash does not match manifest"}
		}

		order := binary.ByteOrder(binary.LittleEndian)
		if d.BigEndian {
			order = binary.BigEndian
		}
		out[d.Key] = ndarray.New(d.Dtype, d.Shape, order, data)
	}
	return out, nil
}
