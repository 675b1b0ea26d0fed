package sidecar

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/phobologic/persist/ndarray"
	"github.com/phobologic/persist/persisterr"
)

// manifest.cbor sits alongside the .npy files in an NPY sidecar directory.
// It records, per key, the content hash the array had when it was
// written, so a later Load can detect a sidecar that disagrees with its
// own files (persisterr.CorruptArchiveError) instead of silently handing
// back corrupted bytes.
type npyManifest struct {
	Entries []npyManifestEntry
}

type npyManifestEntry struct {
	Key        string
	Hash       [32]byte
	Compressed bool
}

const manifestFile = "manifest.cbor"

func saveNPY(dir string, arrays []Array, keys []string, compress bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	manifest := npyManifest{}
	for i, a := range arrays {
		key := keys[i]
		payload, err := encodeNPY(a)
		if err != nil {
			return fmt.Errorf("sidecar: encoding %s: %w", key, err)
		}

		hash := blake3.Sum256(payload)

		if compress {
			payload, err = zstdCompress(payload)
			if err != nil {
				return fmt.Errorf("sidecar: compressing %s: %w", key, err)
			}
		}

		path := filepath.Join(dir, key+".npy")
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("sidecar: writing %s: %w", path, err)
		}

		manifest.Entries = append(manifest.Entries, npyManifestEntry{
			Key: key, Hash: hash, Compressed: compress,
		})
	}

	manifestBytes, err := cbor.Marshal(manifest)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, manifestFile), manifestBytes, 0o644)
}

func loadNPY(dir string) (map[string]Array, error) {
	manifestBytes, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("sidecar: reading manifest: %w", err)
	}
	var manifest npyManifest
	if err := cbor.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, fmt.Errorf("sidecar: decoding manifest: %w", err)
	}

	out := make(map[string]Array, len(manifest.Entries))
	for _, e := range manifest.Entries {
		path := filepath.Join(dir, e.Key+".npy")
		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, &persisterr.CorruptArchiveError{Key: e.Key, Reason: "manifest names a missing array file"}
		}
		if err != nil {
			return nil, fmt.Errorf("sidecar: reading %s: %w", path, err)
		}

		payload := raw
		if e.Compressed {
			payload, err = zstdDecompress(raw)
			if err != nil {
				return nil, fmt.Errorf("sidecar: decompressing %s: %w", path, err)
			}
		}

		if blake3.Sum256(payload) != e.Hash {
			return nil, &persisterr.CorruptArchiveError{Key: e.Key, Reason: "content hash does not match manifest"}
		}

		dtype, shape, order, data, err := decodeNPY(payload)
		if err != nil {
			return nil, fmt.Errorf("sidecar: decoding %s: %w", path, err)
		}
		out[e.Key] = ndarray.New(dtype, shape, order, data)
	}
	return out, nil
}

var dtypeLetter = map[string]string{
	"float64": "f", "float32": "f",
	"int64": "i", "int32": "i", "int16": "i", "int8": "i",
	"uint64": "u", "uint32": "u", "uint16": "u", "uint8": "u",
	"bool": "b",
}

func npyDescr(dtype string, order binary.ByteOrder, size int) (string, error) {
	letter, ok := dtypeLetter[dtype]
	if !ok {
		return "", fmt.Errorf("sidecar: unknown dtype %q", dtype)
	}
	prefix := "<"
	if size == 1 {
		prefix = "|"
	} else if order == binary.BigEndian {
		prefix = ">"
	}
	return fmt.Sprintf("%s%s%d", prefix, letter, size), nil
}

func dtypeFromDescr(descr string) (string, error) {
	if len(descr) < 2 {
		return "", fmt.Errorf("sidecar: malformed dtype descriptor %q", descr)
	}
	code := descr[1:]
	switch code {
	case "f8":
		return "float64", nil
	case "f4":
		return "float32", nil
	case "i8":
		return "int64", nil
	case "i4":
		return "int32", nil
	case "i2":
		return "int16", nil
	case "i1":
		return "int8", nil
	case "u8":
		return "uint64", nil
	case "u4":
		return "uint32", nil
	case "u2":
		return "uint16", nil
	case "u1":
		return "uint8", nil
	case "b1":
		return "bool", nil
	default:
		return "", fmt.Errorf("sidecar: unsupported dtype descriptor %q", descr)
	}
}

func encodeNPY(a Array) ([]byte, error) {
	size, err := itemSize(a.Dtype())
	if err != nil {
		return nil, err
	}
	descr, err := npyDescr(a.Dtype(), a.ByteOrder(), size)
	if err != nil {
		return nil, err
	}

	shapeParts := make([]string, len(a.Shape()))
	for i, d := range a.Shape() {
		shapeParts[i] = strconv.Itoa(d)
	}
	shapeStr := strings.Join(shapeParts, ", ")
	if len(a.Shape()) == 1 {
		shapeStr += ","
	}

	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", descr, shapeStr)

	const prefixLen = 6 + 2 + 2 // magic + version + header length field
	total := prefixLen + len(dict) + 1
	pad := (64 - total%64) % 64
	header := dict + strings.Repeat(" ", pad) + "\n"

	var buf []byte
	buf = append(buf, "\x93NUMPY"...)
	buf = append(buf, 1, 0)
	var hlen [2]byte
	binary.LittleEndian.PutUint16(hlen[:], uint16(len(header)))
	buf = append(buf, hlen[:]...)
	buf = append(buf, header...)
	buf = append(buf, a.Bytes()...)
	return buf, nil
}

var (
	descrRe = regexp.MustCompile(`'descr':\s*'([^']+)'`)
	shapeRe = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)
)

func decodeNPY(payload []byte) (dtype string, shape []int, order binary.ByteOrder, data []byte, err error) {
	if len(payload) < 10 || string(payload[:6]) != "\x93NUMPY" {
		return "", nil, nil, nil, fmt.Errorf("sidecar: not an NPY payload")
	}
	hlen := int(binary.LittleEndian.Uint16(payload[8:10]))
	if len(payload) < 10+hlen {
		return "", nil, nil, nil, fmt.Errorf("sidecar: truncated NPY header")
	}
	header := payload[10 : 10+hlen]

	descrMatch := descrRe.FindSubmatch(header)
	shapeMatch := shapeRe.FindSubmatch(header)
	if descrMatch == nil || shapeMatch == nil {
		return "", nil, nil, nil, fmt.Errorf("sidecar: malformed NPY header %q", header)
	}

	descr := string(descrMatch[1])
	dtype, err = dtypeFromDescr(descr)
	if err != nil {
		return "", nil, nil, nil, err
	}

	order = binary.LittleEndian
	if descr[0] == '>' {
		order = binary.BigEndian
	}

	for _, part := range strings.Split(string(shapeMatch[1]), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil {
			return "", nil, nil, nil, fmt.Errorf("sidecar: malformed shape entry %q", part)
		}
		shape = append(shape, n)
	}

	data = payload[10+hlen:]
	return dtype, shape, order, data, nil
}

func zstdCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zstdDecompress(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
