// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backend

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

var backupMagic = []byte("PEDTBAK1")

// maxRecordSize limits a single backup record, metadata writes are far below it.
const maxRecordSize = 64 << 20

// WriteBackup writes the records as a zstd-compressed backup stream.
func WriteBackup(w io.Writer, records []Record) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}

	if _, err = zw.Write(backupMagic); err != nil {
		zw.Close() //nolint:errcheck

		return err
	}

	var hdr [12]byte

	for _, r := range records {
		binary.LittleEndian.PutUint64(hdr[0:], uint64(r.Offset))
		binary.LittleEndian.PutUint32(hdr[8:], uint32(len(r.Data)))

		if _, err = zw.Write(hdr[:]); err != nil {
			zw.Close() //nolint:errcheck

			return err
		}

		if _, err = zw.Write(r.Data); err != nil {
			zw.Close() //nolint:errcheck

			return err
		}
	}

	return zw.Close()
}

// ReadBackup reads the records of a backup stream.
func ReadBackup(r io.Reader) ([]Record, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}

	defer zr.Close()

	br := bufio.NewReader(zr)

	magic := make([]byte, len(backupMagic))

	if _, err = io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("failed to read backup header: %w", err)
	}

	if string(magic) != string(backupMagic) {
		return nil, errors.New("not a partition table backup")
	}

	var (
		records []Record
		hdr     [12]byte
	)

	for {
		if _, err = io.ReadFull(br, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}

			return nil, fmt.Errorf("truncated backup: %w", err)
		}

		offset := binary.LittleEndian.Uint64(hdr[0:])
		length := binary.LittleEndian.Uint32(hdr[8:])

		if length > maxRecordSize {
			return nil, fmt.Errorf("backup record at offset %d is too large: %d bytes", offset, length)
		}

		data := make([]byte, length)

		if _, err = io.ReadFull(br, data); err != nil {
			return nil, fmt.Errorf("truncated backup: %w", err)
		}

		records = append(records, Record{Offset: int64(offset), Data: data})
	}
}

// backupPath returns the name of a new backup file for the device.
func backupPath(dir, device string, now time.Time) string {
	name := strings.TrimPrefix(filepath.Clean(device), "/")
	name = strings.ReplaceAll(name, "/", "_")

	return filepath.Join(dir, fmt.Sprintf("partedit-%s-%s.bak.zst", name, now.UTC().Format("20060102T150405.000000000")))
}

func writeBackupFile(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}

	if err = WriteBackup(f, records); err != nil {
		f.Close() //nolint:errcheck

		return err
	}

	if err = f.Sync(); err != nil {
		f.Close() //nolint:errcheck

		return err
	}

	return f.Close()
}
