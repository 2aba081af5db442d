// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backend

import (
	"fmt"
	"io"
	"slices"

	"github.com/siderolabs/partedit/internal/ioutil"
)

// medium is an opened disk: a block device or an image file.
type medium interface {
	io.ReaderAt
	io.WriterAt

	GetSectorSize() uint
	GetSize() uint64
	Sync() error
	Close() error
}

// Record is a range of bytes on the device.
type Record struct {
	Data   []byte
	Offset int64
}

// stage collects the writes instead of passing them to the device.
//
// Reads see the collected writes.
type stage struct {
	medium

	writes []Record
}

func (s *stage) WriteAt(p []byte, off int64) (int, error) {
	s.writes = append(s.writes, Record{Offset: off, Data: slices.Clone(p)})

	return len(p), nil
}

func (s *stage) ReadAt(p []byte, off int64) (int, error) {
	n, err := s.medium.ReadAt(p, off)

	for _, w := range s.writes {
		lo := max(off, w.Offset)
		hi := min(off+int64(len(p)), w.Offset+int64(len(w.Data)))

		if lo < hi {
			copy(p[lo-off:hi-off], w.Data[lo-w.Offset:hi-w.Offset])
		}
	}

	return n, err
}

func (s *stage) Sync() error {
	return nil
}

// originals reads the current contents of the ranges about to be written.
func (s *stage) originals() ([]Record, error) {
	originals := make([]Record, 0, len(s.writes))

	for _, w := range s.writes {
		buf := make([]byte, len(w.Data))

		if err := ioutil.ReadFullAt(s.medium, buf, w.Offset); err != nil {
			return nil, fmt.Errorf("failed to read %d bytes at offset %d: %w", len(buf), w.Offset, err)
		}

		originals = append(originals, Record{Offset: w.Offset, Data: buf})
	}

	return originals, nil
}

// apply writes the collected writes to the device.
//
// On failure the written ranges are restored from the originals.
func (s *stage) apply(originals []Record) error {
	for i, w := range s.writes {
		if _, err := s.medium.WriteAt(w.Data, w.Offset); err != nil {
			err = fmt.Errorf("failed to write %d bytes at offset %d: %w", len(w.Data), w.Offset, err)

			if restoreErr := restore(s.medium, originals[:i+1]); restoreErr != nil {
				return fmt.Errorf("%w (restore failed: %w)", err, restoreErr)
			}

			return err
		}
	}

	if err := s.medium.Sync(); err != nil {
		err = fmt.Errorf("failed to sync: %w", err)

		if restoreErr := restore(s.medium, originals); restoreErr != nil {
			return fmt.Errorf("%w (restore failed: %w)", err, restoreErr)
		}

		return err
	}

	return nil
}

// restore writes the records back in reverse order.
func restore(w medium, records []Record) error {
	for _, r := range slices.Backward(records) {
		if _, err := w.WriteAt(r.Data, r.Offset); err != nil {
			return err
		}
	}

	return w.Sync()
}
