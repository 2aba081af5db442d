// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gptstructs

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"slices"

	"github.com/siderolabs/partedit/internal/ioutil"
)

// HeaderSignature is the signature of the GPT header.
const HeaderSignature = 0x5452415020494645 // "EFI PART"

// CalculateChecksum calculates the checksum of the header.
func (h Header) CalculateChecksum() uint32 {
	b := slices.Clone(h[:HEADER_SIZE])

	b[16] = 0
	b[17] = 0
	b[18] = 0
	b[19] = 0

	return crc32.ChecksumIEEE(b)
}

// ErrInvalidHeader is returned by ReadHeader if the sector doesn't hold a valid GPT header.
var ErrInvalidHeader = errors.New("invalid GPT header")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidHeader, fmt.Sprintf(format, args...))
}

// HeaderReader is an interface for reading GPT headers.
type HeaderReader interface {
	io.ReaderAt
	GetSectorSize() uint
}

// ReadHeader reads the GPT header at the LBA and its partition entries.
//
// Any inconsistency in the header or the entries is reported as ErrInvalidHeader
// with the reason, read failures are returned as is.
func ReadHeader(r HeaderReader, lba, lastLBA uint64) (Header, []Entry, error) {
	sectorSize := r.GetSectorSize()
	buf := make([]byte, sectorSize)

	if err := ioutil.ReadFullAt(r, buf, int64(lba)*int64(sectorSize)); err != nil {
		return nil, nil, err
	}

	hdr := Header(buf)

	if err := hdr.check(lba, lastLBA, sectorSize); err != nil {
		return nil, nil, err
	}

	numEntries := hdr.Get_num_partition_entries()
	entriesLBA := hdr.Get_partition_entries_lba()
	entriesSize := uint64(numEntries) * ENTRY_SIZE

	if entriesLBA > lastLBA || entriesSize > (lastLBA-entriesLBA+1)*uint64(sectorSize) {
		return nil, nil, invalid("partition entries at LBA %d are outside of the device", entriesLBA)
	}

	entriesBuf := make([]byte, entriesSize)

	if err := ioutil.ReadFullAt(r, entriesBuf, int64(entriesLBA)*int64(sectorSize)); err != nil {
		return nil, nil, err
	}

	if crc32.ChecksumIEEE(entriesBuf) != hdr.Get_partition_entry_array_crc32() {
		return nil, nil, invalid("partition entries checksum mismatch")
	}

	entries := make([]Entry, numEntries)
	for i := range entries {
		entries[i] = Entry(entriesBuf[i*ENTRY_SIZE : (i+1)*ENTRY_SIZE])
	}

	return hdr, entries, nil
}

func (h Header) check(lba, lastLBA uint64, sectorSize uint) error {
	if h.Get_signature() != HeaderSignature {
		return invalid("no signature at LBA %d", lba)
	}

	if size := h.Get_header_size(); size < HEADER_SIZE || uint(size) > sectorSize {
		return invalid("header size %d", size)
	}

	if h.Get_header_crc32() != h.CalculateChecksum() {
		return invalid("header checksum mismatch")
	}

	if myLBA := h.Get_my_lba(); myLBA != lba {
		return invalid("header at LBA %d claims LBA %d", lba, myLBA)
	}

	first, last := h.Get_first_usable_lba(), h.Get_last_usable_lba()

	switch {
	case last < first, first > lastLBA, last > lastLBA:
		return invalid("usable range %d-%d", first, last)
	case first < lba && lba < last:
		return invalid("header inside of the usable range %d-%d", first, last)
	}

	if h.Get_sizeof_partition_entry() != ENTRY_SIZE {
		return invalid("partition entry size %d", h.Get_sizeof_partition_entry())
	}

	if n := h.Get_num_partition_entries(); n == 0 || n > NumEntries {
		return invalid("%d partition entries", n)
	}

	return nil
}
