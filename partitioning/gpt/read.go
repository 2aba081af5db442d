// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"

	"github.com/siderolabs/partedit/internal/gptstructs"
	"github.com/siderolabs/partedit/internal/gptutil"
)

// Read reads the partition table from the device.
//
// The backup header is used if the primary one is damaged. Entries outside
// of the usable range of the device are dropped.
func Read(dev Device, opts ...Option) (*Table, error) {
	l, err := newLayout(dev)
	if err != nil {
		return nil, err
	}

	hdr, entries, source, err := readHeaders(dev, l)
	if err != nil {
		return nil, err
	}

	diskGUID, err := uuid.FromBytes(gptutil.GUIDToUUID(hdr.Get_disk_guid()))
	if err != nil {
		return nil, err
	}

	t := &Table{
		dev:          dev,
		layout:       l,
		diskGUID:     diskGUID,
		source:       source,
		alternateLBA: l.backupHeader,
		options:      applyOptions(opts),
	}

	if source == HeaderPrimary {
		t.alternateLBA = hdr.Get_alternate_lba()
	}

	last := -1
	partitions := make([]*Partition, len(entries))

	for i, entry := range entries {
		p, err := decodeEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("partition %d: %w", i+1, err)
		}

		if p == nil || p.FirstLBA < l.firstUsable || p.LastLBA > l.lastUsable {
			continue
		}

		partitions[i] = p
		last = i
	}

	t.entries = partitions[:last+1]

	if last < 0 {
		t.entries = nil
	}

	return t, nil
}

func readHeaders(dev Device, l layout) (gptstructs.Header, []gptstructs.Entry, HeaderSource, error) {
	hdr, entries, primaryErr := gptstructs.ReadHeader(dev, l.primaryHeader, l.lastLBA)
	if primaryErr == nil {
		return hdr, entries, HeaderPrimary, nil
	}

	if !errors.Is(primaryErr, gptstructs.ErrInvalidHeader) {
		return nil, nil, 0, primaryErr
	}

	hdr, entries, backupErr := gptstructs.ReadHeader(dev, l.backupHeader, l.lastLBA)
	if backupErr == nil {
		return hdr, entries, HeaderBackup, nil
	}

	if !errors.Is(backupErr, gptstructs.ErrInvalidHeader) {
		return nil, nil, 0, backupErr
	}

	return nil, nil, 0, fmt.Errorf("%w: primary: %w; backup: %w", ErrNotFound, primaryErr, backupErr)
}

// decodeEntry returns nil for unused entries.
func decodeEntry(entry gptstructs.Entry) (*Partition, error) {
	typeGUID, err := uuid.FromBytes(gptutil.GUIDToUUID(entry.Get_partition_type_guid()))
	if err != nil {
		return nil, err
	}

	if typeGUID == uuid.Nil {
		return nil, nil //nolint:nilnil
	}

	partGUID, err := uuid.FromBytes(gptutil.GUIDToUUID(entry.Get_unique_partition_guid()))
	if err != nil {
		return nil, err
	}

	name, err := decodeName(entry.Get_partition_name())
	if err != nil {
		return nil, err
	}

	return &Partition{
		Name:     name,
		TypeGUID: typeGUID,
		PartGUID: partGUID,
		FirstLBA: entry.Get_starting_lba(),
		LastLBA:  entry.Get_ending_lba(),
		Flags:    entry.Get_attributes(),
	}, nil
}

var utf16 = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func decodeName(b []byte) (string, error) {
	name, err := utf16.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("failed to decode partition name: %w", err)
	}

	return string(bytes.TrimRight(name, "\x00")), nil
}
