// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gptstructs

import "encoding/binary"

// Entry is a byte slice representing a GPT partition entry.
type Entry []byte

// ENTRY_SIZE is the size of the Entry structure in bytes.
//
//nolint:revive,stylecheck
const ENTRY_SIZE = 128

// Get_partition_type_guid returns partition_type_guid.
func (e Entry) Get_partition_type_guid() []byte { return e[0:16] }

// Put_partition_type_guid sets partition_type_guid.
func (e Entry) Put_partition_type_guid(v []byte) { copy(e[0:16], v) }

// Get_unique_partition_guid returns unique_partition_guid.
func (e Entry) Get_unique_partition_guid() []byte { return e[16:32] }

// Put_unique_partition_guid sets unique_partition_guid.
func (e Entry) Put_unique_partition_guid(v []byte) { copy(e[16:32], v) }

// Get_starting_lba returns starting_lba.
func (e Entry) Get_starting_lba() uint64 { return binary.LittleEndian.Uint64(e[32:40]) }

// Put_starting_lba sets starting_lba.
func (e Entry) Put_starting_lba(v uint64) { binary.LittleEndian.PutUint64(e[32:40], v) }

// Get_ending_lba returns ending_lba.
func (e Entry) Get_ending_lba() uint64 { return binary.LittleEndian.Uint64(e[40:48]) }

// Put_ending_lba sets ending_lba.
func (e Entry) Put_ending_lba(v uint64) { binary.LittleEndian.PutUint64(e[40:48], v) }

// Get_attributes returns attributes.
func (e Entry) Get_attributes() uint64 { return binary.LittleEndian.Uint64(e[48:56]) }

// Put_attributes sets attributes.
func (e Entry) Put_attributes(v uint64) { binary.LittleEndian.PutUint64(e[48:56], v) }

// Get_partition_name returns partition_name, UTF-16LE encoded.
func (e Entry) Get_partition_name() []byte { return e[56:128] }

// Put_partition_name sets partition_name.
func (e Entry) Put_partition_name(v []byte) { copy(e[56:128], v) }
