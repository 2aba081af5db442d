// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package partitioning

import (
	"slices"
	"strings"

	"github.com/siderolabs/partedit/table"
)

// Type is a well-known partition type.
type Type struct {
	// ID is the MBR type byte as two hex digits or the GPT type GUID.
	ID   string
	Name string
}

var dosTypes = []Type{
	{ID: "83", Name: "Linux"},
	{ID: "82", Name: "Linux swap"},
	{ID: "07", Name: "HPFS/NTFS/exFAT"},
	{ID: "0b", Name: "W95 FAT32"},
	{ID: "0c", Name: "W95 FAT32 (LBA)"},
	{ID: "ef", Name: "EFI (FAT-12/16/32)"},
	{ID: "a5", Name: "FreeBSD"},
	{ID: "da", Name: "Non-FS data"},
}

var dosExtendedTypes = []Type{
	{ID: "05", Name: "Extended"},
	{ID: "0f", Name: "W95 Ext'd (LBA)"},
	{ID: "85", Name: "Linux extended"},
}

var gptTypes = []Type{
	{ID: "0FC63DAF-8483-4772-8E79-3D69D8477DE4", Name: "Linux filesystem"},
	{ID: "0657FD6D-A4AB-43C4-84E5-0933C84B4F4F", Name: "Linux swap"},
	{ID: "C12A7328-F81F-11D2-BA4B-00A0C93EC93B", Name: "EFI System"},
	{ID: "21686148-6449-6E6F-744E-656564454649", Name: "BIOS boot"},
	{ID: "EBD0A0A2-B9E5-4433-87C0-68B6B72699C7", Name: "Microsoft basic data"},
	{ID: "933AC7E1-2EB4-4F13-B844-0E14E2AEF915", Name: "Linux home"},
	{ID: "3B8F8425-20E0-4F3B-907F-1A25A76F98E8", Name: "Linux server data"},
}

// Types returns the partition types which can be assigned to data partitions.
func Types(label table.Label) []Type {
	if label == table.LabelGPT {
		return slices.Clone(gptTypes)
	}

	return slices.Clone(dosTypes)
}

// TypeName returns the human-readable name of the partition type.
//
// Unknown types are returned as is.
func TypeName(label table.Label, id string) string {
	catalogue := dosTypes

	if label == table.LabelGPT {
		catalogue = gptTypes
	} else {
		catalogue = slices.Concat(catalogue, dosExtendedTypes)
	}

	idx := slices.IndexFunc(catalogue, func(t Type) bool { return strings.EqualFold(t.ID, id) })
	if idx == -1 {
		return id
	}

	return catalogue[idx].Name
}
