// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package editor

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/siderolabs/partedit/backend"
	"github.com/siderolabs/partedit/geometry"
	"github.com/siderolabs/partedit/partitioning"
	"github.com/siderolabs/partedit/table"
)

// Row is a table entry formatted for display.
type Row struct {
	Name     string
	Flags    string
	PartType string
	FSType   string
	Size     string
}

// Columns are the headers of the partition list.
var Columns = []string{"Name", "Flags", "Part Type", "FS Type", "Size"}

// Row formats the entry in the current unit.
func (e *Editor) Row(entry table.Entry) Row {
	row := Row{
		Size: geometry.Format(entry.Length(), e.info.SectorSize, e.unit),
	}

	if entry.IsFree() {
		switch class := e.table.Classify(entry); class {
		case table.ClassUnusable:
			row.PartType = "Unusable Free Space"
		default:
			row.PartType = class.String() + " Free Space"
		}

		return row
	}

	row.Name = partitioning.DevName(e.info.Path, uint(entry.Number))
	row.Flags = entry.Flags.String()
	row.PartType = entry.Kind.String()
	row.FSType = entry.FSType

	if row.FSType == "" {
		row.FSType = partitioning.TypeName(e.info.Label, entry.Type)
	}

	return row
}

// Header returns the device summary lines.
func Header(info backend.DeviceInfo) []string {
	model := info.Model
	if model == "" {
		model = string(info.Type)
	}

	label := string(info.Label)
	if !info.Labeled {
		label += " (new)"
	}

	return []string{
		fmt.Sprintf("Disk Drive: %s (%s)", info.Path, model),
		fmt.Sprintf("Size: %d bytes, %s", info.Size(), humanize.Bytes(info.Size())),
		fmt.Sprintf("Sector size (logical/physical): %d/%d bytes", info.SectorSize, info.PhysicalSectorSize),
		fmt.Sprintf("Partition Table: %s", label),
	}
}

// Print writes the partition table ordered by sectors, the extended partition included.
func (e *Editor) Print(w io.Writer) error {
	return Print(w, e.info, e.table, e.unit)
}

// Print writes the partition table of the device.
func Print(w io.Writer, info backend.DeviceInfo, tbl *table.Table, unit geometry.Unit) error {
	for _, line := range Header(info) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "#\tStart\tEnd\tSectors\tSize\tKind\tType\tFS Type\tFlags")

	for _, entry := range tbl.Entries() {
		number := ""
		typ := ""

		if !entry.IsFree() {
			number = strconv.Itoa(entry.Number)
			typ = partitioning.TypeName(info.Label, entry.Type)
		}

		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			number,
			entry.Start,
			entry.End,
			entry.Length(),
			geometry.Format(entry.Length(), info.SectorSize, unit),
			entry.Kind,
			typ,
			entry.FSType,
			entry.Flags,
		)
	}

	return tw.Flush()
}
