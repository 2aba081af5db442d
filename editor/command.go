// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package editor

import "unicode"

// Command is an editor command bound to a menu option and a shortcut key.
type Command int

// Commands.
const (
	CommandBootable Command = iota
	CommandDelete
	CommandHelp
	CommandMaximize
	CommandNew
	CommandNewTable
	CommandPrint
	CommandQuit
	CommandType
	CommandUnits
	CommandWrite
)

var (
	partitionMenu = []Command{
		CommandBootable,
		CommandDelete,
		CommandHelp,
		CommandMaximize,
		CommandPrint,
		CommandQuit,
		CommandType,
		CommandUnits,
		CommandWrite,
	}

	freeSpaceMenu = []Command{
		CommandHelp,
		CommandNew,
		CommandPrint,
		CommandQuit,
		CommandUnits,
		CommandWrite,
		CommandNewTable,
	}
)

// defaultOption is the menu option selected when the cursor moves (Delete or New).
const defaultOption = 1

// String implements fmt.Stringer.
func (c Command) String() string {
	switch c {
	case CommandBootable:
		return "Bootable"
	case CommandDelete:
		return "Delete"
	case CommandHelp:
		return "Help"
	case CommandMaximize:
		return "Maximize"
	case CommandNew:
		return "New"
	case CommandNewTable:
		return "New Table"
	case CommandPrint:
		return "Print"
	case CommandQuit:
		return "Quit"
	case CommandType:
		return "Type"
	case CommandUnits:
		return "Units"
	case CommandWrite:
		return "Write"
	default:
		return "Unknown"
	}
}

// Description is shown in the info line when the option is selected.
func (c Command) Description() string {
	switch c {
	case CommandBootable:
		return "Toggle bootable flag of the current partition"
	case CommandDelete:
		return "Delete the current partition"
	case CommandHelp:
		return "Print help screen"
	case CommandMaximize:
		return "Maximize disk usage of the current partition (experts only)"
	case CommandNew:
		return "Create a new partition from free space"
	case CommandNewTable:
		return "Create a new partition table on the device (GPT, dos)"
	case CommandPrint:
		return "Print partition table to the screen"
	case CommandQuit:
		return "Quit program without writing partition table"
	case CommandType:
		return "Change the partition type (Linux, swap, EFI and so on)"
	case CommandUnits:
		return "Change units of the partition size display (MB, MiB, sectors, bytes)"
	case CommandWrite:
		return "Write partition table to disk (this might destroy data)"
	default:
		return ""
	}
}

// CommandForKey returns the command bound to a shortcut key.
//
// Shortcuts are case-insensitive except for write, which requires an upper case W.
func CommandForKey(key rune) (Command, bool) {
	if key == 'W' {
		return CommandWrite, true
	}

	switch unicode.ToLower(key) {
	case 'b':
		return CommandBootable, true
	case 'd':
		return CommandDelete, true
	case 'g':
		return CommandNewTable, true
	case 'h', '?':
		return CommandHelp, true
	case 'm':
		return CommandMaximize, true
	case 'n':
		return CommandNew, true
	case 'p':
		return CommandPrint, true
	case 'q':
		return CommandQuit, true
	case 't':
		return CommandType, true
	case 'u':
		return CommandUnits, true
	default:
		return 0, false
	}
}

// HelpText is the help screen.
const HelpText = `Help Screen for partedit

This is partedit, a terminal based disk partitioning program, which
allows you to create, delete and modify partitions on your hard
disk drive.

Command      Meaning
-------      -------
  b          Toggle bootable flag of the current partition
  d          Delete the current partition
  g          Create a new empty partition table (dos or GPT)
             WARNING: all partitions are discarded on write.
  h          Print this screen
  m          Maximize disk usage of the current partition
             Note: this may leave the partition unaligned.
  n          Create new partition from free space
  p          Print partition table to the screen
  q          Quit program without writing partition table
  t          Change the partition type
  u          Change units of the partition size display
             Rotates through MB, MiB, sectors and bytes
  W          Write partition table to disk (must enter upper case W)
             Since this might destroy data on the disk, you must
             either confirm or deny the write by entering 'yes' or
             'no'
Up Arrow     Move cursor to the previous partition
Down Arrow   Move cursor to the next partition
Left Arrow   Select the previous menu option
Right Arrow  Select the next menu option
Enter        Run the selected menu option
  ?          Print this screen

Note: All of the commands can be entered with either upper or lower
case letters (except for Writes).
`
