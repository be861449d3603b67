/*
   Velociraptor - Dig Deeper
   Copyright (C) 2019-2025 Rapid7 Inc.

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU Affero General Public License as published
   by the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU Affero General Public License for more details.

   You should have received a copy of the GNU Affero General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package vtesting

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/Velocidex/zip"
)

// An entry directly under the root storage of a compound file.
type OLEEntry struct {
	Name    string
	Storage bool
	Data    []byte
}

const (
	cfb_sector_size  = 512
	cfb_dir_size     = 128
	cfb_mini_cutoff  = 4096
	cfb_free_sect    = 0xFFFFFFFF
	cfb_end_of_chain = 0xFFFFFFFE
	cfb_fat_sect     = 0xFFFFFFFD
	cfb_no_stream    = 0xFFFFFFFF
)

// BuildCompoundFile produces a minimal version 3 OLE compound file
// holding the given entries under the root storage. Streams are
// padded to the mini stream cutoff so everything lives in regular
// sectors and no mini FAT is needed.
func BuildCompoundFile(entries ...OLEEntry) []byte {
	sorted := append([]OLEEntry{}, entries...)

	// Directory siblings are ordered by name length, then by upper
	// cased name.
	sort.SliceStable(sorted, func(i, j int) bool {
		a := utf16.Encode([]rune(sorted[i].Name))
		b := utf16.Encode([]rune(sorted[j].Name))
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return strings.ToUpper(sorted[i].Name) < strings.ToUpper(sorted[j].Name)
	})

	dir_count := len(sorted) + 1
	dir_sectors := (dir_count*cfb_dir_size + cfb_sector_size - 1) / cfb_sector_size

	// Sector 0 is the FAT, followed by the directory, then streams.
	fat := []uint32{cfb_fat_sect}
	for i := 1; i <= dir_sectors; i++ {
		if i == dir_sectors {
			fat = append(fat, cfb_end_of_chain)
		} else {
			fat = append(fat, uint32(i+1))
		}
	}

	stream_data := [][]byte{}
	start_sectors := make([]uint32, len(sorted))
	sizes := make([]uint64, len(sorted))

	for idx, entry := range sorted {
		if entry.Storage {
			continue
		}

		data := entry.Data
		if len(data) < cfb_mini_cutoff {
			data = append(append([]byte{}, data...),
				make([]byte, cfb_mini_cutoff-len(data))...)
		}
		sizes[idx] = uint64(len(data))

		sector_count := (len(data) + cfb_sector_size - 1) / cfb_sector_size
		padded := append(append([]byte{}, data...),
			make([]byte, sector_count*cfb_sector_size-len(data))...)

		start := uint32(len(fat))
		start_sectors[idx] = start
		for i := 0; i < sector_count; i++ {
			if i == sector_count-1 {
				fat = append(fat, cfb_end_of_chain)
			} else {
				fat = append(fat, start+uint32(i)+1)
			}
		}
		stream_data = append(stream_data, padded)
	}

	if len(fat) > cfb_sector_size/4 {
		panic("BuildCompoundFile: too much data for a single FAT sector")
	}
	for len(fat) < cfb_sector_size/4 {
		fat = append(fat, cfb_free_sect)
	}

	out := &bytes.Buffer{}
	out.Write(cfbHeader())
	for _, entry := range fat {
		_ = binary.Write(out, binary.LittleEndian, entry)
	}

	// Root entry.
	directory := &bytes.Buffer{}
	first_child := uint32(cfb_no_stream)
	if len(sorted) > 0 {
		first_child = 1
	}
	directory.Write(cfbDirEntry("Root Entry", 5, cfb_no_stream,
		first_child, cfb_end_of_chain, 0))

	for idx, entry := range sorted {
		right := uint32(cfb_no_stream)
		if idx+1 < len(sorted) {
			right = uint32(idx + 2)
		}

		if entry.Storage {
			directory.Write(cfbDirEntry(entry.Name, 1, right,
				cfb_no_stream, 0, 0))
		} else {
			directory.Write(cfbDirEntry(entry.Name, 2, right,
				cfb_no_stream, start_sectors[idx], sizes[idx]))
		}
	}

	// Unused directory slots.
	for directory.Len() < dir_sectors*cfb_sector_size {
		directory.Write(cfbDirEntry("", 0, cfb_no_stream, cfb_no_stream, 0, 0))
	}
	out.Write(directory.Bytes())

	for _, data := range stream_data {
		out.Write(data)
	}

	return out.Bytes()
}

func cfbHeader() []byte {
	header := make([]byte, cfb_sector_size)
	copy(header, []byte("\xD0\xCF\x11\xE0\xA1\xB1\x1A\xE1"))

	le := binary.LittleEndian
	le.PutUint16(header[24:], 0x003E) // Minor version
	le.PutUint16(header[26:], 0x0003) // Major version
	le.PutUint16(header[28:], 0xFFFE) // Byte order
	le.PutUint16(header[30:], 9)      // Sector shift
	le.PutUint16(header[32:], 6)      // Mini sector shift
	le.PutUint32(header[40:], 0)      // Directory sectors (always 0 in v3)
	le.PutUint32(header[44:], 1)      // FAT sectors
	le.PutUint32(header[48:], 1)      // First directory sector
	le.PutUint32(header[56:], cfb_mini_cutoff)
	le.PutUint32(header[60:], cfb_end_of_chain) // No mini FAT
	le.PutUint32(header[64:], 0)
	le.PutUint32(header[68:], cfb_end_of_chain) // No DIFAT sectors
	le.PutUint32(header[72:], 0)

	// The DIFAT array in the header: only the first FAT sector.
	le.PutUint32(header[76:], 0)
	for i := 1; i < 109; i++ {
		le.PutUint32(header[76+i*4:], cfb_free_sect)
	}

	return header
}

func cfbDirEntry(name string, object_type byte,
	right, child, start uint32, size uint64) []byte {
	entry := make([]byte, cfb_dir_size)
	le := binary.LittleEndian

	if name != "" {
		units := utf16.Encode([]rune(name))
		for i, u := range units {
			le.PutUint16(entry[i*2:], u)
		}
		le.PutUint16(entry[64:], uint16((len(units)+1)*2))
	}

	entry[66] = object_type
	entry[67] = 1 // Black
	le.PutUint32(entry[68:], cfb_no_stream)
	le.PutUint32(entry[72:], right)
	le.PutUint32(entry[76:], child)
	le.PutUint32(entry[116:], start)
	le.PutUint64(entry[120:], size)

	return entry
}

// An Excel 97 workbook carrying a VBA project storage.
func ExcelWithMacros() []byte {
	return BuildCompoundFile(
		OLEEntry{Name: "Workbook", Data: []byte("workbook stream")},
		OLEEntry{Name: "_VBA_PROJECT_CUR", Storage: true},
	)
}

// An Excel 97 workbook without a VBA project.
func ExcelWithoutMacros() []byte {
	return BuildCompoundFile(
		OLEEntry{Name: "Workbook", Data: []byte("workbook stream")},
		OLEEntry{Name: "\x05SummaryInformation", Data: []byte("summary")},
	)
}

type ZipEntry struct {
	Name string
	Data []byte
}

// BuildZip stores the entries uncompressed so tests can locate and
// damage entry content inside the archive.
func BuildZip(entries ...ZipEntry) []byte {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	for _, entry := range entries {
		fd, err := w.CreateHeader(&zip.FileHeader{
			Name:   entry.Name,
			Method: zip.Store,
		})
		if err != nil {
			panic(err)
		}

		_, err = fd.Write(entry.Data)
		if err != nil {
			panic(err)
		}

		// The entry is only added to the central directory on close.
		err = fd.Close()
		if err != nil {
			panic(err)
		}
	}

	err := w.Close()
	if err != nil {
		panic(err)
	}

	return buf.Bytes()
}
