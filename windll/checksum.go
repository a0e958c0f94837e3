package windll

import "encoding/binary"

// checksumFieldOffset is the CheckSum position inside the optional header:
// PE signature (4) + COFF header (20) + 64 bytes of optional header.
const checksumFieldOffset = 4 + 20 + 64

// Checksum computes the PE image checksum over data, treating the 4-byte
// field at checksumOff as zero: 16-bit ones-complement style folding of
// every little-endian word, plus the file length.
func Checksum(data []byte, checksumOff int) uint32 {
	var sum uint64
	for i := 0; i+2 <= len(data); i += 2 {
		if i == checksumOff || i == checksumOff+2 {
			continue
		}
		sum += uint64(binary.LittleEndian.Uint16(data[i:]))
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	if len(data)%2 == 1 {
		sum += uint64(data[len(data)-1])
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	sum = (sum & 0xFFFF) + (sum >> 16)
	sum += sum >> 16
	sum &= 0xFFFF
	return uint32(sum) + uint32(len(data))
}

// patchChecksum fills in the optional header's CheckSum field of the
// assembled image.
func (d *WinDll) patchChecksum() {
	data := d.assembly.Bytes()
	if len(data) < 0x40 {
		return
	}
	peOff := int(binary.LittleEndian.Uint32(data[0x3C:]))
	fieldOff := peOff + checksumFieldOffset
	if fieldOff+4 > len(data) {
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], Checksum(data, fieldOff))
	d.assembly.Patch(fieldOff, buf[:])
}
