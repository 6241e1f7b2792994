package native

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	elfHeaderSize  = 64
	progHeaderSize = 56
)

func putU16(b []byte, off int, v uint16) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
}

func putU32(b []byte, off int, v uint32) {
	putU16(b, off, uint16(v))
	putU16(b, off+2, uint16(v>>16))
}

func putU64(b []byte, off int, v uint64) {
	putU32(b, off, uint32(v))
	putU32(b, off+4, uint32(v>>32))
}

// Bytes lays out the complete executable file: ELF header, one PT_LOAD
// program header covering the whole file, then code and string data. There
// are no sections, no dynamic linking and no relocations.
func (img *Image) Bytes() []byte {
	fileSize := uint64(headerSize + len(img.Code) + len(img.Rodata))

	b := make([]byte, headerSize, fileSize)

	copy(b, []byte{0x7F, 'E', 'L', 'F', 2, 1, 1, 0}) // ELFCLASS64, little-endian, current version
	putU16(b, 16, 2)                                 // ET_EXEC
	putU16(b, 18, 0x3E)                              // EM_X86_64
	putU32(b, 20, 1)                                 // EV_CURRENT
	putU64(b, 24, img.Entry)
	putU64(b, 32, elfHeaderSize) // program header table directly after the header
	putU64(b, 40, 0)             // no section headers
	putU32(b, 48, 0)
	putU16(b, 52, elfHeaderSize)
	putU16(b, 54, progHeaderSize)
	putU16(b, 56, 1) // a single program header

	putU32(b, 64, 1) // PT_LOAD
	putU32(b, 68, 5) // PF_R | PF_X
	putU64(b, 72, 0) // the segment starts at the file's first byte
	putU64(b, 80, ImageBase)
	putU64(b, 88, ImageBase)
	putU64(b, 96, fileSize)
	putU64(b, 104, fileSize)
	putU64(b, 112, 0x1000)

	b = append(b, img.Code...)
	b = append(b, img.Rodata...)
	return b
}

// WriteExecutable writes the image to path with the execute bit set. A
// partially written file is removed so a failed build never leaves a broken
// executable behind.
func WriteExecutable(path string, img *Image) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}

	data := img.Bytes()
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			unix.Close(fd)
			unix.Unlink(path)
			return fmt.Errorf("%w: write %s: %v", ErrIO, path, err)
		}
		data = data[n:]
	}

	if err := unix.Close(fd); err != nil {
		unix.Unlink(path)
		return fmt.Errorf("%w: close %s: %v", ErrIO, path, err)
	}
	return nil
}
