package native

import (
	"encoding/binary"
	"os"
	osexec "os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageLayout(t *testing.T) {
	img := &Image{
		Code:   []byte{0xC3},
		Rodata: []byte("hi"),
		Entry:  ImageBase + headerSize,
	}

	b := img.Bytes()
	require.Len(t, b, headerSize+3)

	assert.Equal(t, []byte{0x7F, 'E', 'L', 'F'}, b[:4])
	assert.Equal(t, byte(2), b[4]) // ELFCLASS64
	assert.Equal(t, byte(1), b[5]) // little endian

	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(b[16:]))    // ET_EXEC
	assert.Equal(t, uint16(0x3E), binary.LittleEndian.Uint16(b[18:])) // EM_X86_64
	assert.Equal(t, img.Entry, binary.LittleEndian.Uint64(b[24:]))
	assert.Equal(t, uint64(elfHeaderSize), binary.LittleEndian.Uint64(b[32:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[56:])) // one program header

	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[64:])) // PT_LOAD
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(b[68:])) // PF_R | PF_X
	assert.Equal(t, uint64(ImageBase), binary.LittleEndian.Uint64(b[80:]))
	assert.Equal(t, uint64(len(b)), binary.LittleEndian.Uint64(b[96:]))
	assert.Equal(t, uint64(len(b)), binary.LittleEndian.Uint64(b[104:]))

	assert.Equal(t, byte(0xC3), b[headerSize])
	assert.Equal(t, []byte("hi"), b[headerSize+1:])
}

func TestWriteExecutable(t *testing.T) {
	img := &Image{Code: []byte{0xC3}, Entry: ImageBase + headerSize}
	path := filepath.Join(t.TempDir(), "out")

	require.NoError(t, WriteExecutable(path, img))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111, "executable bit should be set")

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, img.Bytes(), written)
}

func TestWriteExecutableBadPath(t *testing.T) {
	img := &Image{Code: []byte{0xC3}}
	err := WriteExecutable(filepath.Join(t.TempDir(), "missing", "out"), img)
	assert.ErrorIs(t, err, ErrIO)
}

func buildBinary(t *testing.T, source string) string {
	t.Helper()

	p := mustLower(t, source)
	img, err := Encode(p)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "zen-exe")
	require.NoError(t, WriteExecutable(path, img))
	return path
}

func requireNativeHost(t *testing.T) {
	t.Helper()

	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skipf("emitted binaries only run on linux/amd64, host is %s/%s", runtime.GOOS, runtime.GOARCH)
	}
}

func TestExecutableExitStatus(t *testing.T) {
	requireNativeHost(t)

	path := buildBinary(t, `
func main() -> i32 {
	let a = 6
	let b = 7
	return a * b
}
`)

	err := osexec.Command(path).Run()
	var exitErr *osexec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 42, exitErr.ExitCode())
}

func TestExecutableWritesToStdout(t *testing.T) {
	requireNativeHost(t)

	path := buildBinary(t, `
func main() -> i32 {
	print("hello")
	return 0
}
`)

	out, err := osexec.Command(path).Output()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestExecutableControlFlow(t *testing.T) {
	requireNativeHost(t)

	path := buildBinary(t, `
func main() -> i32 {
	let sum = 0
	let i = 1
	while (i <= 5) {
		sum = sum + i
		i = i + 1
	}
	return sum
}
`)

	err := osexec.Command(path).Run()
	var exitErr *osexec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 15, exitErr.ExitCode())
}

func TestExecutableFunctionCalls(t *testing.T) {
	requireNativeHost(t)

	path := buildBinary(t, `
func seven() -> i32 {
	return 7
}

func main() -> i32 {
	return seven() * 3
}
`)

	err := osexec.Command(path).Run()
	var exitErr *osexec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 21, exitErr.ExitCode())
}

func TestFailedLoweringWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")

	_, err := lowerSource(t, "func helper() -> i32 { return 1; }")
	require.ErrorIs(t, err, ErrMissingEntryPoint)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
