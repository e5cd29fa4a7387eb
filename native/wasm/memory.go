package wasm

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// guestMemory wraps the guest's linear memory with bounds-checked access.
type guestMemory struct {
	mem api.Memory
}

func (m *guestMemory) Read(offset, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *guestMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *guestMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (m *guestMemory) ReadU64(offset uint32) (uint64, error) {
	val, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (m *guestMemory) WriteU32(offset, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d", offset)
	}
	return nil
}

// ReadCString reads a NUL-terminated string. A null pointer yields "".
func (m *guestMemory) ReadCString(ptr uint32) (string, error) {
	if ptr == 0 {
		return "", nil
	}
	size := m.mem.Size()
	if ptr >= size {
		return "", fmt.Errorf("string pointer out of bounds: %d", ptr)
	}
	data, _ := m.mem.Read(ptr, size-ptr)
	for i, b := range data {
		if b == 0 {
			return string(data[:i]), nil
		}
	}
	return "", fmt.Errorf("unterminated string at %d", ptr)
}

// ReadPtrArray reads n 4-byte guest pointers starting at ptr.
func (m *guestMemory) ReadPtrArray(ptr uint32, n int) ([]uint32, error) {
	out := make([]uint32, n)
	for i := range out {
		p, err := m.ReadU32(ptr + uint32(4*i))
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
