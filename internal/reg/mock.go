package reg

import "sync"

// mockBus backs the register space with an in-memory map, letting package
// tests across soc/lpc176x exercise register-level logic without real
// hardware addresses.
type mockBus struct {
	mu   sync.Mutex
	mem  map[uint32]uint32
}

func (m *mockBus) read(addr uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem[addr]
}

func (m *mockBus) write(addr uint32, val uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mem[addr] = val
}

// UseMock installs an in-memory register bank in place of direct memory
// access and returns a restore function. Intended for _test.go files only.
func UseMock() (restore func()) {
	prev := bus
	m := &mockBus{mem: make(map[uint32]uint32)}
	bus = m
	return func() { bus = prev }
}

// Poke sets a raw register value in the currently installed mock bank. It
// panics if the direct (real hardware) bus is active.
func Poke(addr uint32, val uint32) {
	m, ok := bus.(*mockBus)
	if !ok {
		panic("reg: Poke requires UseMock")
	}
	m.write(addr, val)
}

// Peek reads a raw register value from the currently installed mock bank.
func Peek(addr uint32) uint32 {
	m, ok := bus.(*mockBus)
	if !ok {
		panic("reg: Peek requires UseMock")
	}
	return m.read(addr)
}
