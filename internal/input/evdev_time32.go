//go:build 386 || arm || mips || mipsle

package input

// eventTime is the kernel's long: 32 bits here, as on 32-bit Raspberry Pi OS.
type eventTime = int32
