//go:build !(386 || arm || mips || mipsle)

package input

// eventTime is the kernel's long.
type eventTime = int64
