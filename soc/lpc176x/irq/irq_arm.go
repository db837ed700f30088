//go:build arm

package irq

// implemented in irq_arm.s
func enableInterrupts()
func disableInterrupts()
