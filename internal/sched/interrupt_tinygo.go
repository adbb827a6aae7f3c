//go:build tinygo

package sched

import "runtime/interrupt"

type irqState = interrupt.State

// disableInterrupts masks interrupts around ready-set mutations so that ScheduleNow
// may be called from an interrupt handler while the main loop steps.
func disableInterrupts() irqState {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state irqState) {
	interrupt.Restore(state)
}
