//go:build !windows

package main

import (
	"syscall"

	"github.com/zombor/expense-snap/internal/receipt"
	"github.com/zombor/expense-snap/internal/trigger"
)

// platformTriggers fire a capture on SIGUSR1, e.g. `kill -USR1 <pid>` from a hotkey daemon
func platformTriggers() map[string]receipt.TriggerSource {
	return map[string]receipt.TriggerSource{
		"signal": trigger.NewSignal(syscall.SIGUSR1),
	}
}
