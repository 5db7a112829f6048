//go:build windows

package main

import (
	"github.com/zombor/expense-snap/internal/receipt"
	"github.com/zombor/expense-snap/internal/trigger"
)

// platformTriggers fire a capture on Shift+Enter; Windows has no user signals
func platformTriggers() map[string]receipt.TriggerSource {
	return map[string]receipt.TriggerSource{
		"hotkey": trigger.NewHotkey(),
	}
}
