package common

import "errors"

// ErrGamePaused is returned by every mutating operation while the
// administrative pause flag is set.
var ErrGamePaused = errors.New("game paused")

// PauseView exposes the pause switches consulted before mutations. The
// canonical implementation reads the treasury aggregate's pause flag.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the module is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrGamePaused
	}
	return nil
}
