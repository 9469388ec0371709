//go:build !headless
// +build !headless

package graphics

// Test helper methods for accessing internal state during testing

// GetGameForTesting returns the internal game instance for testing purposes
func (w *EbitengineWindow) GetGameForTesting() *EbitengineGame {
	return w.game
}

// GetEmulatorUpdateFuncForTesting returns the emulator update function for testing
func (w *EbitengineWindow) GetEmulatorUpdateFuncForTesting() func() error {
	return w.emulatorUpdateFunc
}

// GetPresentCountForTesting returns how many frames were uploaded
func (w *EbitengineWindow) GetPresentCountForTesting() int {
	if w.game == nil {
		return 0
	}
	return w.game.presentCount
}
