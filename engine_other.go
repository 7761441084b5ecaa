//go:build !darwin

package coreaudio

// On non-darwin platforms the simulated engine stands in for the native
// frameworks, so code against this package still builds and runs.
var sharedSimEngine = newSimEngine()

func defaultEngine() audioEngine {
	return sharedSimEngine
}
