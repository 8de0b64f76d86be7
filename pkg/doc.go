// Package pkg provides shared utilities used across the transport and
// engine packages: structured logging via [go.uber.org/zap], the engine's
// fixed error-code taxonomy, and a spin-lock for the O(1) critical
// sections shared between the audio and MIDI threads.
//
// # Logging
//
//	pkg.LogInfo(pkg.ComponentEngine, "activated", zap.Int("blocks", 8))
//
// # Errors
//
// Init and activation failures are reported as a [Code], which is a total
// function to a fixed diagnostic string via [Code.String]:
//
//	if code != pkg.CodeOK {
//	    return fmt.Errorf("engine init: %s", code)
//	}
package pkg
