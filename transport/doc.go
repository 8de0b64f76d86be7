// Package transport provides the USB transport used by the engine to
// reach a real device: [LibUSB], backed by github.com/google/gousb, for
// production use, and the [github.com/dagargo/obridge/transport/fake]
// package for tests. Both implement [hal.Transport].
package transport
