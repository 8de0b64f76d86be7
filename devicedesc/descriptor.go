// Package devicedesc provides the lookup table that maps a device's USB
// vendor/product pair to its channel layout. The engine only opens a
// device and reads its wire format; it never negotiates channel counts,
// sample rate, or block size — those are dictated entirely by whichever
// [Desc] the table returns for the device it found.
//
// Enumerating every supported device is outside the engine's concerns;
// callers embedding the engine are expected to supply their own [Table],
// typically loaded from a config file or a generated constant map. This
// package's [Static] type is a minimal in-memory implementation good
// enough for tests and small deployments.
package devicedesc

import "sync"

// Desc describes one supported device: its human-readable name and the
// audio channel counts it exposes over USB. Inputs and Outputs are named
// from the device's point of view, matching the engine's data model
// (Inputs are what the host sends to the device on p2o, Outputs are what
// the device sends to the host on o2p).
type Desc struct {
	Name    string
	Inputs  int
	Outputs int
}

// Table looks up a device descriptor by vendor and product ID.
type Table interface {
	Lookup(vendor, product uint16) (Desc, bool)
}

// Static is a Table backed by an in-memory map, safe for concurrent reads
// and registration.
type Static struct {
	mu   sync.RWMutex
	byID map[uint32]Desc
}

// NewStatic creates an empty table.
func NewStatic() *Static {
	return &Static{byID: make(map[uint32]Desc)}
}

func key(vendor, product uint16) uint32 {
	return uint32(vendor)<<16 | uint32(product)
}

// Register adds or replaces the descriptor for a vendor/product pair.
func (s *Static) Register(vendor, product uint16, desc Desc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[key(vendor, product)] = desc
}

// Lookup implements [Table].
func (s *Static) Lookup(vendor, product uint16) (Desc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[key(vendor, product)]
	return d, ok
}

var _ Table = (*Static)(nil)
