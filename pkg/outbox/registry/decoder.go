package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bookhaven/bookledger-backend/pkg/enums"
)

type decoderFunc func(payload json.RawMessage) (interface{}, error)

type registryKey struct {
	eventKind enums.LedgerEventKind
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

// NewDecoderRegistry builds an empty decoder registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// Register stores a decoder for the given event kind and version.
func (r *DecoderRegistry) Register(eventKind enums.LedgerEventKind, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventKind: eventKind, version: version}] = decoder
}

// Decode runs the decoder registered for the event kind and version.
func (r *DecoderRegistry) Decode(eventKind enums.LedgerEventKind, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if decoder, ok := r.registry[registryKey{eventKind: eventKind, version: version}]; ok {
		return decoder(payload)
	}
	return nil, fmt.Errorf("decoder not registered for %s@v%d", eventKind, version)
}
