// Package providers wires the built-in adapter kinds into a registry.
package providers

import (
	"github.com/iudanet/offsync/internal/adapter"
	"github.com/iudanet/offsync/internal/adapter/httpadapter"
	"github.com/iudanet/offsync/internal/adapter/memory"
)

// Default returns a registry with every built-in provider.
func Default() *adapter.Registry {
	r := adapter.NewRegistry()
	r.Register(adapter.KindMemory, memory.Factory)
	r.Register(adapter.KindHTTP, httpadapter.Factory)
	return r
}
