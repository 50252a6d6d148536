package indra

import (
	"context"

	"github.com/drpcorg/indra/schema"
)

type IndexState byte

const (
	StatePopulating IndexState = 'P'
	StateOnline     IndexState = 'O'
	StateFailed     IndexState = 'F'
)

// EntityUpdate describes one entity change handed to an index engine:
// which entity, which of its labels were touched and which property keys
// changed value. Values themselves stay behind the proxy.
type EntityUpdate struct {
	Entity uint64
	Labels []uint32
	Props  []uint32
}

// IndexProxy is the handle to one live index engine. The registry stores
// proxies but never drives their lifecycle; population, sampling and
// queries all live behind this boundary. Proxies are shared by reference
// between a snapshot and its clones and must stay immutable from the
// registry's point of view.
type IndexProxy interface {
	Id() uint64
	Schema() schema.Ref
	State() IndexState
	Apply(ctx context.Context, upd EntityUpdate) error
}
