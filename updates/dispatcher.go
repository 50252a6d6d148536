package updates

import (
	"context"
	"errors"
	"log/slog"

	"github.com/drpcorg/indra"
	"github.com/drpcorg/indra/utils"
	"github.com/prometheus/client_golang/prometheus"
)

var DispatchCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "indra",
	Subsystem: "updates",
	Name:      "dispatch",
}, []string{"result"})

// Dispatcher delivers entity updates to every affected online index
// engine. Resolution and proxy lookup run against the same snapshot, so a
// concurrent publish can never split one dispatch across two versions.
type Dispatcher struct {
	ref *indra.MapRef
	res *Resolver
	log utils.Logger
}

func NewDispatcher(ref *indra.MapRef, log utils.Logger) *Dispatcher {
	if log == nil {
		log = utils.NewDefaultLogger(slog.LevelInfo)
	}
	return &Dispatcher{
		ref: ref,
		res: NewResolver(ref, log),
		log: log,
	}
}

func (d *Dispatcher) Resolver() *Resolver {
	return d.res
}

// Dispatch applies the change to every affected proxy that is online.
// Populating and failed indexes are skipped and counted; they catch up (or
// stay broken) through their own lifecycle, not through this path. Errors
// from individual proxies are joined, and delivery continues past them.
func (d *Dispatcher) Dispatch(ctx context.Context, entity uint64, ch Change) error {
	if ch.Empty() {
		return nil
	}
	snap := d.ref.Current()
	upd := indra.EntityUpdate{
		Entity: entity,
		Labels: ch.ChangedLabels,
		Props:  ch.ChangedProps,
	}
	var errs []error
	for _, ref := range d.res.AffectedOn(snap, ch) {
		proxy, ok := snap.ByDescriptor(ref)
		if !ok {
			continue
		}
		if proxy.State() != indra.StateOnline {
			DispatchCount.WithLabelValues("skipped_offline").Inc()
			continue
		}
		if err := proxy.Apply(ctx, upd); err != nil {
			DispatchCount.WithLabelValues("error").Inc()
			d.log.ErrorCtx(ctx, "index update failed",
				"index", proxy.Id(), "schema", ref.String(), "err", err)
			errs = append(errs, err)
			continue
		}
		DispatchCount.WithLabelValues("applied").Inc()
	}
	return errors.Join(errs...)
}
