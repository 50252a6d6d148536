// Package catalog is the persistent source of truth for index definitions.
// The registry itself is never persisted; at startup the catalog is scanned
// once and the first IndexMap snapshot is rebuilt from it.
package catalog

import (
	"encoding/binary"
	"iter"
	"log/slog"

	"github.com/cockroachdb/pebble"
	"github.com/drpcorg/indra"
	"github.com/drpcorg/indra/schema"
	"github.com/drpcorg/indra/utils"
	"github.com/google/uuid"
	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/learn-decentralized-systems/toytlv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrIndexUnknown = errors.New("indra: unknown index definition")
	ErrBadRecord    = errors.New("indra: bad catalog record")
)

var OpCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "indra",
	Subsystem: "catalog",
	Name:      "ops",
}, []string{"op"})

type Options struct {
	Logger       utils.Logger
	WriteOptions *pebble.WriteOptions
}

// Catalog stores one record per index definition in pebble. It has no
// notion of snapshots; the bookkeeping layer above owns those.
type Catalog struct {
	db      *pebble.DB
	dir     string
	session uuid.UUID
	log     utils.Logger
	wo      *pebble.WriteOptions
}

func Open(dir string, opts Options) (*Catalog, error) {
	if opts.Logger == nil {
		opts.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "catalog: pebble open failed")
	}
	c := &Catalog{
		db:      db,
		dir:     dir,
		session: uuid.New(),
		log:     opts.Logger,
		wo:      opts.WriteOptions,
	}
	c.log.Info("catalog open", "dir", dir, "session", c.session.String())
	return c, nil
}

func (c *Catalog) Close() error {
	c.log.Info("catalog close", "dir", c.dir, "session", c.session.String())
	return c.db.Close()
}

func defKey(id uint64) []byte {
	key := []byte{'I', 'D'}
	key = binary.BigEndian.AppendUint64(key, id)
	key = append(key, 'E')
	return key
}

func defKeyId(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[2:10])
}

func defValue(ref schema.Ref) []byte {
	val := toytlv.Record('L', binary.BigEndian.AppendUint32(nil, ref.Label()))
	for _, prop := range ref.PropIds() {
		val = append(val, toytlv.Record('P', binary.BigEndian.AppendUint32(nil, prop))...)
	}
	return val
}

func parseDef(val []byte) (schema.Ref, error) {
	lbody, rest, err := toytlv.TakeWary('L', val)
	if err != nil || len(lbody) != 4 {
		return schema.Ref{}, ErrBadRecord
	}
	label := binary.BigEndian.Uint32(lbody)
	props := make([]uint32, 0, 4)
	for len(rest) > 0 {
		var pbody []byte
		pbody, rest, err = toytlv.TakeWary('P', rest)
		if err != nil || len(pbody) != 4 {
			return schema.Ref{}, ErrBadRecord
		}
		props = append(props, binary.BigEndian.Uint32(pbody))
	}
	ref, err := schema.NewRef(label, props...)
	if err != nil {
		return schema.Ref{}, ErrBadRecord
	}
	return ref, nil
}

func (c *Catalog) Put(id uint64, ref schema.Ref) error {
	OpCount.WithLabelValues("put").Inc()
	return c.db.Set(defKey(id), defValue(ref), c.wo)
}

func (c *Catalog) Get(id uint64) (schema.Ref, error) {
	OpCount.WithLabelValues("get").Inc()
	val, closer, err := c.db.Get(defKey(id))
	if closer != nil {
		defer closer.Close()
	}
	if err == pebble.ErrNotFound {
		return schema.Ref{}, ErrIndexUnknown
	}
	if err != nil {
		return schema.Ref{}, err
	}
	return parseDef(val)
}

func (c *Catalog) Delete(id uint64) error {
	OpCount.WithLabelValues("delete").Inc()
	return c.db.Delete(defKey(id), c.wo)
}

// Range yields every definition in id order. Malformed records are logged
// and skipped rather than aborting the scan.
func (c *Catalog) Range() iter.Seq2[uint64, schema.Ref] {
	return func(yield func(id uint64, ref schema.Ref) bool) {
		it, err := c.db.NewIter(&pebble.IterOptions{
			LowerBound: []byte{'I', 'D'},
			UpperBound: []byte{'I', 'E'},
		})
		if err != nil {
			c.log.Error("catalog iterator failed", "err", err)
			return
		}
		defer it.Close()
		for valid := it.First(); valid; valid = it.Next() {
			ref, err := parseDef(it.Value())
			if err != nil {
				c.log.Error("skipping bad catalog record", "id", defKeyId(it.Key()), "err", err)
				continue
			}
			if !yield(defKeyId(it.Key()), ref) {
				return
			}
		}
	}
}

func (c *Catalog) Count() (n int) {
	for range c.Range() {
		n++
	}
	return n
}

// Export dumps the catalog as a stream of self-contained TLV records, one
// per definition, for backup or shipping to another node.
func (c *Catalog) Export() (toyqueue.Records, error) {
	recs := toyqueue.Records{}
	for id, ref := range c.Range() {
		body := toytlv.Record('A', binary.BigEndian.AppendUint64(nil, id))
		body = append(body, defValue(ref)...)
		recs = append(recs, toytlv.Record('I', body))
	}
	OpCount.WithLabelValues("export").Inc()
	return recs, nil
}

// Import replays an Export stream. Existing ids are overwritten.
func (c *Catalog) Import(recs toyqueue.Records) error {
	for _, rec := range recs {
		body, _, err := toytlv.TakeWary('I', rec)
		if err != nil {
			return ErrBadRecord
		}
		abody, rest, err := toytlv.TakeWary('A', body)
		if err != nil || len(abody) != 8 {
			return ErrBadRecord
		}
		ref, err := parseDef(rest)
		if err != nil {
			return err
		}
		if err := c.Put(binary.BigEndian.Uint64(abody), ref); err != nil {
			return err
		}
	}
	OpCount.WithLabelValues("import").Inc()
	return nil
}

// ProxyFactory gives the embedding kernel a chance to attach the real
// engine handle for each definition found at bootstrap.
type ProxyFactory func(id uint64, ref schema.Ref) indra.IndexProxy

// Bootstrap scans the catalog and builds the first registry snapshot.
func (c *Catalog) Bootstrap(factory ProxyFactory) (*indra.IndexMap, error) {
	byId := make(map[uint64]indra.IndexProxy)
	for id, ref := range c.Range() {
		byId[id] = factory(id, ref)
	}
	c.log.Info("catalog bootstrap", "indexes", len(byId), "session", c.session.String())
	return indra.NewIndexMapOf(byId), nil
}

// Collectors returns the catalog metrics for registration by the embedding
// process.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{OpCount}
}
