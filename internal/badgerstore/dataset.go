package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/specialistvlad/lineagegrid/internal/chunkplan"
	"github.com/specialistvlad/lineagegrid/internal/coords"
	"github.com/specialistvlad/lineagegrid/internal/ctxlog"
	"github.com/specialistvlad/lineagegrid/internal/dtype"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
	"github.com/specialistvlad/lineagegrid/internal/nodestore"
	"github.com/specialistvlad/lineagegrid/internal/source"
	"gopkg.in/yaml.v3"
)

const datasetPrefix = "dataset/"

// datasetDoc is the metadata record stored next to a dataset's chunks.
type datasetDoc struct {
	Name   string            `yaml:"name"`
	Dims   []string          `yaml:"dims"`
	Shape  []int             `yaml:"shape"`
	DType  string            `yaml:"dtype"`
	Chunks [][]int           `yaml:"chunks"`
	Coords []coordDoc        `yaml:"coords,omitempty"`
	Attrs  map[string]string `yaml:"attrs,omitempty"`
}

type coordDoc struct {
	Name   string    `yaml:"name"`
	Dim    string    `yaml:"dim,omitempty"`
	Values []float64 `yaml:"values,flow"`
}

func metaKey(name string) []byte {
	return []byte(datasetPrefix + name + "/meta")
}

func datasetChunkKey(name string, idx []int) []byte {
	return []byte(datasetPrefix + name + "/chunk/" + nodestore.ChunkIndex(idx))
}

// WriteDataset stores data under name, split into the chunks of scheme.
// An existing dataset with the same name is replaced chunk by chunk.
func WriteDataset(ctx context.Context, db *badger.DB, name string, meta source.Meta, data *ndarray.Array, scheme chunkplan.Scheme) error {
	logger := ctxlog.FromContext(ctx)
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid dataset name %q", name)
	}
	if !ndarray.Resolved(data.Shape) {
		return fmt.Errorf("dataset '%s': shape %v is not resolved", name, data.Shape)
	}
	if err := scheme.Validate(meta.Dims, data.Shape); err != nil {
		return fmt.Errorf("dataset '%s': %w", name, err)
	}

	doc := datasetDoc{
		Name:   meta.Name,
		Dims:   meta.Dims,
		Shape:  data.Shape,
		DType:  data.DType.String(),
		Chunks: scheme.Extents,
		Attrs:  meta.Attrs,
	}
	for _, n := range meta.Coords.Names() {
		c := meta.Coords[n]
		doc.Coords = append(doc.Coords, coordDoc{Name: c.Name, Dim: c.Dim, Values: c.Values})
	}
	encoded, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("dataset '%s': encode metadata: %w", name, err)
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()
	for _, idx := range scheme.Indices() {
		if err := ctx.Err(); err != nil {
			return err
		}
		block, err := data.Block(scheme.Region(idx))
		if err != nil {
			return fmt.Errorf("dataset '%s': chunk %v: %w", name, idx, err)
		}
		if err := wb.Set(datasetChunkKey(name, idx), encodeBlock(block)); err != nil {
			return fmt.Errorf("dataset '%s': chunk %v: %w", name, idx, err)
		}
	}
	if err := wb.Set(metaKey(name), encoded); err != nil {
		return fmt.Errorf("dataset '%s': metadata: %w", name, err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("dataset '%s': %w", name, err)
	}
	logger.Debug("Dataset written.", "dataset", name, "chunks", scheme.ChunkCount(), "scheme", scheme.String())
	return nil
}

// Dataset is a chunked array stored in BadgerDB. Reads only touch the
// chunks that overlap the requested region.
type Dataset struct {
	db     *badger.DB
	name   string
	meta   source.Meta
	scheme chunkplan.Scheme
}

// OpenDataset reads the metadata of the named dataset.
func OpenDataset(db *badger.DB, name string) (*Dataset, error) {
	var doc datasetDoc
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return yaml.Unmarshal(val, &doc)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("no dataset named '%s'", name)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset '%s': %w", name, err)
	}

	dt, err := dtype.Parse(doc.DType)
	if err != nil {
		return nil, fmt.Errorf("dataset '%s': %w", name, err)
	}
	meta := source.Meta{
		Name:   doc.Name,
		Dims:   doc.Dims,
		Shape:  doc.Shape,
		DType:  dt,
		Coords: coords.Set{},
		Attrs:  doc.Attrs,
	}
	if meta.Dims == nil {
		meta.Dims, meta.Shape = []string{}, []int{}
	}
	if meta.Name == "" {
		meta.Name = name
	}
	for _, c := range doc.Coords {
		meta.Coords[c.Name] = coords.Coord{Name: c.Name, Dim: c.Dim, Values: c.Values}
	}
	scheme := chunkplan.Scheme{Dims: meta.Dims, Extents: doc.Chunks}
	if err := scheme.Validate(meta.Dims, meta.Shape); err != nil {
		return nil, fmt.Errorf("dataset '%s': %w", name, err)
	}
	return &Dataset{db: db, name: name, meta: meta, scheme: scheme}, nil
}

// Meta implements source.Source.
func (d *Dataset) Meta() source.Meta {
	return d.meta.Clone()
}

// Scheme returns the chunking the dataset was written with.
func (d *Dataset) Scheme() chunkplan.Scheme {
	return d.scheme
}

// ReadRegion implements source.Source.
func (d *Dataset) ReadRegion(ctx context.Context, r ndarray.Region) (*ndarray.Array, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.Validate(d.meta.Shape); err != nil {
		return nil, fmt.Errorf("dataset '%s': %w", d.name, err)
	}
	out := ndarray.New(d.meta.DType, r.Shape())
	if out.Len() == 0 {
		return out, nil
	}

	err := d.db.View(func(txn *badger.Txn) error {
		for _, idx := range d.scheme.Overlapping(r) {
			chunk := d.scheme.Region(idx)
			inter, ok := r.Intersect(chunk)
			if !ok {
				continue
			}
			item, err := txn.Get(datasetChunkKey(d.name, idx))
			if err != nil {
				return fmt.Errorf("chunk %v: %w", idx, err)
			}
			var block *ndarray.Array
			if err := item.Value(func(val []byte) error {
				block, err = decodeBlock(val)
				return err
			}); err != nil {
				return fmt.Errorf("chunk %v: %w", idx, err)
			}
			ndarray.CopyRegion(out, inter.Translate(r.Start).Start, block, inter.Translate(chunk.Start).Start, inter.Shape())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset '%s': %w", d.name, err)
	}
	return out, nil
}

// Opener returns the badger://<name> source opener backed by db.
func Opener(db *badger.DB) source.Opener {
	return func(_ context.Context, u *url.URL) (source.Source, error) {
		return OpenDataset(db, strings.TrimSuffix(u.Host+u.Path, "/"))
	}
}

var _ source.Source = (*Dataset)(nil)
