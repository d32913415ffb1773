package main

import (
	"context"
	"fmt"

	docmap "github.com/alnah/go-docmap"
)

// Exporter is the interface for the export engine.
type Exporter interface {
	Export(ctx context.Context, req docmap.Request) (*docmap.Result, error)
}

// Compile-time interface implementation check.
var _ Exporter = (*docmap.Exporter)(nil)

// Pool abstracts exporter pool operations for testability.
type Pool interface {
	Acquire() (Exporter, error)
	Release(Exporter)
	Size() int
}

// poolAdapter adapts *docmap.ExporterPool to the Pool interface.
type poolAdapter struct {
	pool *docmap.ExporterPool
}

// Compile-time check that poolAdapter implements Pool.
var _ Pool = (*poolAdapter)(nil)

func (a *poolAdapter) Acquire() (Exporter, error) {
	exp, err := a.pool.Acquire()
	if err != nil {
		return nil, err
	}
	return exp, nil
}

// Release returns an exporter to the pool. Panics if handed a value
// that did not come from Acquire: that is a programmer error.
func (a *poolAdapter) Release(e Exporter) {
	exp, ok := e.(*docmap.Exporter)
	if !ok {
		panic(fmt.Sprintf("pool adapter: unexpected type %T", e))
	}
	a.pool.Release(exp)
}

func (a *poolAdapter) Size() int {
	return a.pool.Size()
}

// resolveWorkers determines pool capacity. DOCMAP_WORKERS wins when
// set; otherwise sizing follows the engine's automatic rule.
func resolveWorkers(env *envConfig) int {
	return docmap.ResolvePoolSize(env.Workers)
}
