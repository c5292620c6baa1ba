package realtime

import (
	"context"

	"catchkit/core"
	"catchkit/engine"
)

// Observed decorates a shared store so every successful write is broadcast.
type Observed struct {
	engine.SharedStore
	hub *Hub
}

// ObservedConditional is Observed for stores that also support WriteIfGreater.
type ObservedConditional struct {
	*Observed
	cw engine.ConditionalWriter
}

// Observe wraps store. The result implements engine.ConditionalWriter only
// when store does.
func Observe(store engine.SharedStore, hub *Hub) engine.SharedStore {
	o := &Observed{SharedStore: store, hub: hub}
	if cw, ok := store.(engine.ConditionalWriter); ok {
		return &ObservedConditional{Observed: o, cw: cw}
	}
	return o
}

func (o *Observed) Write(ctx context.Context, path core.Path, value any) error {
	if err := o.SharedStore.Write(ctx, path, value); err != nil {
		return err
	}
	v, err := core.NormalizeValue(value)
	if err != nil {
		v = value
	}
	o.hub.Broadcast(ctx, core.NewChange(path, v))
	return nil
}

func (o *ObservedConditional) WriteIfGreater(ctx context.Context, path core.Path, value int64) (int64, bool, error) {
	cur, written, err := o.cw.WriteIfGreater(ctx, path, value)
	if err == nil && written {
		o.hub.Broadcast(ctx, core.NewChange(path, cur))
	}
	return cur, written, err
}
