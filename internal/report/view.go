package report

import (
	"context"

	"go.uber.org/zap"
)

// View serve o relatório pelo cache quando possível.
// Cache é opcional; falhas de cache só geram log.
type View struct {
	Log     *zap.Logger
	Builder *Builder
	Cache   SnapshotCache

	OnCacheHit  func()
	OnCacheMiss func()
}

func NewView(log *zap.Logger, b *Builder, c SnapshotCache) *View {
	return &View{Log: log, Builder: b, Cache: c}
}

// Get devolve o snapshot em cache ou monta um novo e guarda
func (v *View) Get(ctx context.Context) (Snapshot, error) {
	if v.Cache != nil {
		s, ok, err := v.Cache.Get(ctx)
		if err != nil {
			v.Log.Warn("report cache get failed", zap.Error(err))
		} else if ok {
			if v.OnCacheHit != nil {
				v.OnCacheHit()
			}
			return s, nil
		}
		if v.OnCacheMiss != nil {
			v.OnCacheMiss()
		}
	}
	return v.Refresh(ctx)
}

// Refresh remonta o snapshot a partir do ledger e atualiza o cache
func (v *View) Refresh(ctx context.Context) (Snapshot, error) {
	s, err := v.Builder.Build(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if v.Cache != nil {
		if err := v.Cache.Set(ctx, s); err != nil {
			v.Log.Warn("report cache set failed", zap.Error(err))
		}
	}
	return s, nil
}

// Invalidate descarta o snapshot em cache
func (v *View) Invalidate(ctx context.Context) error {
	if v.Cache == nil {
		return nil
	}
	return v.Cache.Invalidate(ctx)
}
