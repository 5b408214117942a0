package app

import (
	"context"
	"time"

	"github.com/kbukum/codecompass/auth/revocation"
	"github.com/kbukum/codecompass/logger"
)

// purgeLoop drops expired revocations every purgeInterval until ctx ends.
// Redis expires its keys itself and needs no sweep.
func (a *App) purgeLoop(ctx context.Context) {
	purge := purgeFunc(a.revoker)
	if purge == nil {
		return
	}
	t := time.NewTicker(a.purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := purge(ctx)
			if err != nil {
				a.Logger.Warn("Revocation purge failed", logger.ErrorFields("purge", err))
				continue
			}
			if n > 0 {
				a.Logger.Debug("Expired revocations purged", logger.Fields("count", n))
			}
		}
	}
}

func purgeFunc(s revocation.Store) func(context.Context) (int64, error) {
	switch st := s.(type) {
	case *revocation.GormStore:
		return st.Purge
	case *revocation.MemoryStore:
		return func(context.Context) (int64, error) { return int64(st.Purge()), nil }
	default:
		return nil
	}
}
