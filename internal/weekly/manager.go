// Package weekly keeps exactly one weekly list active and decides which catalog customers see.
package weekly

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/auth"
	"github.com/ariefcatur/go-weekly-orders/internal/metrics"
)

const defaultHistoryLimit = 52

type Manager struct {
	Store      Store
	Categories CategorySource
	Log        logrus.FieldLogger
}

func (m *Manager) log() logrus.FieldLogger {
	if m.Log == nil {
		return logrus.StandardLogger()
	}
	return m.Log
}

func authorize(capa auth.Capability, action string) error {
	if !capa.Allows(auth.ScopeLists) {
		return fmt.Errorf("%w: %s needs the lists scope", apperr.ErrForbidden, action)
	}
	return nil
}

// Publish deactivates whatever list is active and activates a new one with the given
// products, all in one transaction. A concurrent publish that loses the race gets ErrConflict.
func (m *Manager) Publish(ctx context.Context, capa auth.Capability, in PublishInput) (List, error) {
	if err := authorize(capa, "publish"); err != nil {
		return List{}, err
	}
	if err := in.Normalize(); err != nil {
		metrics.ListPublished("invalid")
		return List{}, err
	}

	var (
		created    List
		superseded int64
	)
	err := m.Store.InTx(ctx, func(tx Tx) error {
		states, err := tx.ProductStates(ctx, in.ProductIDs)
		if err != nil {
			return err
		}
		for _, id := range in.ProductIDs {
			active, ok := states[id]
			if !ok {
				return apperr.UnknownProduct(id)
			}
			if !active {
				return apperr.Invalid("product_ids", fmt.Sprintf("product %d is inactive", id))
			}
		}

		if superseded, err = tx.DeactivateAll(ctx); err != nil {
			return err
		}
		if created, err = tx.InsertList(ctx, in.WeekStart, in.WeekEnd); err != nil {
			return err
		}
		return tx.InsertItems(ctx, created.ID, in.ProductIDs)
	})
	if err != nil {
		metrics.ListPublished(resultOf(err))
		return List{}, err
	}

	metrics.ListPublished("ok")
	m.log().WithFields(logrus.Fields{
		"list_id":    created.ID,
		"week_start": created.WeekStart.String(),
		"week_end":   created.WeekEnd.String(),
		"products":   len(in.ProductIDs),
		"superseded": superseded,
		"by":         capa.Subject(),
	}).Info("weekly list published")
	return created, nil
}

// Close stops a list from taking orders without deactivating it. Closing a closed or
// superseded list changes nothing and is not an error.
func (m *Manager) Close(ctx context.Context, capa auth.Capability, id int64) (List, error) {
	if err := authorize(capa, "close"); err != nil {
		return List{}, err
	}

	var (
		out     List
		changed bool
	)
	err := m.Store.InTx(ctx, func(tx Tx) error {
		l, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(l.State(), StateClosed) {
			out = l
			return nil
		}
		out, err = tx.MarkClosed(ctx, id)
		changed = err == nil
		return err
	})
	if err != nil {
		return List{}, err
	}
	if changed {
		m.log().WithFields(logrus.Fields{"list_id": id, "by": capa.Subject()}).Info("weekly list closed")
	}
	return out, nil
}

// CloseExpired closes the active list once its week_end is before now's date. It reports
// whether anything was closed.
func (m *Manager) CloseExpired(ctx context.Context, capa auth.Capability, now time.Time) (List, bool, error) {
	if err := authorize(capa, "close"); err != nil {
		return List{}, false, err
	}

	var (
		out    List
		closed bool
	)
	err := m.Store.InTx(ctx, func(tx Tx) error {
		l, ok, err := tx.LockActive(ctx)
		if err != nil || !ok {
			return err
		}
		if !CanTransition(l.State(), StateClosed) || !l.Expired(now) {
			return nil
		}
		if out, err = tx.MarkClosed(ctx, l.ID); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		return List{}, false, err
	}
	if closed {
		m.log().WithFields(logrus.Fields{
			"list_id":  out.ID,
			"week_end": out.WeekEnd.String(),
			"by":       capa.Subject(),
		}).Info("expired weekly list closed")
	}
	return out, closed, nil
}

// CurrentCatalog returns the active list with its active members. ok is false when no list
// is active, which is the normal state between publishing cycles.
func (m *Manager) CurrentCatalog(ctx context.Context) (cur Current, ok bool, err error) {
	l, ok, err := m.Store.Active(ctx)
	if err != nil || !ok {
		return Current{}, false, err
	}
	members, err := m.Store.Members(ctx, l.ID)
	if err != nil {
		return Current{}, false, err
	}
	cats, err := m.Categories.ListCategories(ctx)
	if err != nil {
		return Current{}, false, err
	}
	return BuildCatalog(l, cats, members), true, nil
}

// History lists weekly lists newest first. limit <= 0 means the last year of lists.
func (m *Manager) History(ctx context.Context, limit int) ([]List, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return m.Store.History(ctx, limit)
}

func (m *Manager) Get(ctx context.Context, id int64) (List, error) {
	return m.Store.Get(ctx, id)
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrUnknownProduct):
		return "invalid"
	default:
		return "error"
	}
}
