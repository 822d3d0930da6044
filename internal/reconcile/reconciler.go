package reconcile

import (
	"context"
	"log"
	"sync"
	"time"

	"comanda/internal/cache"
	"comanda/internal/models"
	"comanda/internal/monitoring"
	"comanda/internal/transport"
)

// Backend is the snapshot side of the command client consumed by the loop
type Backend interface {
	Tables(ctx context.Context) ([]models.Table, error)
	Menu(ctx context.Context) (models.Menu, error)
	KitchenQueue(ctx context.Context) ([]models.OrderItem, error)
	Account(ctx context.Context, id int64) (*models.Account, error)
}

// Link is the event channel the loop subscribes to
type Link interface {
	Subscribe(transport.Handler)
	Connected() bool
}

// Reconciler keeps every cached collection converging on authoritative
// state: push events and command completions invalidate, a fallback timer
// covers the latency-sensitive kitchen queue, and the next read refetches.
// It never blocks a command call and never patches cache content in place.
type Reconciler struct {
	Tables  *cache.Collection[[]models.Table]
	Menu    *cache.Collection[models.Menu]
	Kitchen *cache.Collection[[]models.OrderItem]

	backend Backend
	link    Link
	monitor *monitoring.Monitor

	accountsMu sync.Mutex
	accounts   map[int64]*cache.Collection[*models.Account]

	kitchenPoll time.Duration
	cancel      context.CancelFunc
	done        chan struct{}
}

// New wires the collections to their loaders and subscribes to the link.
// kitchenPoll is the fixed fallback refresh period for the kitchen queue.
func New(backend Backend, link Link, monitor *monitoring.Monitor, kitchenPoll time.Duration) *Reconciler {
	r := &Reconciler{
		backend:     backend,
		link:        link,
		monitor:     monitor,
		accounts:    make(map[int64]*cache.Collection[*models.Account]),
		kitchenPoll: kitchenPoll,
	}

	r.Tables = cache.NewCollection("tables", func(ctx context.Context) ([]models.Table, error) {
		tables, err := backend.Tables(ctx)
		if err == nil {
			monitor.RecordRefresh("tables")
		}
		return tables, err
	})
	r.Menu = cache.NewCollection("menu", func(ctx context.Context) (models.Menu, error) {
		menu, err := backend.Menu(ctx)
		if err == nil {
			monitor.RecordRefresh("menu")
		}
		return menu, err
	})
	r.Kitchen = cache.NewCollection("kitchen", func(ctx context.Context) ([]models.OrderItem, error) {
		items, err := backend.KitchenQueue(ctx)
		if err == nil {
			monitor.RecordRefresh("kitchen")
		}
		return items, err
	})

	link.Subscribe(r.handleEvent)
	return r
}

// Account returns the cached detail collection for one account, creating it
// stale on first use
func (r *Reconciler) Account(id int64) *cache.Collection[*models.Account] {
	r.accountsMu.Lock()
	defer r.accountsMu.Unlock()
	if col, ok := r.accounts[id]; ok {
		return col
	}
	col := cache.NewCollection("account", func(ctx context.Context) (*models.Account, error) {
		account, err := r.backend.Account(ctx, id)
		if err == nil {
			r.monitor.RecordRefresh("account")
		}
		return account, err
	})
	r.accounts[id] = col
	return col
}

// InvalidateAccount marks one account detail stale; used after order
// submission and settlement
func (r *Reconciler) InvalidateAccount(id int64) {
	r.accountsMu.Lock()
	col, ok := r.accounts[id]
	r.accountsMu.Unlock()
	if ok {
		col.Invalidate()
	}
}

// InvalidateAll marks every collection stale. Run after reconnection to
// close any gap the outage opened.
func (r *Reconciler) InvalidateAll() {
	r.Tables.Invalidate()
	r.Menu.Invalidate()
	r.Kitchen.Invalidate()
	r.accountsMu.Lock()
	for _, col := range r.accounts {
		col.Invalidate()
	}
	r.accountsMu.Unlock()
}

func (r *Reconciler) handleEvent(ev transport.Event) {
	switch ev.Name {
	case transport.EventTablesChanged:
		r.monitor.RecordEvent(ev.Name)
		r.Tables.Invalidate()
	case transport.EventKitchenNewOrder:
		r.monitor.RecordEvent(ev.Name)
		r.Kitchen.Invalidate()
	case transport.EventConnected:
		r.monitor.RecordConnect()
		r.InvalidateAll()
	}
}

// Start runs the fallback timer loop until the context ends. The kitchen
// queue refreshes on a fixed period regardless of link state; other views
// rely on push events and become manually refreshable while the link is
// down.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.kitchenPoll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Kitchen.Invalidate()
				if _, err := r.Kitchen.Get(ctx); err != nil {
					log.Printf("reconcile: kitchen poll failed: %v", err)
				}
			}
		}
	}()
}

// Stop ends the timer loop and waits for it to exit
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// Degraded reports whether the push channel is down and non-kitchen views
// need manual refreshing
func (r *Reconciler) Degraded() bool {
	return !r.link.Connected()
}
