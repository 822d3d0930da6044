package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/internal/models"
	"comanda/internal/monitoring"
	"comanda/internal/transport"
)

type fakeBackend struct {
	mu           sync.Mutex
	tablesCalls  int
	menuCalls    int
	kitchenCalls int
	accountCalls int
}

func (b *fakeBackend) Tables(ctx context.Context) ([]models.Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tablesCalls++
	return []models.Table{{ID: 5, State: models.TableAvailable}}, nil
}

func (b *fakeBackend) Menu(ctx context.Context) (models.Menu, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.menuCalls++
	return models.Menu{{ID: 3, Name: "Tacos al pastor", Price: 45}}, nil
}

func (b *fakeBackend) KitchenQueue(ctx context.Context) ([]models.OrderItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kitchenCalls++
	return []models.OrderItem{{ID: 42, State: models.TicketPending}}, nil
}

func (b *fakeBackend) Account(ctx context.Context, id int64) (*models.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accountCalls++
	return &models.Account{ID: id, State: models.AccountOpen, GrandTotal: 100}, nil
}

func (b *fakeBackend) calls() (int, int, int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tablesCalls, b.menuCalls, b.kitchenCalls, b.accountCalls
}

type fakeLink struct {
	mu        sync.Mutex
	handlers  []transport.Handler
	connected bool
}

func (l *fakeLink) Subscribe(fn transport.Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, fn)
}

func (l *fakeLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *fakeLink) emit(ev transport.Event) {
	l.mu.Lock()
	handlers := append([]transport.Handler(nil), l.handlers...)
	l.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

func newTestReconciler() (*Reconciler, *fakeBackend, *fakeLink) {
	backend := &fakeBackend{}
	link := &fakeLink{connected: true}
	r := New(backend, link, monitoring.NewMonitor(), time.Hour)
	return r, backend, link
}

func TestTablesEventInvalidatesOnlyTables(t *testing.T) {
	r, backend, link := newTestReconciler()
	ctx := context.Background()

	_, err := r.Tables.Get(ctx)
	require.NoError(t, err)
	_, err = r.Kitchen.Get(ctx)
	require.NoError(t, err)

	link.emit(transport.Event{Name: transport.EventTablesChanged})

	_, err = r.Tables.Get(ctx)
	require.NoError(t, err)
	_, err = r.Kitchen.Get(ctx)
	require.NoError(t, err)

	tables, _, kitchen, _ := backend.calls()
	assert.Equal(t, 2, tables)
	assert.Equal(t, 1, kitchen)
}

func TestKitchenEventInvalidatesKitchen(t *testing.T) {
	r, backend, link := newTestReconciler()
	ctx := context.Background()

	_, err := r.Kitchen.Get(ctx)
	require.NoError(t, err)

	link.emit(transport.Event{Name: transport.EventKitchenNewOrder})

	_, err = r.Kitchen.Get(ctx)
	require.NoError(t, err)

	_, _, kitchen, _ := backend.calls()
	assert.Equal(t, 2, kitchen)
}

func TestReconnectInvalidatesEverything(t *testing.T) {
	r, backend, link := newTestReconciler()
	ctx := context.Background()

	_, err := r.Tables.Get(ctx)
	require.NoError(t, err)
	_, err = r.Menu.Get(ctx)
	require.NoError(t, err)
	_, err = r.Kitchen.Get(ctx)
	require.NoError(t, err)
	_, err = r.Account(40).Get(ctx)
	require.NoError(t, err)

	link.emit(transport.Event{Name: transport.EventConnected})

	_, err = r.Tables.Get(ctx)
	require.NoError(t, err)
	_, err = r.Menu.Get(ctx)
	require.NoError(t, err)
	_, err = r.Kitchen.Get(ctx)
	require.NoError(t, err)
	_, err = r.Account(40).Get(ctx)
	require.NoError(t, err)

	tables, menu, kitchen, accounts := backend.calls()
	assert.Equal(t, 2, tables)
	assert.Equal(t, 2, menu)
	assert.Equal(t, 2, kitchen)
	assert.Equal(t, 2, accounts)
}

func TestAccountCollectionsAreKeyedByID(t *testing.T) {
	r, backend, _ := newTestReconciler()
	ctx := context.Background()

	a, err := r.Account(40).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(40), a.ID)

	// same id reuses the cached collection
	_, err = r.Account(40).Get(ctx)
	require.NoError(t, err)

	b, err := r.Account(41).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(41), b.ID)

	_, _, _, accounts := backend.calls()
	assert.Equal(t, 2, accounts)

	r.InvalidateAccount(40)
	_, err = r.Account(40).Get(ctx)
	require.NoError(t, err)
	_, _, _, accounts = backend.calls()
	assert.Equal(t, 3, accounts)
}

func TestKitchenPollRefreshesOnTimer(t *testing.T) {
	backend := &fakeBackend{}
	link := &fakeLink{connected: true}
	r := New(backend, link, monitoring.NewMonitor(), 10*time.Millisecond)

	r.Start(context.Background())
	defer r.Stop()

	assert.Eventually(t, func() bool {
		_, _, kitchen, _ := backend.calls()
		return kitchen >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestDegradedTracksLink(t *testing.T) {
	r, _, link := newTestReconciler()
	assert.False(t, r.Degraded())

	link.mu.Lock()
	link.connected = false
	link.mu.Unlock()
	assert.True(t, r.Degraded())
}
