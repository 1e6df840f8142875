package ledger_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appledger "github.com/jhoicas/kardex-api/internal/application/ledger"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria: un TxRunner que emula la serialización por fila y la
// atomicidad commit/rollback del runner real, con staging de cambios que
// solo se aplican si fn retorna nil.
// ──────────────────────────────────────────────────────────────────────────────

const (
	prodID  = "prod-1"
	whA     = "bodega-a"
	whB     = "bodega-b"
	actorID = "user-1"
)

func stockKey(productID, warehouseID string) string {
	return productID + "|" + warehouseID
}

type memStore struct {
	mu           sync.Mutex
	stocks       map[string]*entity.Stock
	movements    []*entity.Movement
	reservations []*entity.ReservationLog
}

func newMemStore() *memStore {
	return &memStore{stocks: map[string]*entity.Stock{}}
}

type memTx struct {
	store *memStore

	stagedStocks map[string]*entity.Stock
	stagedMovs   []*entity.Movement
	stagedRes    []*entity.ReservationLog

	failMovementCreate error
}

func (tx *memTx) commit() {
	for k, s := range tx.stagedStocks {
		cp := *s
		tx.store.stocks[k] = &cp
	}
	tx.store.movements = append(tx.store.movements, tx.stagedMovs...)
	tx.store.reservations = append(tx.store.reservations, tx.stagedRes...)
}

// txStockRepo fila "bloqueada" = copia staged; el mutex del store hace de
// SELECT FOR UPDATE serializando transacciones completas.
type txStockRepo struct{ tx *memTx }

func (r *txStockRepo) Get(ctx context.Context, productID, warehouseID string) (*entity.Stock, error) {
	if s, ok := r.tx.stagedStocks[stockKey(productID, warehouseID)]; ok {
		cp := *s
		return &cp, nil
	}
	s, ok := r.tx.store.stocks[stockKey(productID, warehouseID)]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *txStockRepo) GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.Stock, error) {
	key := stockKey(productID, warehouseID)
	if s, ok := r.tx.stagedStocks[key]; ok {
		return s, nil
	}
	var staged entity.Stock
	if s, ok := r.tx.store.stocks[key]; ok {
		staged = *s
	} else {
		// Creación implícita de la fila en cero, como el repo real.
		staged = *entity.NewStock(productID, warehouseID, time.Now())
	}
	r.tx.stagedStocks[key] = &staged
	return &staged, nil
}

func (r *txStockRepo) Update(ctx context.Context, stock *entity.Stock) error {
	r.tx.stagedStocks[stockKey(stock.ProductID, stock.WarehouseID)] = stock
	return nil
}

func (r *txStockRepo) ListLowStock(ctx context.Context, warehouseID string) ([]repository.LowStockItem, error) {
	return nil, nil
}

type txMovementRepo struct{ tx *memTx }

func (r *txMovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if r.tx.failMovementCreate != nil {
		return r.tx.failMovementCreate
	}
	r.tx.stagedMovs = append(r.tx.stagedMovs, m)
	return nil
}

func (r *txMovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	return nil, nil
}

func (r *txMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	return nil, nil
}

func (r *txMovementRepo) ListForReplay(ctx context.Context, productID, warehouseID string) ([]*entity.Movement, error) {
	return nil, nil
}

type txReservationRepo struct{ tx *memTx }

func (r *txReservationRepo) Create(ctx context.Context, log *entity.ReservationLog) error {
	r.tx.stagedRes = append(r.tx.stagedRes, log)
	return nil
}

func (r *txReservationRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.ReservationLog, error) {
	return nil, nil
}

type memTxRunner struct {
	store    *memStore
	products *memProductRepo

	// fallos inyectables
	conflictsBeforeSuccess int32 // devuelve ErrConcurrencyConflict N veces
	failMovementCreate     error
}

func (r *memTxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos appledger.TxRepos) error) error {
	if atomic.LoadInt32(&r.conflictsBeforeSuccess) > 0 {
		atomic.AddInt32(&r.conflictsBeforeSuccess, -1)
		return domain.ErrConcurrencyConflict
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx := &memTx{
		store:              r.store,
		stagedStocks:       map[string]*entity.Stock{},
		failMovementCreate: r.failMovementCreate,
	}
	repos := appledger.TxRepos{
		Stock:        &txStockRepo{tx: tx},
		Movements:    &txMovementRepo{tx: tx},
		Reservations: &txReservationRepo{tx: tx},
		Products:     r.products,
	}
	if err := fn(ctx, repos); err != nil {
		return err // rollback: los cambios staged se descartan
	}
	tx.commit()
	return nil
}

// Repos de referencia fuera de la transacción.

type memProductRepo struct {
	mu       sync.Mutex
	products map[string]*entity.Product
}

func (r *memProductRepo) Create(ctx context.Context, p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

func (r *memProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	return nil, nil
}

func (r *memProductRepo) Update(ctx context.Context, p *entity.Product) error {
	return r.Create(ctx, p)
}

func (r *memProductRepo) UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[productID]; ok {
		p.Cost = cost
	}
	return nil
}

func (r *memProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	return nil, nil
}

type memWarehouseRepo struct{ warehouses map[string]*entity.Warehouse }

func (r *memWarehouseRepo) Create(ctx context.Context, w *entity.Warehouse) error {
	r.warehouses[w.ID] = w
	return nil
}

func (r *memWarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	w, ok := r.warehouses[id]
	if !ok {
		return nil, nil
	}
	return w, nil
}

func (r *memWarehouseRepo) List(ctx context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	return nil, nil
}

type memUserRepo struct{ users map[string]*entity.User }

func (r *memUserRepo) Create(ctx context.Context, u *entity.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return nil, nil
}

// fixture arma un motor con producto, dos bodegas y un usuario sembrados.
type fixture struct {
	engine     *appledger.Engine
	store      *memStore
	runner     *memTxRunner
	products   *memProductRepo
	warehouses *memWarehouseRepo
	users      *memUserRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	products := &memProductRepo{products: map[string]*entity.Product{
		prodID: {
			ID:                prodID,
			SKU:               "SKU-001",
			Name:              "Tornillo 3/4",
			Cost:              decimal.NewFromInt(10),
			LowStockThreshold: 5,
		},
	}}
	warehouses := &memWarehouseRepo{warehouses: map[string]*entity.Warehouse{
		whA: {ID: whA, Name: "Bodega A"},
		whB: {ID: whB, Name: "Bodega B"},
	}}
	users := &memUserRepo{users: map[string]*entity.User{
		actorID: {ID: actorID, Email: "bodega@test.local", Role: entity.RoleBodeguero},
	}}
	runner := &memTxRunner{store: store, products: products}
	engine := appledger.NewEngine(runner, products, warehouses, users, appledger.Config{
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	})
	return &fixture{engine: engine, store: store, runner: runner, products: products, warehouses: warehouses, users: users}
}

// seedStock siembra una fila confirmada.
func (f *fixture) seedStock(qty, reserved int64) {
	s := entity.NewStock(prodID, whA, time.Now())
	s.Quantity = qty
	s.ReservedQuantity = reserved
	f.store.stocks[stockKey(prodID, whA)] = s
}

func (f *fixture) stockIn(t *testing.T, qty int64, cost *decimal.Decimal) *appledger.StockInInput {
	t.Helper()
	return &appledger.StockInInput{
		ProductID:   prodID,
		WarehouseID: whA,
		ActorID:     actorID,
		Quantity:    qty,
		UnitCost:    cost,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario: entrada sobre par sin seguimiento → creación implícita
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_StockIn_CreacionImplicita(t *testing.T) {
	f := newFixture(t)
	cost := decimal.NewFromInt(12)

	snap, err := f.engine.RecordStockIn(context.Background(), *f.stockIn(t, 10, &cost))
	require.NoError(t, err)

	assert.Equal(t, int64(10), snap.Quantity)
	assert.Equal(t, int64(0), snap.Reserved)
	assert.Equal(t, int64(10), snap.Available)

	// La fila quedó confirmada y el asiento registrado en la misma tx.
	require.Len(t, f.store.movements, 1)
	mov := f.store.movements[0]
	assert.Equal(t, entity.MovementKindIn, mov.Kind)
	assert.Equal(t, int64(10), mov.QuantityDelta)
	assert.Equal(t, int64(0), mov.PreviousQuantity)
	assert.Equal(t, int64(10), mov.NewQuantity)
	assert.Equal(t, actorID, mov.ActorID)
}

func TestEngine_StockIn_ActualizaCostoPromedio(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0) // 10 unidades al costo sembrado de $10

	cost := decimal.NewFromInt(20)
	_, err := f.engine.RecordStockIn(context.Background(), *f.stockIn(t, 10, &cost))
	require.NoError(t, err)

	p, err := f.products.GetByID(context.Background(), prodID)
	require.NoError(t, err)
	assert.True(t, p.Cost.Equal(decimal.NewFromInt(15)),
		"10@10 + 10@20 debe promediar 15, obtenido %s", p.Cost)
}

// El costo usado para promediar y valorar debe leerse dentro de la
// transacción: una copia del producto anterior al bloqueo ignoraría el
// UpdateCost de una entrada concurrente ya confirmada. Se simula con un
// repo externo desactualizado frente al repo visible en la transacción.
func TestEngine_CostoSeLeeDentroDeLaTransaccion(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0) // el costo confirmado del producto es $10
	ctx := context.Background()

	stale := &memProductRepo{products: map[string]*entity.Product{
		prodID: {ID: prodID, SKU: "SKU-001", Name: "Tornillo 3/4", Cost: decimal.NewFromInt(1)},
	}}
	engine := appledger.NewEngine(f.runner, stale, f.warehouses, f.users, appledger.Config{
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	})

	cost := decimal.NewFromInt(20)
	_, err := engine.RecordStockIn(ctx, appledger.StockInInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID,
		Quantity: 10, UnitCost: &cost,
	})
	require.NoError(t, err)

	p, err := f.products.GetByID(ctx, prodID)
	require.NoError(t, err)
	assert.True(t, p.Cost.Equal(decimal.NewFromInt(15)),
		"el promedio debe partir del costo vigente bajo la tx ($10), no de la copia previa: obtenido %s", p.Cost)

	_, err = engine.RecordStockOut(ctx, appledger.StockOutInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID, Quantity: 4,
	})
	require.NoError(t, err)

	out := f.store.movements[len(f.store.movements)-1]
	require.NotNil(t, out.UnitCost)
	assert.True(t, out.UnitCost.Equal(decimal.NewFromInt(15)),
		"la salida se valora al costo leído en la tx, obtenido %s", out.UnitCost)
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario: salida mayor que el stock → error tipado y estado intacto
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_StockOut_InsuficienteNoMuta(t *testing.T) {
	f := newFixture(t)
	f.seedStock(3, 0)

	_, err := f.engine.RecordStockOut(context.Background(), appledger.StockOutInput{
		ProductID:   prodID,
		WarehouseID: whA,
		ActorID:     actorID,
		Quantity:    5,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(5), stockErr.Requested)
	assert.Equal(t, int64(3), stockErr.Available)

	assert.Equal(t, int64(3), f.store.stocks[stockKey(prodID, whA)].Quantity,
		"un fallo no debe mutar el stock")
	assert.Empty(t, f.store.movements, "un fallo no debe dejar asiento")
}

func TestEngine_StockOut_ValoradoAlCostoPromedio(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0)

	snap, err := f.engine.RecordStockOut(context.Background(), appledger.StockOutInput{
		ProductID:   prodID,
		WarehouseID: whA,
		ActorID:     actorID,
		Quantity:    4,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), snap.Quantity)

	require.Len(t, f.store.movements, 1)
	mov := f.store.movements[0]
	require.NotNil(t, mov.UnitCost)
	assert.True(t, mov.UnitCost.Equal(decimal.NewFromInt(10)),
		"la salida se valora al costo promedio vigente")
	assert.True(t, mov.TotalValue().Equal(decimal.NewFromInt(40)))
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario: ajuste negativo que dejaría stock bajo cero → rechazado
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_Adjustment_NegativoBajoCero(t *testing.T) {
	f := newFixture(t)
	f.seedStock(2, 0)

	_, err := f.engine.RecordAdjustment(context.Background(), appledger.AdjustmentInput{
		ProductID:   prodID,
		WarehouseID: whA,
		ActorID:     actorID,
		Delta:       -5,
		Reason:      "merma",
	})

	assert.ErrorIs(t, err, domain.ErrNegativeStock)
	assert.Equal(t, int64(2), f.store.stocks[stockKey(prodID, whA)].Quantity)
	assert.Empty(t, f.store.movements)
}

func TestEngine_Adjustment_RecuentoActualizaFecha(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0)

	snap, err := f.engine.RecordAdjustment(context.Background(), appledger.AdjustmentInput{
		ProductID:   prodID,
		WarehouseID: whA,
		ActorID:     actorID,
		Delta:       -3,
		Reason:      "recuento físico",
		StockCount:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.Quantity)

	stored := f.store.stocks[stockKey(prodID, whA)]
	assert.NotNil(t, stored.LastStockCountAt, "un recuento registra la fecha de inventario")

	require.Len(t, f.store.movements, 1)
	assert.Equal(t, entity.MovementKindAdjustment, f.store.movements[0].Kind)
}

func TestEngine_Adjustment_MermaNoEsRecuento(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0)

	_, err := f.engine.RecordAdjustment(context.Background(), appledger.AdjustmentInput{
		ProductID:   prodID,
		WarehouseID: whA,
		ActorID:     actorID,
		Delta:       -2,
		Reason:      "daño en bodega",
	})
	require.NoError(t, err)

	stored := f.store.stocks[stockKey(prodID, whA)]
	assert.Nil(t, stored.LastStockCountAt,
		"dar de baja por daño no actualiza la fecha de último inventario")
}

func TestEngine_Adjustment_SinMotivo_Falla(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0)

	_, err := f.engine.RecordAdjustment(context.Background(), appledger.AdjustmentInput{
		ProductID:   prodID,
		WarehouseID: whA,
		ActorID:     actorID,
		Delta:       -3,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario: reservas — no cambian la cantidad física ni generan Movement
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_ReserveYRelease(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0)
	ctx := context.Background()

	snap, err := f.engine.Reserve(ctx, appledger.ReservationInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID,
		Amount: 4, Reason: "pedido 42",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), snap.Quantity, "reservar no cambia la cantidad física")
	assert.Equal(t, int64(4), snap.Reserved)
	assert.Equal(t, int64(6), snap.Available)
	assert.Empty(t, f.store.movements, "una reserva no genera asiento de kardex")
	require.Len(t, f.store.reservations, 1)
	assert.Equal(t, entity.ReservationActionReserve, f.store.reservations[0].Action)

	// Con 6 disponibles, una salida de 7 físicamente posible debe chocar
	// contra la reserva.
	_, err = f.engine.RecordStockOut(ctx, appledger.StockOutInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID, Quantity: 7,
	})
	assert.ErrorIs(t, err, domain.ErrReservedExceedsStock,
		"la salida no puede dejar el stock bajo lo reservado")

	snap, err = f.engine.Release(ctx, appledger.ReservationInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID,
		Amount: 4, Reason: "pedido 42 cancelado",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Reserved)
	assert.Equal(t, int64(10), snap.Available)
	require.Len(t, f.store.reservations, 2)
	assert.Equal(t, entity.ReservationActionRelease, f.store.reservations[1].Action)
}

func TestEngine_Reserve_MasQueDisponible_Falla(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 8)

	_, err := f.engine.Reserve(context.Background(), appledger.ReservationInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID,
		Amount: 3, Reason: "pedido 43",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)
	assert.Empty(t, f.store.reservations)
}

func TestEngine_Release_MasQueReservado_Falla(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 2)

	_, err := f.engine.Release(context.Background(), appledger.ReservationInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID,
		Amount: 3, Reason: "liberación",
	})
	assert.ErrorIs(t, err, domain.ErrOverRelease)
	assert.Equal(t, int64(2), f.store.stocks[stockKey(prodID, whA)].ReservedQuantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// Atomicidad: si el asiento falla, la fila de stock no cambia
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_Atomicidad_FalloDelAsientoRevierteStock(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0)
	f.runner.failMovementCreate = errors.New("write failed")

	_, err := f.engine.RecordStockOut(context.Background(), appledger.StockOutInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID, Quantity: 4,
	})

	require.Error(t, err)
	assert.Equal(t, int64(10), f.store.stocks[stockKey(prodID, whA)].Quantity,
		"sin asiento no puede haber cambio de stock")
	assert.Empty(t, f.store.movements)
}

// ──────────────────────────────────────────────────────────────────────────────
// Referencias desconocidas
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_ReferenciaDesconocida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.RecordStockIn(ctx, appledger.StockInInput{
		ProductID: "no-existe", WarehouseID: whA, ActorID: actorID, Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrUnknownReference)

	_, err = f.engine.RecordStockIn(ctx, appledger.StockInInput{
		ProductID: prodID, WarehouseID: "no-existe", ActorID: actorID, Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrUnknownReference)

	_, err = f.engine.RecordStockIn(ctx, appledger.StockInInput{
		ProductID: prodID, WarehouseID: whA, ActorID: "no-existe", Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrUnknownReference)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reintentos ante conflicto de concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_Retry_ConflictoTransitorio(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0)
	f.runner.conflictsBeforeSuccess = 2 // dos conflictos, luego éxito

	snap, err := f.engine.RecordStockOut(context.Background(), appledger.StockOutInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID, Quantity: 4,
	})
	require.NoError(t, err, "el motor debe reintentar conflictos transitorios")
	assert.Equal(t, int64(6), snap.Quantity)
	assert.Len(t, f.store.movements, 1, "un reintento exitoso deja exactamente un asiento")
}

func TestEngine_Retry_ConflictoPersistente_Agota(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0)
	f.runner.conflictsBeforeSuccess = 100 // nunca cede

	_, err := f.engine.RecordStockOut(context.Background(), appledger.StockOutInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID, Quantity: 4,
	})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, int64(10), f.store.stocks[stockKey(prodID, whA)].Quantity)
	assert.Empty(t, f.store.movements)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia: N salidas simultáneas jamás sobre-venden
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_Concurrencia_SinSobreventa(t *testing.T) {
	f := newFixture(t)
	f.seedStock(5, 0)

	const workers = 12
	var ok, insufficient int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.RecordStockOut(context.Background(), appledger.StockOutInput{
				ProductID: prodID, WarehouseID: whA, ActorID: actorID, Quantity: 1,
			})
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.Is(err, domain.ErrInsufficientStock):
				atomic.AddInt64(&insufficient, 1)
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), ok, "deben triunfar exactamente 5 salidas")
	assert.Equal(t, int64(workers-5), insufficient)
	assert.Equal(t, int64(0), f.store.stocks[stockKey(prodID, whA)].Quantity)
	assert.Len(t, f.store.movements, 5, "un asiento por salida exitosa, ninguno de más")
}

// ──────────────────────────────────────────────────────────────────────────────
// Reconciliación: replay de asientos reproduce la cantidad actual
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_Reconciliacion_ReplayDeAsientos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cost := decimal.NewFromInt(10)

	_, err := f.engine.RecordStockIn(ctx, *f.stockIn(t, 20, &cost))
	require.NoError(t, err)
	_, err = f.engine.RecordStockOut(ctx, appledger.StockOutInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID, Quantity: 7,
	})
	require.NoError(t, err)
	_, err = f.engine.RecordAdjustment(ctx, appledger.AdjustmentInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID,
		Delta: -2, Reason: "daño",
	})
	require.NoError(t, err)
	_, err = f.engine.RecordStockIn(ctx, *f.stockIn(t, 5, &cost))
	require.NoError(t, err)

	movs := append([]*entity.Movement(nil), f.store.movements...)
	sort.SliceStable(movs, func(i, j int) bool {
		return movs[i].CreatedAt.Before(movs[j].CreatedAt)
	})

	// Cada asiento debe encadenar con el anterior y el replay debe
	// reproducir exactamente la cantidad actual.
	var replayed int64
	for _, m := range movs {
		assert.Equal(t, replayed, m.PreviousQuantity,
			"la foto previa debe encadenar con el asiento anterior")
		assert.Equal(t, m.PreviousQuantity+m.QuantityDelta, m.NewQuantity)
		replayed = m.NewQuantity
	}
	assert.Equal(t, int64(16), replayed)
	assert.Equal(t, replayed, f.store.stocks[stockKey(prodID, whA)].Quantity,
		"replay de asientos debe coincidir con la fila de stock")
}

// ──────────────────────────────────────────────────────────────────────────────
// Traslados entre bodegas
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_Transfer_MueveEntreBodegas(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0) // bodega A

	result, err := f.engine.Transfer(context.Background(), appledger.TransferInput{
		ProductID:       prodID,
		FromWarehouseID: whA,
		ToWarehouseID:   whB,
		ActorID:         actorID,
		Quantity:        4,
		ReferenceNumber: "TRASLADO-001",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(6), result.Origin.Quantity)
	assert.Equal(t, int64(4), result.Destination.Quantity)

	// Dos asientos ligados por la misma referencia: OUT en origen, IN en destino.
	require.Len(t, f.store.movements, 2)
	kinds := map[string]*entity.Movement{}
	for _, m := range f.store.movements {
		kinds[m.Kind] = m
		assert.Equal(t, "TRASLADO-001", m.ReferenceNumber)
	}
	require.Contains(t, kinds, entity.MovementKindOut)
	require.Contains(t, kinds, entity.MovementKindIn)
	assert.Equal(t, whA, kinds[entity.MovementKindOut].WarehouseID)
	assert.Equal(t, whB, kinds[entity.MovementKindIn].WarehouseID)
}

func TestEngine_Transfer_InsuficienteNoMutaNinguna(t *testing.T) {
	f := newFixture(t)
	f.seedStock(3, 0)

	_, err := f.engine.Transfer(context.Background(), appledger.TransferInput{
		ProductID:       prodID,
		FromWarehouseID: whA,
		ToWarehouseID:   whB,
		ActorID:         actorID,
		Quantity:        5,
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(3), f.store.stocks[stockKey(prodID, whA)].Quantity)
	_, destExists := f.store.stocks[stockKey(prodID, whB)]
	assert.False(t, destExists, "el fallo no debe confirmar la fila implícita del destino")
	assert.Empty(t, f.store.movements)
}

func TestEngine_Transfer_MismaBodega_Falla(t *testing.T) {
	f := newFixture(t)
	f.seedStock(10, 0)

	_, err := f.engine.Transfer(context.Background(), appledger.TransferInput{
		ProductID:       prodID,
		FromWarehouseID: whA,
		ToWarehouseID:   whA,
		ActorID:         actorID,
		Quantity:        1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Baja lógica
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_Deactivate_SoloEnCero(t *testing.T) {
	f := newFixture(t)
	f.seedStock(3, 0)
	ctx := context.Background()

	err := f.engine.Deactivate(ctx, prodID, whA, actorID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput,
		"no se puede dar de baja con unidades en mano")

	_, err = f.engine.RecordStockOut(ctx, appledger.StockOutInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID, Quantity: 3,
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.Deactivate(ctx, prodID, whA, actorID))
	assert.False(t, f.store.stocks[stockKey(prodID, whA)].Active)

	// Una salida sobre fila inactiva se rechaza; una entrada la reactiva.
	_, err = f.engine.RecordStockOut(ctx, appledger.StockOutInput{
		ProductID: prodID, WarehouseID: whA, ActorID: actorID, Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	cost := decimal.NewFromInt(10)
	snap, err := f.engine.RecordStockIn(ctx, *f.stockIn(t, 2, &cost))
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Quantity)
	assert.True(t, f.store.stocks[stockKey(prodID, whA)].Active,
		"una entrada reactiva la fila dada de baja")
}
