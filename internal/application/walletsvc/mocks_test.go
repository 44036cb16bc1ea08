package walletsvc

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

// In-memory fakes. They return copies from reads so a forgotten
// UpdateBalance shows up as a stale stored wallet, like it would with a
// real database.

type fakeWalletRepo struct {
	wallets map[int64]*entities.Wallet
	nextID  int64
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: map[int64]*entities.Wallet{}}
}

func (r *fakeWalletRepo) Create(_ context.Context, w *entities.Wallet) error {
	r.nextID++
	w.ID = r.nextID
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *fakeWalletRepo) Get(_ context.Context, id, ownerUserID int64) (*entities.Wallet, error) {
	w, ok := r.wallets[id]
	if !ok || w.OwnerUserID != ownerUserID {
		return nil, apperrors.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) GetForUpdate(ctx context.Context, id, ownerUserID int64) (*entities.Wallet, error) {
	return r.Get(ctx, id, ownerUserID)
}

func (r *fakeWalletRepo) FindByOwnerAndCurrency(_ context.Context, ownerUserID int64, currency money.Currency) (*entities.Wallet, error) {
	var ids []int64
	for id := range r.wallets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		w := r.wallets[id]
		if w.OwnerUserID == ownerUserID && w.Currency == currency {
			cp := *w
			return &cp, nil
		}
	}
	return nil, apperrors.ErrWalletNotFound
}

func (r *fakeWalletRepo) ListByOwner(_ context.Context, ownerUserID int64) ([]*entities.Wallet, error) {
	var ids []int64
	for id := range r.wallets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*entities.Wallet
	for _, id := range ids {
		if w := r.wallets[id]; w.OwnerUserID == ownerUserID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeWalletRepo) UpdateBalance(_ context.Context, w *entities.Wallet) error {
	stored, ok := r.wallets[w.ID]
	if !ok {
		return apperrors.ErrWalletNotFound
	}
	stored.Balance = w.Balance
	stored.UpdatedAt = w.UpdatedAt
	return nil
}

type fakeLedgerRepo struct {
	entries []*entities.LedgerEntry
	nextID  int64
}

func (r *fakeLedgerRepo) Insert(_ context.Context, e *entities.LedgerEntry) error {
	r.nextID++
	e.ID = r.nextID
	e.CreatedAt = time.Now().UTC()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeLedgerRepo) FindByIdempotencyKey(_ context.Context, walletID int64, key string) (*entities.LedgerEntry, error) {
	for _, e := range r.entries {
		if e.WalletID == walletID && e.IdempotencyKey == key {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeLedgerRepo) ListByWallet(_ context.Context, walletID int64, beforeID int64, limit int) ([]*entities.LedgerEntry, error) {
	var out []*entities.LedgerEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.WalletID != walletID {
			continue
		}
		if beforeID > 0 && e.ID >= beforeID {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) Summarize(_ context.Context, walletID int64) (decimal.Decimal, int64, error) {
	sum := decimal.Zero
	var count int64
	for _, e := range r.entries {
		if e.WalletID != walletID {
			continue
		}
		count++
		if e.Type == entities.EntryTypeCredit {
			sum = sum.Add(e.Amount.Decimal())
		} else {
			sum = sum.Sub(e.Amount.Decimal())
		}
	}
	return sum, count, nil
}

type fakeHoldRepo struct {
	wallets *fakeWalletRepo
	holds   map[int64]*entities.Hold
	nextID  int64
}

func newFakeHoldRepo(wallets *fakeWalletRepo) *fakeHoldRepo {
	return &fakeHoldRepo{wallets: wallets, holds: map[int64]*entities.Hold{}}
}

func (r *fakeHoldRepo) Insert(_ context.Context, h *entities.Hold) error {
	r.nextID++
	h.ID = r.nextID
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now
	cp := *h
	r.holds[h.ID] = &cp
	return nil
}

func (r *fakeHoldRepo) FindByIdempotencyKey(_ context.Context, walletID int64, key string, _ bool) (*entities.Hold, error) {
	for _, h := range r.holds {
		if h.WalletID == walletID && h.IdempotencyKey == key {
			cp := *h
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeHoldRepo) GetForUpdate(_ context.Context, walletID, holdID, ownerUserID int64) (*entities.Hold, error) {
	h, ok := r.holds[holdID]
	if !ok || h.WalletID != walletID {
		return nil, apperrors.ErrHoldNotFound
	}
	w, ok := r.wallets.wallets[walletID]
	if !ok || w.OwnerUserID != ownerUserID {
		return nil, apperrors.ErrHoldNotFound
	}
	cp := *h
	return &cp, nil
}

func (r *fakeHoldRepo) UpdateStatus(_ context.Context, h *entities.Hold) error {
	stored, ok := r.holds[h.ID]
	if !ok {
		return apperrors.ErrHoldNotFound
	}
	stored.Status = h.Status
	stored.UpdatedAt = h.UpdatedAt
	return nil
}

type fakeTransferRepo struct {
	transfers map[int64]*entities.Transfer
	nextID    int64
}

func newFakeTransferRepo() *fakeTransferRepo {
	return &fakeTransferRepo{transfers: map[int64]*entities.Transfer{}}
}

func (r *fakeTransferRepo) Insert(_ context.Context, t *entities.Transfer) error {
	r.nextID++
	t.ID = r.nextID
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	r.transfers[t.ID] = &cp
	return nil
}

func (r *fakeTransferRepo) FindByIdempotencyKey(_ context.Context, key string) (*entities.Transfer, error) {
	for _, t := range r.transfers {
		if t.IdempotencyKey == key {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeTransferRepo) Update(_ context.Context, t *entities.Transfer) error {
	stored, ok := r.transfers[t.ID]
	if !ok {
		return apperrors.New(apperrors.KindInternal, "transfer not found")
	}
	*stored = *t
	return nil
}

type outboxEvent struct {
	EventType string
	Payload   map[string]any
}

type fakeOutboxRepo struct {
	events []outboxEvent
}

func (r *fakeOutboxRepo) Append(_ context.Context, eventType string, payload map[string]any) error {
	r.events = append(r.events, outboxEvent{EventType: eventType, Payload: payload})
	return nil
}

func (r *fakeOutboxRepo) types() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// fakeUnitOfWork runs the function directly; the fakes mutate shared
// state, so there is nothing to roll back.
type fakeUnitOfWork struct{}

func (fakeUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRisk struct {
	decision ports.RiskDecision
	err      error
	events   []ports.RiskEvent
}

func (r *fakeRisk) Evaluate(_ context.Context, event ports.RiskEvent) (ports.RiskDecision, error) {
	r.events = append(r.events, event)
	if r.err != nil {
		return "", r.err
	}
	return r.decision, nil
}

type env struct {
	wallets   *fakeWalletRepo
	ledger    *fakeLedgerRepo
	holds     *fakeHoldRepo
	transfers *fakeTransferRepo
	outbox    *fakeOutboxRepo
	risk      *fakeRisk
	svc       *Service
}

func newEnv(risk *fakeRisk) *env {
	wallets := newFakeWalletRepo()
	ledger := &fakeLedgerRepo{}
	holds := newFakeHoldRepo(wallets)
	transfers := newFakeTransferRepo()
	outbox := &fakeOutboxRepo{}

	var evaluator ports.RiskEvaluator
	if risk != nil {
		evaluator = risk
	}

	return &env{
		wallets:   wallets,
		ledger:    ledger,
		holds:     holds,
		transfers: transfers,
		outbox:    outbox,
		risk:      risk,
		svc:       New(wallets, ledger, holds, transfers, outbox, fakeUnitOfWork{}, evaluator, discardLogger()),
	}
}

func (e *env) addWallet(ownerUserID int64, currency money.Currency, balance string) *entities.Wallet {
	w := entities.NewWallet(ownerUserID, currency)
	w.Balance = money.MustParse(balance)
	_ = e.wallets.Create(context.Background(), w)
	return w
}

func (e *env) entriesFor(walletID int64) []*entities.LedgerEntry {
	var out []*entities.LedgerEntry
	for _, entry := range e.ledger.entries {
		if entry.WalletID == walletID {
			out = append(out, entry)
		}
	}
	return out
}
