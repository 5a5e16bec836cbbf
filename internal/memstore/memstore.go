// Package memstore is an in-memory implementation of the repositories used by
// the match services. A transaction holds a store-wide lock and rolls back to
// a snapshot, so tests can observe atomicity without a database.
//
// Methods that take a pgx.Tx must be called inside a transaction from Begin.
// The others lock the store themselves and must not be called while the same
// goroutine holds an open transaction.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

var errSQL = errors.New("memstore: raw SQL is not supported")

type data struct {
	users        map[uuid.UUID]models.User
	wallets      map[uuid.UUID]models.Wallet
	transactions []models.Transaction
	matches      map[uuid.UUID]models.Match
	participants []models.Participant
	results      map[uuid.UUID]models.MatchResult
	events       []models.MatchEvent
	eventSeq     int64
}

func (d *data) clone() *data {
	c := &data{
		users:        make(map[uuid.UUID]models.User, len(d.users)),
		wallets:      make(map[uuid.UUID]models.Wallet, len(d.wallets)),
		transactions: append([]models.Transaction(nil), d.transactions...),
		matches:      make(map[uuid.UUID]models.Match, len(d.matches)),
		participants: append([]models.Participant(nil), d.participants...),
		results:      make(map[uuid.UUID]models.MatchResult, len(d.results)),
		events:       append([]models.MatchEvent(nil), d.events...),
		eventSeq:     d.eventSeq,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.wallets {
		c.wallets[k] = v
	}
	for k, v := range d.matches {
		c.matches[k] = v
	}
	for k, v := range d.results {
		c.results[k] = v
	}
	return c
}

// DB is the shared in-memory state behind every repository.
type DB struct {
	mu   sync.Mutex
	data *data

	// Clock stamps created_at and similar columns. Defaults to time.Now.
	Clock func() time.Time
	// FailTransaction, when set, is consulted before each ledger entry is
	// stored; a non-nil error aborts the insert.
	FailTransaction func(t *models.Transaction) error

	Users        *Users
	Wallets      *Wallets
	Transactions *Transactions
	Matches      *Matches
	Participants *Participants
	Results      *Results
	Events       *Events
}

// New returns an empty store holding only the platform wallet.
func New() *DB {
	db := &DB{data: &data{
		users:    map[uuid.UUID]models.User{},
		wallets:  map[uuid.UUID]models.Wallet{},
		matches:  map[uuid.UUID]models.Match{},
		results:  map[uuid.UUID]models.MatchResult{},
		eventSeq: 0,
	}}
	db.Users = &Users{db: db}
	db.Wallets = &Wallets{db: db}
	db.Transactions = &Transactions{db: db}
	db.Matches = &Matches{db: db}
	db.Participants = &Participants{db: db}
	db.Results = &Results{db: db}
	db.Events = &Events{db: db}
	db.AddUser(models.User{ID: models.PlatformUserID, Email: "platform@system", Role: models.RoleAdmin}, decimal.Zero)
	return db
}

func (db *DB) now() time.Time {
	if db.Clock != nil {
		return db.Clock().UTC()
	}
	return time.Now().UTC()
}

// Begin starts a transaction. It blocks until no other transaction is open.
func (db *DB) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	return &Tx{db: db, snapshot: db.data.clone()}, nil
}

// AddUser seeds a user and a wallet with balance.
func (db *DB) AddUser(u models.User, balance decimal.Decimal) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.Role == "" {
		u.Role = models.RolePlayer
	}
	now := db.now()
	u.CreatedAt, u.UpdatedAt = now, now
	db.data.users[u.ID] = u
	db.data.wallets[u.ID] = models.Wallet{UserID: u.ID, Balance: balance, LockedBalance: decimal.Zero, UpdatedAt: now}
}

// PutMatch overwrites a match row.
func (db *DB) PutMatch(m models.Match) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data.matches[m.ID] = m
}

// PutResult overwrites a match result row.
func (db *DB) PutResult(r models.MatchResult) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data.results[r.MatchID] = r
}

// PutWallet overwrites a wallet row.
func (db *DB) PutWallet(w models.Wallet) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data.wallets[w.UserID] = w
}

// Wallet returns a copy of userID's wallet.
func (db *DB) Wallet(userID uuid.UUID) models.Wallet {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.data.wallets[userID]
}

// AllWallets returns copies of every wallet.
func (db *DB) AllWallets() []models.Wallet {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]models.Wallet, 0, len(db.data.wallets))
	for _, w := range db.data.wallets {
		out = append(out, w)
	}
	return out
}

// AllTransactions returns copies of every ledger entry in insertion order.
func (db *DB) AllTransactions() []models.Transaction {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]models.Transaction(nil), db.data.transactions...)
}

// ---------------------------------------------------------------------------
// Tx
// ---------------------------------------------------------------------------

// Tx satisfies pgx.Tx. Only Commit and Rollback do anything.
type Tx struct {
	db       *DB
	snapshot *data
	done     bool
}

func (t *Tx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("memstore: nested transactions are not supported")
}

func (t *Tx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.mu.Unlock()
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.data = t.snapshot
	t.db.mu.Unlock()
	return nil
}

func (t *Tx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), errSQL
}
func (t *Tx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, errSQL }
func (t *Tx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *Tx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errSQL
}
func (t *Tx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *Tx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errSQL
}
func (t *Tx) Conn() *pgx.Conn { return nil }

func (db *DB) read() func() {
	db.mu.Lock()
	return db.mu.Unlock
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint", ConstraintName: constraint}
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type Users struct{ db *DB }

func (r *Users) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	defer r.db.read()()
	u, ok := r.db.data.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r *Users) GetRole(ctx context.Context, id uuid.UUID) (string, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// ---------------------------------------------------------------------------
// Wallets
// ---------------------------------------------------------------------------

type Wallets struct{ db *DB }

func (r *Wallets) CreateTx(_ context.Context, _ pgx.Tx, userID uuid.UUID) error {
	if _, ok := r.db.data.wallets[userID]; ok {
		return uniqueViolation("wallets_pkey")
	}
	r.db.data.wallets[userID] = models.Wallet{UserID: userID, UpdatedAt: r.db.now()}
	return nil
}

func (r *Wallets) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Wallet, error) {
	defer r.db.read()()
	w, ok := r.db.data.wallets[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &w, nil
}

func (r *Wallets) GetByUserIDForUpdate(_ context.Context, _ pgx.Tx, userID uuid.UUID) (*models.Wallet, error) {
	w, ok := r.db.data.wallets[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &w, nil
}

func (r *Wallets) UpdateBalances(_ context.Context, _ pgx.Tx, w *models.Wallet) error {
	if _, ok := r.db.data.wallets[w.UserID]; !ok {
		return pgx.ErrNoRows
	}
	if w.Balance.IsNegative() || w.LockedBalance.IsNegative() {
		return &pgconn.PgError{Code: "23514", Message: "new row violates check constraint", ConstraintName: "wallets_non_negative"}
	}
	w.UpdatedAt = r.db.now()
	r.db.data.wallets[w.UserID] = *w
	return nil
}

func (r *Wallets) ListLocked(_ context.Context, limit int) ([]uuid.UUID, error) {
	defer r.db.read()()
	var out []uuid.UUID
	for id, w := range r.db.data.wallets {
		if id != models.PlatformUserID && w.LockedBalance.IsPositive() {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

type Transactions struct{ db *DB }

func (r *Transactions) CreateTx(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	if r.db.FailTransaction != nil {
		if err := r.db.FailTransaction(t); err != nil {
			return err
		}
	}
	for _, e := range r.db.data.transactions {
		if t.ProviderTxID != nil && e.ProviderTxID != nil && *t.ProviderTxID == *e.ProviderTxID {
			return uniqueViolation("transactions_provider_tx_id_key")
		}
		if t.IsSettlement() && e.IsSettlement() && *t.MatchID == *e.MatchID && t.UserID == e.UserID && t.Kind == e.Kind {
			return uniqueViolation("transactions_settlement_once")
		}
	}
	t.CreatedAt = r.db.now()
	r.db.data.transactions = append(r.db.data.transactions, *t)
	return nil
}

func (r *Transactions) FindDepositTx(_ context.Context, _ pgx.Tx, providerTxID string) (*models.Transaction, error) {
	for _, e := range r.db.data.transactions {
		if e.Kind == models.TxKindDeposit && e.Status == models.TxStatusCompleted &&
			e.ProviderTxID != nil && *e.ProviderTxID == providerTxID {
			return &e, nil
		}
	}
	return nil, nil
}

func (r *Transactions) CountSettlementTx(_ context.Context, _ pgx.Tx, matchID uuid.UUID) (int, error) {
	n := 0
	for _, e := range r.db.data.transactions {
		if e.IsSettlement() && *e.MatchID == matchID {
			n++
		}
	}
	return n, nil
}

func (r *Transactions) ListByUserID(_ context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	defer r.db.read()()
	var out []*models.Transaction
	for i := len(r.db.data.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if e := r.db.data.transactions[i]; e.UserID == userID {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *Transactions) ListByMatchID(_ context.Context, matchID uuid.UUID) ([]*models.Transaction, error) {
	defer r.db.read()()
	var out []*models.Transaction
	for _, e := range r.db.data.transactions {
		if e.MatchID != nil && *e.MatchID == matchID {
			out = append(out, &e)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Matches
// ---------------------------------------------------------------------------

type Matches struct{ db *DB }

func (r *Matches) CreateTx(_ context.Context, _ pgx.Tx, m *models.Match) error {
	if _, ok := r.db.data.matches[m.ID]; ok {
		return uniqueViolation("matches_pkey")
	}
	now := r.db.now()
	m.CreatedAt, m.UpdatedAt = now, now
	r.db.data.matches[m.ID] = *m
	return nil
}

func (r *Matches) GetByID(_ context.Context, id uuid.UUID) (*models.Match, error) {
	defer r.db.read()()
	m, ok := r.db.data.matches[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &m, nil
}

func (r *Matches) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Match, error) {
	m, ok := r.db.data.matches[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &m, nil
}

func (r *Matches) UpdateStatusTx(_ context.Context, _ pgx.Tx, m *models.Match) error {
	cur, ok := r.db.data.matches[m.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	cur.Status = m.Status
	cur.FilledAt, cur.StartedAt, cur.FinishedAt = m.FilledAt, m.StartedAt, m.FinishedAt
	cur.UpdatedAt = r.db.now()
	m.UpdatedAt = cur.UpdatedAt
	r.db.data.matches[m.ID] = cur
	return nil
}

func (r *Matches) ListStale(_ context.Context, c models.StaleCriteria, limit int) ([]uuid.UUID, error) {
	defer r.db.read()()
	var stale []models.Match
	for _, m := range r.db.data.matches {
		if c.Matches(&m) {
			stale = append(stale, m)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	var out []uuid.UUID
	for _, m := range stale {
		if len(out) == limit {
			break
		}
		out = append(out, m.ID)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Participants
// ---------------------------------------------------------------------------

type Participants struct{ db *DB }

func (r *Participants) CreateTx(_ context.Context, _ pgx.Tx, p *models.Participant) error {
	for _, e := range r.db.data.participants {
		if e.MatchID == p.MatchID && e.UserID == p.UserID {
			return uniqueViolation("participants_match_id_user_id_key")
		}
	}
	p.JoinedAt = r.db.now()
	r.db.data.participants = append(r.db.data.participants, *p)
	return nil
}

func (r *Participants) list(matchID uuid.UUID) []*models.Participant {
	var out []*models.Participant
	for _, e := range r.db.data.participants {
		if e.MatchID == matchID {
			out = append(out, &e)
		}
	}
	return out
}

func (r *Participants) ListByMatchTx(_ context.Context, _ pgx.Tx, matchID uuid.UUID) ([]*models.Participant, error) {
	return r.list(matchID), nil
}

func (r *Participants) ListByMatch(_ context.Context, matchID uuid.UUID) ([]*models.Participant, error) {
	defer r.db.read()()
	return r.list(matchID), nil
}

func (r *Participants) UpdateTx(_ context.Context, _ pgx.Tx, p *models.Participant) error {
	for i, e := range r.db.data.participants {
		if e.ID == p.ID {
			e.Ready, e.ResultChoice, e.Status = p.Ready, p.ResultChoice, p.Status
			r.db.data.participants[i] = e
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *Participants) SumEscrowedByPayerTx(_ context.Context, _ pgx.Tx, payerID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range r.db.data.participants {
		if e.PaidBy != payerID || e.Status != models.ParticipantJoined {
			continue
		}
		if m, ok := r.db.data.matches[e.MatchID]; ok {
			sum = sum.Add(m.EntryFee)
		}
	}
	return sum, nil
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

type Results struct{ db *DB }

func (r *Results) GetByMatchIDForUpdate(_ context.Context, _ pgx.Tx, matchID uuid.UUID) (*models.MatchResult, error) {
	res, ok := r.db.data.results[matchID]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r *Results) GetByMatchID(_ context.Context, matchID uuid.UUID) (*models.MatchResult, error) {
	defer r.db.read()()
	res, ok := r.db.data.results[matchID]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r *Results) UpsertTx(_ context.Context, _ pgx.Tx, res *models.MatchResult) error {
	now := r.db.now()
	if cur, ok := r.db.data.results[res.MatchID]; ok {
		res.CreatedAt = cur.CreatedAt
	} else {
		res.CreatedAt = now
	}
	res.UpdatedAt = now
	r.db.data.results[res.MatchID] = *res
	return nil
}

func (r *Results) ListUnsettled(_ context.Context, limit int) ([]uuid.UUID, error) {
	defer r.db.read()()
	settled := map[uuid.UUID]bool{}
	for _, e := range r.db.data.transactions {
		if e.IsSettlement() {
			settled[*e.MatchID] = true
		}
	}
	var out []uuid.UUID
	for id, res := range r.db.data.results {
		if len(out) == limit {
			break
		}
		if res.IsFinal() && res.SettlementRetries == 0 && !settled[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

type Events struct{ db *DB }

func (r *Events) AppendTx(_ context.Context, _ pgx.Tx, e *models.MatchEvent) error {
	r.db.data.eventSeq++
	e.ID = r.db.data.eventSeq
	e.CreatedAt = r.db.now()
	r.db.data.events = append(r.db.data.events, *e)
	return nil
}

func (r *Events) ListByMatch(_ context.Context, matchID uuid.UUID, afterID int64, limit int) ([]*models.MatchEvent, error) {
	defer r.db.read()()
	var out []*models.MatchEvent
	for _, e := range r.db.data.events {
		if len(out) == limit {
			break
		}
		if e.MatchID == matchID && e.ID > afterID {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *Events) ListUnpublished(_ context.Context, limit int) ([]*models.MatchEvent, error) {
	defer r.db.read()()
	var out []*models.MatchEvent
	for _, e := range r.db.data.events {
		if len(out) == limit {
			break
		}
		if e.PublishedAt == nil {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *Events) MarkPublished(_ context.Context, ids []int64) error {
	defer r.db.read()()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	now := r.db.now()
	for i, e := range r.db.data.events {
		if want[e.ID] && e.PublishedAt == nil {
			r.db.data.events[i].PublishedAt = &now
		}
	}
	return nil
}
