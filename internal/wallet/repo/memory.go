package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/game-provider-platform/internal/shared/money"
)

// Memory is an in-process Store for tests and local runs. Units of work are
// serialized and applied copy-on-write, so a failed unit leaves no trace.
type Memory struct {
	mu sync.Mutex
	st memState
}

type memState struct {
	players    map[string]Player
	playerKeys map[[2]string]string
	wallets    map[string]Wallet
	walletKeys map[[2]string]string
	txs        map[string]Transaction
	seq        map[string]int
}

func NewMemory() *Memory {
	return &Memory{st: memState{
		players:    map[string]Player{},
		playerKeys: map[[2]string]string{},
		wallets:    map[string]Wallet{},
		walletKeys: map[[2]string]string{},
		txs:        map[string]Transaction{},
		seq:        map[string]int{},
	}}
}

func (s memState) clone() memState {
	c := memState{
		players:    make(map[string]Player, len(s.players)),
		playerKeys: make(map[[2]string]string, len(s.playerKeys)),
		wallets:    make(map[string]Wallet, len(s.wallets)),
		walletKeys: make(map[[2]string]string, len(s.walletKeys)),
		txs:        make(map[string]Transaction, len(s.txs)),
		seq:        make(map[string]int, len(s.seq)),
	}
	for k, v := range s.players {
		c.players[k] = v
	}
	for k, v := range s.playerKeys {
		c.playerKeys[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.walletKeys {
		c.walletKeys[k] = v
	}
	for k, v := range s.txs {
		c.txs[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

func (m *Memory) InTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := &memTx{st: m.st.clone()}
	if err := fn(work); err != nil {
		return err
	}
	m.st = work.st
	return nil
}

func (m *Memory) ListTransactions(_ context.Context, walletID string) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Transaction
	for _, t := range m.st.txs {
		if t.WalletID == walletID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.st.seq[out[i].ID] < m.st.seq[out[j].ID] })
	return out, nil
}

type memTx struct{ st memState }

func (t *memTx) UpsertPlayer(_ context.Context, operatorID, externalID string) (Player, error) {
	key := [2]string{operatorID, externalID}
	if id, ok := t.st.playerKeys[key]; ok {
		return t.st.players[id], nil
	}
	p := Player{ID: uuid.NewString(), OperatorID: operatorID, ExternalID: externalID, CreatedAt: time.Now()}
	t.st.players[p.ID] = p
	t.st.playerKeys[key] = p.ID
	return p, nil
}

func (t *memTx) PlayerByID(_ context.Context, operatorID, playerID string) (Player, error) {
	p, ok := t.st.players[playerID]
	if !ok || p.OperatorID != operatorID {
		return Player{}, ErrNotFound
	}
	return p, nil
}

func (t *memTx) LockWallet(_ context.Context, operatorID, playerID, currency string) (Wallet, error) {
	key := [2]string{playerID, currency}
	if id, ok := t.st.walletKeys[key]; ok {
		return t.st.wallets[id], nil
	}
	w := Wallet{ID: uuid.NewString(), OperatorID: operatorID, PlayerID: playerID, Currency: currency, Balance: money.Zero(), Version: 1}
	t.st.wallets[w.ID] = w
	t.st.walletKeys[key] = w.ID
	return w, nil
}

func (t *memTx) LockWalletByID(_ context.Context, walletID string) (Wallet, error) {
	w, ok := t.st.wallets[walletID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (t *memTx) SetBalance(_ context.Context, walletID string, balance money.Amount) error {
	w, ok := t.st.wallets[walletID]
	if !ok {
		return ErrNotFound
	}
	w.Balance = balance
	w.Version++
	t.st.wallets[walletID] = w
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, tr *Transaction) error {
	if tr.IdempotencyKey != nil {
		for _, o := range t.st.txs {
			if o.OperatorID == tr.OperatorID && o.IdempotencyKey != nil &&
				*o.IdempotencyKey == *tr.IdempotencyKey && o.Status != TxReversed {
				return ErrDuplicateKey
			}
		}
	}
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	if tr.Meta == "" {
		tr.Meta = "{}"
	}
	t.st.txs[tr.ID] = *tr
	t.st.seq[tr.ID] = len(t.st.seq)
	return nil
}

func (t *memTx) SetTransactionStatus(_ context.Context, id string, status TxStatus, at time.Time) error {
	tr, ok := t.st.txs[id]
	if !ok {
		return ErrNotFound
	}
	tr.Status = status
	switch status {
	case TxApplied:
		tr.AppliedAt = &at
	case TxReversed:
		tr.ReversedAt = &at
	}
	t.st.txs[id] = tr
	return nil
}

func (t *memTx) TransactionByKey(_ context.Context, operatorID, key string) (Transaction, error) {
	for _, o := range t.st.txs {
		if o.OperatorID == operatorID && o.IdempotencyKey != nil && *o.IdempotencyKey == key && o.Status != TxReversed {
			return o, nil
		}
	}
	return Transaction{}, ErrNotFound
}

func (t *memTx) LockTransaction(_ context.Context, operatorID, id string) (Transaction, error) {
	tr, ok := t.st.txs[id]
	if !ok || tr.OperatorID != operatorID {
		return Transaction{}, ErrNotFound
	}
	return tr, nil
}
