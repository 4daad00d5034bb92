package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/shared/apperr"
	"github.com/radieske/game-provider-platform/internal/shared/auth"
	"github.com/radieske/game-provider-platform/internal/shared/httpx"
	"github.com/radieske/game-provider-platform/internal/shared/idempotency"
	"github.com/radieske/game-provider-platform/internal/wallet"
	"github.com/radieske/game-provider-platform/internal/wallet/dto"
	"github.com/radieske/game-provider-platform/internal/wallet/repo"
)

// Ledger is the wallet surface served over HTTP.
type Ledger interface {
	Balance(ctx context.Context, operatorID, externalID, currency string) (wallet.Balance, error)
	Debit(ctx context.Context, op wallet.Op) (wallet.Receipt, error)
	Credit(ctx context.Context, op wallet.Op) (wallet.Receipt, error)
	Rollback(ctx context.Context, operatorID, transactionID string) (wallet.RollbackResult, error)
	Statement(ctx context.Context, operatorID, externalID, currency string) (repo.Wallet, []repo.Transaction, error)
}

// Server exposes the ledger to operators. Every route expects the operator
// id in the request context.
type Server struct {
	log    *zap.Logger
	ledger Ledger
	guard  *idempotency.Guard
}

func NewServer(log *zap.Logger, ledger Ledger, guard *idempotency.Guard) *Server {
	return &Server{log: log, ledger: ledger, guard: guard}
}

// Routes mounts the wallet endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/wallet/balance", s.balance)           // ?playerExternalId=&currency=
	r.Get("/wallet/transactions", s.transactions) // ?playerExternalId=&currency=
	r.Post("/wallet/debit", s.debit)
	r.Post("/wallet/credit", s.credit)
	r.Post("/wallet/rollback", s.rollback)
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := auth.OperatorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, s.log, apperr.Validation("operator is required"))
		return
	}
	q := r.URL.Query()
	bal, err := s.ledger.Balance(r.Context(), operatorID, q.Get("playerExternalId"), q.Get("currency"))
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bal)
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := auth.OperatorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, s.log, apperr.Validation("operator is required"))
		return
	}
	q := r.URL.Query()
	wl, txs, err := s.ledger.Statement(r.Context(), operatorID, q.Get("playerExternalId"), q.Get("currency"))
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	out := dto.StatementResponse{
		PlayerExternalID: q.Get("playerExternalId"),
		Currency:         wl.Currency,
		Balance:          wl.Balance,
		Transactions:     make([]dto.TransactionView, 0, len(txs)),
	}
	for _, t := range txs {
		out.Transactions = append(out.Transactions, dto.TransactionView{
			ID:             t.ID,
			Type:           string(t.Type),
			Status:         string(t.Status),
			Amount:         t.Amount,
			ReferenceID:    deref(t.ReferenceID),
			IdempotencyKey: deref(t.IdempotencyKey),
			CreatedAt:      t.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) debit(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, "wallet.debit", s.ledger.Debit)
}

func (s *Server) credit(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, "wallet.credit", s.ledger.Credit)
}

func (s *Server) move(w http.ResponseWriter, r *http.Request, endpoint string, apply func(context.Context, wallet.Op) (wallet.Receipt, error)) {
	var req dto.MoveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	s.keyed(w, r, endpoint, req.IdempotencyKey, req, func(ctx context.Context, operatorID string) (any, error) {
		return apply(ctx, wallet.Op{
			OperatorID:       operatorID,
			PlayerExternalID: req.PlayerExternalID,
			Currency:         req.Currency,
			Amount:           req.Amount,
			ReferenceID:      req.ReferenceID,
			IdempotencyKey:   req.IdempotencyKey,
			Meta:             req.Meta,
		})
	})
}

func (s *Server) rollback(w http.ResponseWriter, r *http.Request) {
	var req dto.RollbackRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	s.keyed(w, r, "wallet.rollback", req.IdempotencyKey, req, func(ctx context.Context, operatorID string) (any, error) {
		return s.ledger.Rollback(ctx, operatorID, req.TransactionID)
	})
}

func (s *Server) keyed(w http.ResponseWriter, r *http.Request, endpoint, key string, req any, fn func(context.Context, string) (any, error)) {
	ctx := r.Context()
	operatorID, ok := auth.OperatorFromContext(ctx)
	if !ok {
		httpx.WriteError(w, s.log, apperr.Validation("operator is required"))
		return
	}
	hash, err := idempotency.HashRequest(req)
	if err != nil {
		httpx.WriteError(w, s.log, apperr.Validation("request: %v", err))
		return
	}
	if stored, hit, err := s.guard.Check(ctx, operatorID, key, endpoint, hash); err != nil {
		httpx.WriteError(w, s.log, err)
		return
	} else if hit {
		httpx.WriteRaw(w, http.StatusOK, stored)
		return
	}

	res, err := fn(ctx, operatorID)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		httpx.WriteError(w, s.log, apperr.Internal("encode response", err))
		return
	}
	s.guard.Commit(ctx, operatorID, key, endpoint, hash, body)
	httpx.WriteRaw(w, http.StatusOK, body)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
