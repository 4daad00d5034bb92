// Package settlement runs game rounds end to end: it resolves the engine,
// serializes plays per player, moves money through the ledger and persists
// the round exactly once.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/games/crash"
	"github.com/radieske/game-provider-platform/internal/games/engine"
	"github.com/radieske/game-provider-platform/internal/games/fairness"
	"github.com/radieske/game-provider-platform/internal/settlement/dto"
	"github.com/radieske/game-provider-platform/internal/settlement/repo"
	"github.com/radieske/game-provider-platform/internal/shared/apperr"
	"github.com/radieske/game-provider-platform/internal/shared/idempotency"
	"github.com/radieske/game-provider-platform/internal/shared/lock"
	"github.com/radieske/game-provider-platform/internal/shared/money"
	"github.com/radieske/game-provider-platform/internal/wallet"
	walletrepo "github.com/radieske/game-provider-platform/internal/wallet/repo"
	"github.com/radieske/game-provider-platform/pkg/contracts/events"
)

const (
	EndpointPlay   = "games.play"
	DefaultLockTTL = 5 * time.Second
)

// Ledger is the part of the wallet settlement moves money through.
type Ledger interface {
	EnsurePlayer(ctx context.Context, operatorID, externalID string) (walletrepo.Player, error)
	Balance(ctx context.Context, operatorID, externalID, currency string) (wallet.Balance, error)
	Debit(ctx context.Context, op wallet.Op) (wallet.Receipt, error)
	Credit(ctx context.Context, op wallet.Op) (wallet.Receipt, error)
	Rollback(ctx context.Context, operatorID, transactionID string) (wallet.RollbackResult, error)
}

type Publisher interface {
	PublishRoundSettled(ctx context.Context, e events.RoundSettled) error
}

type Deps struct {
	Log       *zap.Logger
	Registry  *engine.Registry
	Rounds    repo.Store
	Ledger    Ledger
	Locker    lock.Locker
	Guard     *idempotency.Guard
	Publisher Publisher // optional
	Metrics   *Metrics  // optional
	LockTTL   time.Duration
}

type Service struct {
	log      *zap.Logger
	registry *engine.Registry
	rounds   repo.Store
	ledger   Ledger
	locker   lock.Locker
	guard    *idempotency.Guard
	pub      Publisher
	metrics  *Metrics
	lockTTL  time.Duration
	now      func() time.Time
	newSeed  func() (string, error)
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	ttl := d.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Service{
		log:      log,
		registry: d.Registry,
		rounds:   d.Rounds,
		ledger:   d.Ledger,
		locker:   d.Locker,
		guard:    d.Guard,
		pub:      d.Publisher,
		metrics:  d.Metrics,
		lockTTL:  ttl,
		now:      time.Now,
		newSeed:  fairness.NewServerSeed,
	}
}

// ListGames returns the catalogue, optionally filtered by kind.
func (s *Service) ListGames(kind engine.Kind) ([]dto.GameInfo, error) {
	if kind != "" && !kind.Valid() {
		return nil, apperr.Validation("unknown game kind %q", kind)
	}
	engines := s.registry.List(kind)
	out := make([]dto.GameInfo, 0, len(engines))
	for _, e := range engines {
		out = append(out, dto.GameInfo{GameCode: e.ID(), Kind: string(e.Kind()), RTP: e.RTP()})
	}
	return out, nil
}

// GameConfig returns the public math of one game.
func (s *Service) GameConfig(gameCode string) (dto.GameConfig, error) {
	eng, err := s.registry.Get(gameCode)
	if err != nil {
		return dto.GameConfig{}, err
	}
	out := dto.GameConfig{GameCode: eng.ID(), Kind: string(eng.Kind()), RTP: eng.RTP()}
	if d, ok := eng.(engine.Describer); ok {
		out.Table = d.Describe()
	}
	return out, nil
}

// Init opens a round with a fresh server seed and returns only its hash.
func (s *Service) Init(ctx context.Context, operatorID string, req dto.InitRequest) (dto.InitResponse, error) {
	if operatorID == "" {
		return dto.InitResponse{}, apperr.Validation("operator is required")
	}
	if strings.TrimSpace(req.GameCode) == "" || strings.TrimSpace(req.PlayerExternalID) == "" || strings.TrimSpace(req.Currency) == "" {
		return dto.InitResponse{}, apperr.Validation("gameCode, playerExternalId and currency are required")
	}
	eng, err := s.registry.Get(req.GameCode)
	if err != nil {
		return dto.InitResponse{}, err
	}
	player, err := s.ledger.EnsurePlayer(ctx, operatorID, req.PlayerExternalID)
	if err != nil {
		return dto.InitResponse{}, err
	}
	seed, err := s.newSeed()
	if err != nil {
		return dto.InitResponse{}, apperr.Internal("server seed", err)
	}
	clientSeed := req.ClientSeed
	if clientSeed == "" {
		clientSeed = "player:" + req.PlayerExternalID
	}

	now := s.now()
	round := &repo.Round{
		OperatorID:       operatorID,
		PlayerID:         player.ID,
		PlayerExternalID: req.PlayerExternalID,
		GameCode:         eng.ID(),
		Currency:         req.Currency,
		BetAmount:        money.Zero(),
		WinAmount:        money.Zero(),
		ServerSeed:       seed,
		ServerSeedHash:   fairness.ServerSeedHash(seed),
		ClientSeed:       clientSeed,
		Status:           repo.RoundCreated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.rounds.CreateRound(ctx, round); err != nil {
		return dto.InitResponse{}, apperr.Internal("create round", err)
	}
	bal, err := s.ledger.Balance(ctx, operatorID, req.PlayerExternalID, req.Currency)
	if err != nil {
		return dto.InitResponse{}, err
	}

	s.log.Info("round created",
		zap.String("operator", operatorID), zap.String("round", round.ID), zap.String("game", round.GameCode))
	return dto.InitResponse{
		RoundID:        round.ID,
		GameCode:       round.GameCode,
		RTP:            eng.RTP(),
		ServerSeedHash: round.ServerSeedHash,
		ClientSeed:     clientSeed,
		Currency:       req.Currency,
		WalletBalance:  bal.Balance,
	}, nil
}

// Play executes one action on a round and returns the serialized response.
// A repeated idempotency key with the same request returns the stored bytes
// unchanged; with a different request it is a CONFLICT.
func (s *Service) Play(ctx context.Context, operatorID string, req dto.PlayRequest) (json.RawMessage, error) {
	started := s.now()
	game := "unknown"
	body, err := func() (json.RawMessage, error) {
		if operatorID == "" || req.RoundID == "" {
			return nil, apperr.Validation("operator and roundId are required")
		}
		round, err := s.rounds.RoundByID(ctx, operatorID, req.RoundID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("round %s not found", req.RoundID)
		}
		if err != nil {
			return nil, apperr.Internal("load round", err)
		}
		game = round.GameCode
		return s.play(ctx, round, req)
	}()
	s.metrics.observePlay(game, started, err)
	return body, err
}

// parsed form, so equivalent encodings of one play hash alike
type playFingerprint struct {
	RoundID    string        `json:"roundId"`
	GameCode   string        `json:"gameCode"`
	Bet        string        `json:"bet"`
	ClientSeed string        `json:"clientSeed,omitempty"`
	Type       string        `json:"type"`
	Action     engine.Action `json:"action"`
}

func (s *Service) play(ctx context.Context, round repo.Round, req dto.PlayRequest) (json.RawMessage, error) {
	eng, err := s.registry.Get(round.GameCode)
	if err != nil {
		return nil, err
	}
	action, err := engine.ParseAction(eng.Kind(), req.Action)
	if err != nil {
		return nil, err
	}
	if req.Bet.IsNegative() {
		return nil, apperr.Validation("bet must not be negative")
	}
	if _, cashout := action.(engine.CrashCashout); !cashout && !req.Bet.IsPositive() {
		return nil, apperr.Validation("bet must be positive")
	}

	key := "lock:play:" + round.OperatorID + ":" + round.PlayerID
	lease, ok, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if err != nil {
		return nil, apperr.Internal("acquire play lock", err)
	}
	if !ok {
		return nil, apperr.New(apperr.CodeBusy, "a play is already in progress for this player")
	}
	defer func() {
		// release must run even if the request context is gone
		if err := s.locker.Release(context.WithoutCancel(ctx), lease); err != nil {
			s.log.Warn("release play lock", zap.String("key", key), zap.Error(err))
		}
	}()

	hash, err := idempotency.HashRequest(playFingerprint{
		RoundID:    round.ID,
		GameCode:   round.GameCode,
		Bet:        req.Bet.String(),
		ClientSeed: req.ClientSeed,
		Type:       action.Type(),
		Action:     action,
	})
	if err != nil {
		return nil, apperr.Validation("request: %v", err)
	}
	stored, hit, err := s.guard.Check(ctx, round.OperatorID, req.IdempotencyKey, EndpointPlay, hash)
	if err != nil {
		return nil, err
	}
	if hit {
		s.metrics.observeReplay()
		return stored, nil
	}

	// re-read under the lock; the first read raced with other plays
	round, err = s.rounds.RoundByID(ctx, round.OperatorID, round.ID)
	if err != nil {
		return nil, apperr.Internal("reload round", err)
	}
	if round.Status != repo.RoundCreated {
		return nil, apperr.Conflict("round %s is already %s", round.ID, round.Status)
	}

	body, err := s.settle(ctx, round, eng, action, req)
	if err != nil {
		return nil, err
	}
	s.guard.Commit(ctx, round.OperatorID, req.IdempotencyKey, EndpointPlay, hash, body)
	return body, nil
}

func (s *Service) settle(ctx context.Context, round repo.Round, eng engine.Engine, action engine.Action, req dto.PlayRequest) (json.RawMessage, error) {
	skey := repo.SessionKey{OperatorID: round.OperatorID, PlayerID: round.PlayerID, GameCode: round.GameCode}
	session, err := s.rounds.Session(ctx, skey)
	if err != nil {
		return nil, apperr.Internal("load session", err)
	}
	clientSeed := req.ClientSeed
	if clientSeed == "" {
		clientSeed = round.ClientSeed
	}

	res, next, err := eng.Handle(engine.Context{
		OperatorID: round.OperatorID,
		PlayerID:   round.PlayerID,
		Currency:   round.Currency,
		GameID:     round.GameCode,
		RoundID:    round.ID,
		Bet:        req.Bet,
		ServerSeed: round.ServerSeed,
		ClientSeed: clientSeed,
		Nonce:      round.Nonce + 1,
		Session:    session,
	}, action)
	if err != nil {
		return nil, err
	}

	var (
		applied []string
		balance *money.Amount
	)
	op := func(amount money.Amount, suffix string) wallet.Op {
		o := wallet.Op{
			OperatorID:       round.OperatorID,
			PlayerExternalID: round.PlayerExternalID,
			Currency:         round.Currency,
			Amount:           amount,
			ReferenceID:      "round:" + round.ID,
			Meta:             map[string]any{"gameCode": round.GameCode, "action": action.Type()},
		}
		if req.IdempotencyKey != "" {
			o.IdempotencyKey = req.IdempotencyKey + ":" + suffix
		}
		return o
	}

	if res.Stake.IsPositive() {
		rec, err := s.ledger.Debit(ctx, op(res.Stake, "debit"))
		if err != nil {
			return nil, err
		}
		applied = append(applied, rec.TransactionID)
		balance = &rec.Balance
	}
	if res.Win.IsPositive() {
		rec, err := s.ledger.Credit(ctx, op(res.Win, "credit"))
		if err != nil {
			s.compensate(ctx, round, applied)
			return nil, err
		}
		applied = append(applied, rec.TransactionID)
		balance = &rec.Balance
	}
	if balance == nil {
		bal, err := s.ledger.Balance(ctx, round.OperatorID, round.PlayerExternalID, round.Currency)
		if err != nil {
			return nil, err
		}
		balance = &bal.Balance
	}

	result, err := json.Marshal(res)
	if err != nil {
		s.compensate(ctx, round, applied)
		return nil, apperr.Internal("encode result", err)
	}
	now := s.now()
	updated := round
	updated.BetAmount = res.Bet
	updated.WinAmount = res.Win
	updated.ClientSeed = res.Fairness.ClientSeed
	updated.Nonce = res.Fairness.Nonce
	updated.Result = result
	updated.UpdatedAt = now
	if res.Final {
		updated.Status = repo.RoundSettled
		updated.SettledAt = &now
	}
	if err := s.rounds.SaveRound(ctx, updated, skey, next); err != nil {
		s.compensate(ctx, round, applied)
		if errors.Is(err, repo.ErrNotCreated) {
			return nil, apperr.Conflict("round %s was settled concurrently", round.ID)
		}
		return nil, apperr.Internal("save round", err)
	}

	body, err := json.Marshal(dto.PlayResponse{
		RoundID:       updated.ID,
		GameCode:      updated.GameCode,
		Status:        string(updated.Status),
		Bet:           res.Bet,
		Stake:         res.Stake,
		Win:           res.Win,
		Currency:      updated.Currency,
		State:         res.State,
		Events:        res.Events,
		Fairness:      res.Fairness,
		Nonce:         updated.Nonce,
		WalletBalance: *balance,
	})
	if err != nil {
		return nil, apperr.Internal("encode response", err)
	}

	s.metrics.observeMoney(updated.GameCode, updated.Currency, res.Stake.Float64(), res.Win.Float64())
	s.publish(ctx, updated, res)
	s.log.Info("round played",
		zap.String("operator", updated.OperatorID),
		zap.String("round", updated.ID),
		zap.String("game", updated.GameCode),
		zap.String("status", string(updated.Status)),
		zap.Stringer("stake", res.Stake),
		zap.Stringer("win", res.Win),
		zap.Int64("nonce", updated.Nonce))
	return body, nil
}

func (s *Service) compensate(ctx context.Context, round repo.Round, txIDs []string) {
	ctx = context.WithoutCancel(ctx)
	for i := len(txIDs) - 1; i >= 0; i-- {
		if _, err := s.ledger.Rollback(ctx, round.OperatorID, txIDs[i]); err != nil {
			s.log.Error("compensating rollback failed",
				zap.String("round", round.ID), zap.String("tx", txIDs[i]), zap.Error(err))
		}
	}
}

func (s *Service) publish(ctx context.Context, r repo.Round, res engine.Result) {
	if s.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	err := s.pub.PublishRoundSettled(ctx, events.RoundSettled{
		EventID:          uuid.NewString(),
		OperatorID:       r.OperatorID,
		RoundID:          r.ID,
		GameCode:         r.GameCode,
		PlayerExternalID: r.PlayerExternalID,
		Currency:         r.Currency,
		Stake:            res.Stake.String(),
		Win:              res.Win.String(),
		Nonce:            r.Nonce,
		Status:           string(r.Status),
		ServerSeedHash:   r.ServerSeedHash,
	})
	if err != nil {
		s.log.Warn("publish round_settled", zap.String("round", r.ID), zap.Error(err))
	}
}

// Verify reads a round back. The server seed is revealed only after the
// round settled; before that only its hash is shown.
func (s *Service) Verify(ctx context.Context, operatorID, roundID string) (dto.VerifyResponse, error) {
	r, err := s.rounds.RoundByID(ctx, operatorID, roundID)
	if errors.Is(err, repo.ErrNotFound) {
		return dto.VerifyResponse{}, apperr.NotFound("round %s not found", roundID)
	}
	if err != nil {
		return dto.VerifyResponse{}, apperr.Internal("load round", err)
	}
	out := dto.VerifyResponse{
		RoundID:  r.ID,
		GameCode: r.GameCode,
		Status:   string(r.Status),
		Bet:      r.BetAmount,
		Win:      r.WinAmount,
		Currency: r.Currency,
		Fairness: dto.RoundFairness{
			Algorithm:      fairness.Algorithm,
			ServerSeedHash: r.ServerSeedHash,
			ClientSeed:     r.ClientSeed,
			Nonce:          r.Nonce,
		},
		Result:    r.Result,
		CreatedAt: r.CreatedAt,
		SettledAt: r.SettledAt,
	}
	if r.Status == repo.RoundSettled {
		out.Fairness.ServerSeed = r.ServerSeed
	}
	return out, nil
}

// Recompute replays an engine from revealed seeds so anyone can check a
// published result. Slots are replayed from the base game. Crash games also
// report the bust point.
func (s *Service) Recompute(req dto.FairnessVerifyRequest) (dto.FairnessVerifyResponse, error) {
	if req.ServerSeed == "" || req.ClientSeed == "" {
		return dto.FairnessVerifyResponse{}, apperr.Validation("serverSeed and clientSeed are required")
	}
	if req.Nonce < 0 {
		return dto.FairnessVerifyResponse{}, apperr.Validation("nonce must not be negative")
	}
	eng, err := s.registry.Get(req.GameCode)
	if err != nil {
		return dto.FairnessVerifyResponse{}, err
	}
	action, err := engine.ParseAction(eng.Kind(), req.Action)
	if err != nil {
		return dto.FairnessVerifyResponse{}, err
	}
	bet := req.Bet
	if !bet.IsPositive() {
		bet = money.FromInt(1)
	}
	in := engine.Context{
		GameID:     eng.ID(),
		RoundID:    "verify",
		Bet:        bet,
		ServerSeed: req.ServerSeed,
		ClientSeed: req.ClientSeed,
		Nonce:      req.Nonce,
	}
	out := dto.FairnessVerifyResponse{GameCode: eng.ID(), ServerSeedHash: fairness.ServerSeedHash(req.ServerSeed)}

	if eng.Kind() == engine.KindCrash {
		p := crash.ComputePoint(req.ServerSeed, req.ClientSeed, req.Nonce)
		m := p.Multiplier()
		out.CrashPoint = &m
		out.InstantBust = p.InstantBust
		if _, ok := action.(engine.CrashCashout); ok {
			_, sess, err := eng.Handle(in, engine.CrashStart{})
			if err != nil {
				return dto.FairnessVerifyResponse{}, err
			}
			in.Session = sess
		}
	}

	res, _, err := eng.Handle(in, action)
	if err != nil {
		return dto.FairnessVerifyResponse{}, err
	}
	out.Result = res
	return out, nil
}
