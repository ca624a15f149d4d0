// internal/service/ledger_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sparkwallet/internal/domain"
	"sparkwallet/internal/metrics"
	"sparkwallet/internal/repository"
	"sparkwallet/internal/util"
	"sparkwallet/pkg/db"
)

// AppendRequest is the typed input for a ledger append. Optional fields are
// pointers; a zero Amount is invalid.
type AppendRequest struct {
	UserID          int64
	Amount          int64 // signed: positive credits, negative debits
	TransactionType domain.TransactionType
	ActionType      string
	ReferenceID     *int64
	Notes           *string
	// IdempotencyKey makes a retried append apply at most once. When empty,
	// a key is generated so every row still carries a replay token.
	IdempotencyKey string
}

// LedgerService owns the append-only credit ledger and the materialized
// wallet balance derived from it.
type LedgerService interface {
	// Append atomically applies a signed amount to a user's wallet and
	// records the ledger row carrying the resulting balance. A debit that
	// would drive the balance negative fails with an error matching
	// util.ErrInsufficientFunds and leaves no trace. Replaying an
	// IdempotencyKey returns the original row without applying again.
	Append(ctx context.Context, req AppendRequest) (*domain.LedgerTransaction, error)
	// CreditPurchase records a known-successful credit purchase reported by
	// the payment flow. The idempotency key is mandatory here: payment
	// callbacks are retried by their producers.
	CreditPurchase(ctx context.Context, userID, amount int64, idempotencyKey string, notes *string) (*domain.LedgerTransaction, error)
	// GetBalance returns the user's current balance; users with no ledger
	// history have an implicit zero wallet.
	GetBalance(ctx context.Context, userID int64) (int64, error)
	// ListTransactions returns a user's ledger rows newest first.
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]domain.LedgerTransaction, int64, error)
}

// ledgerService implements the LedgerService interface.
type ledgerService struct {
	dbBeginner db.DBTxBeginner       // For starting transactions (e.g., *sqlx.DB)
	dbExecutor repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	walletRepo repository.WalletRepository
	ledgerRepo repository.LedgerRepository
	beginTx    db.BeginTxFunc
	commitTx   db.CommitTxFunc
	rollbackTx db.RollbackTxFunc
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	walletRepo repository.WalletRepository,
	ledgerRepo repository.LedgerRepository,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
) LedgerService {
	return &ledgerService{
		dbBeginner: dbBeginner,
		dbExecutor: dbExecutor,
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		beginTx:    beginTx,
		commitTx:   commitTx,
		rollbackTx: rollbackTx,
	}
}

// Append applies the amount and records the ledger row in one database
// transaction. The row lock taken on the wallet row is the per-user
// serialization point: of two concurrent debits racing on the same balance,
// the second observes the first's committed balance, not the stale one.
func (s *ledgerService) Append(ctx context.Context, req AppendRequest) (*domain.LedgerTransaction, error) {
	if req.Amount == 0 {
		return nil, fmt.Errorf("append: zero amount: %w", util.ErrInvalidInput)
	}
	if !req.TransactionType.Valid() {
		return nil, fmt.Errorf("append: transaction type %q: %w", req.TransactionType, util.ErrInvalidInput)
	}
	if strings.TrimSpace(req.ActionType) == "" {
		return nil, fmt.Errorf("append: empty action type: %w", util.ErrInvalidInput)
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	tx, err := s.append(ctx, req, key)
	if err != nil {
		switch {
		case util.IsError(err, util.ErrDuplicateEvent):
			// The key was already applied; return the original row so the
			// caller sees the same outcome as the first attempt.
			metrics.LedgerAppends.WithLabelValues(string(req.TransactionType), metrics.ResultDuplicate).Inc()
			return s.ledgerRepo.GetByIdempotencyKey(ctx, s.dbExecutor, key)
		case util.IsError(err, util.ErrInsufficientFunds):
			metrics.LedgerAppends.WithLabelValues(string(req.TransactionType), metrics.ResultRejected).Inc()
		default:
			metrics.LedgerAppends.WithLabelValues(string(req.TransactionType), metrics.ResultError).Inc()
		}
		return nil, err
	}

	metrics.LedgerAppends.WithLabelValues(string(req.TransactionType), metrics.ResultOK).Inc()
	return tx, nil
}

// append is the single atomic read-check-write unit behind Append.
func (s *ledgerService) append(ctx context.Context, req AppendRequest, key string) (*domain.LedgerTransaction, error) {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, util.WrapStorage(fmt.Errorf("append: failed to begin transaction: %w", err))
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("append: transaction controller does not implement DBExecutor")
	}

	if err := s.walletRepo.EnsureWallet(ctx, txExecutor, req.UserID); err != nil {
		return nil, util.WrapStorage(fmt.Errorf("append: %w", err))
	}
	wallet, err := s.walletRepo.GetWalletForUpdate(ctx, txExecutor, req.UserID)
	if err != nil {
		return nil, util.WrapStorage(fmt.Errorf("append: %w", err))
	}

	newBalance := wallet.Balance + req.Amount
	if newBalance < 0 {
		return nil, &util.InsufficientCreditsError{
			Required:  -req.Amount,
			Available: wallet.Balance,
		}
	}

	if err := s.walletRepo.SetBalance(ctx, txExecutor, req.UserID, newBalance); err != nil {
		return nil, util.WrapStorage(fmt.Errorf("append: %w", err))
	}

	transaction := domain.NewLedgerTransaction(req.UserID, req.Amount, req.TransactionType, req.ActionType, req.ReferenceID, req.Notes)
	transaction.BalanceAfter = newBalance
	transaction.IdempotencyKey = &key
	if err := s.ledgerRepo.Insert(ctx, txExecutor, transaction); err != nil {
		if util.IsError(err, util.ErrDuplicateEvent) {
			return nil, err
		}
		return nil, util.WrapStorage(fmt.Errorf("append: %w", err))
	}

	if err := s.commitTx(txController); err != nil {
		return nil, util.WrapStorage(fmt.Errorf("append: failed to commit transaction: %w", err))
	}

	return transaction, nil
}

// CreditPurchase records a purchase credit reported by the payment flow.
func (s *ledgerService) CreditPurchase(ctx context.Context, userID, amount int64, idempotencyKey string, notes *string) (*domain.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit purchase: non-positive amount %d: %w", amount, util.ErrInvalidInput)
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		return nil, fmt.Errorf("credit purchase: missing idempotency key: %w", util.ErrInvalidInput)
	}

	return s.Append(ctx, AppendRequest{
		UserID:          userID,
		Amount:          amount,
		TransactionType: domain.TransactionTypePurchase,
		ActionType:      "credits_purchase",
		Notes:           notes,
		IdempotencyKey:  idempotencyKey,
	})
}

// GetBalance returns the user's current balance without blocking writers.
func (s *ledgerService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	wallet, err := s.walletRepo.GetWallet(ctx, s.dbExecutor, userID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return 0, nil // wallet is created implicitly at zero on first use
		}
		return 0, util.WrapStorage(fmt.Errorf("get balance: %w", err))
	}
	return wallet.Balance, nil
}

// ListTransactions retrieves a paginated slice of a user's ledger history,
// newest first, plus the total row count.
func (s *ledgerService) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]domain.LedgerTransaction, int64, error) {
	transactions, total, err := s.ledgerRepo.ListByUser(ctx, s.dbExecutor, userID, limit, offset)
	if err != nil {
		return nil, 0, util.WrapStorage(fmt.Errorf("list transactions: %w", err))
	}
	return transactions, total, nil
}
