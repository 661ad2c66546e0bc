package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/directory"
	"github.com/burakozf/splitledger/internal/ledger"
	"github.com/burakozf/splitledger/internal/metrics"
	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/repository"
	"github.com/burakozf/splitledger/internal/worker"
)

// SettlementService validates settlement requests against the ledger's
// current state and applies them: the settlement record and the balance
// mutation commit as one transactional unit.
type SettlementService struct {
	store     repository.Store
	ldg       *ledger.Ledger
	dir       directory.Directory
	wp        *worker.Pool
	minAmount decimal.Decimal
}

func NewSettlementService(store repository.Store, ldg *ledger.Ledger, dir directory.Directory, wp *worker.Pool, minAmount decimal.Decimal) *SettlementService {
	return &SettlementService{store: store, ldg: ldg, dir: dir, wp: wp, minAmount: minAmount}
}

type SettlementRequest struct {
	PayerID        int64                   `json:"payer_id"`
	PayeeID        int64                   `json:"payee_id"`
	Amount         decimal.Decimal         `json:"amount"`
	Method         models.SettlementMethod `json:"method,omitempty"`
	Description    string                  `json:"description,omitempty"`
	Notes          string                  `json:"notes,omitempty"`
	ReferenceID    string                  `json:"reference_id,omitempty"`
	SettlementDate time.Time               `json:"settlement_date,omitempty"`
}

// Create checks the request in order (same user, minimum amount, no debt,
// exceeds debt), persists the COMPLETED settlement, and applies the delta to
// the ledger inside one store transaction. The caller must be the payer or
// the payee. The debt checks run inside the transaction with the pair lock
// held, so two concurrent settlements can never both consume the same debt.
func (s *SettlementService) Create(ctx context.Context, req SettlementRequest, createdBy int64) (models.Settlement, error) {
	if req.PayerID == req.PayeeID {
		return models.Settlement{}, models.ErrSameUser
	}
	if createdBy != req.PayerID && createdBy != req.PayeeID {
		return models.Settlement{}, ErrNotParticipant
	}
	method := req.Method
	if method == "" {
		method = models.MethodCash
	}
	if !models.ValidMethod(method) {
		return models.Settlement{}, ErrInvalidMethod
	}
	if req.Amount.LessThan(s.minAmount) {
		metrics.SettlementsFailed.Inc()
		return models.Settlement{}, ErrBelowMinimum
	}

	balanceKey, err := models.PairKey(req.PayerID, req.PayeeID)
	if err != nil {
		return models.Settlement{}, err
	}
	proto := models.Settlement{
		PayerID:        req.PayerID,
		PayeeID:        req.PayeeID,
		Amount:         req.Amount,
		Description:    req.Description,
		BalanceKey:     balanceKey,
		Method:         method,
		Status:         models.SettlementCompleted,
		Notes:          req.Notes,
		ReferenceID:    req.ReferenceID,
		CreatedBy:      createdBy,
		SettlementDate: req.SettlementDate,
	}

	// Pair lock first, transaction second. The standalone ledger methods
	// take the same lock, so every path agrees on the order.
	unlock := s.ldg.LockPair(balanceKey)
	defer unlock()

	var settlement models.Settlement
	err = retryTx(ctx, s.store, func(tx repository.Store) error {
		owed, err := s.ldg.BalanceIn(ctx, tx.Balances(), req.PayerID, req.PayeeID)
		if err != nil {
			return err
		}
		if owed.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("user %d to user %d: %w", req.PayerID, req.PayeeID, ErrNoDebt)
		}
		if req.Amount.GreaterThan(owed) {
			return fmt.Errorf("amount %s, outstanding %s: %w",
				req.Amount.StringFixed(2), owed.StringFixed(2), ErrExceedsDebt)
		}

		settlement, err = tx.Settlements().Create(ctx, proto)
		if err != nil {
			return fmt.Errorf("persist settlement: %w", err)
		}
		return s.ldg.ApplySettlement(ctx, tx.Balances(), req.PayerID, req.PayeeID, req.Amount)
	})
	if err != nil {
		metrics.SettlementsFailed.Inc()
		return models.Settlement{}, err
	}

	metrics.SettlementsTotal.Inc()
	s.audit(settlement)
	return settlement, nil
}

func (s *SettlementService) Get(ctx context.Context, id string) (models.Settlement, error) {
	return s.store.Settlements().GetByID(ctx, id)
}

func (s *SettlementService) ListByUser(ctx context.Context, userID int64) ([]models.Settlement, error) {
	return s.store.Settlements().ListByUser(ctx, userID)
}

func (s *SettlementService) ListBetween(ctx context.Context, userA, userB int64) ([]models.Settlement, error) {
	return s.store.Settlements().ListBetween(ctx, userA, userB)
}

func (s *SettlementService) audit(st models.Settlement) {
	if s.wp == nil {
		return
	}
	s.wp.Submit(func() {
		_ = s.store.AuditLogs().Create(context.Background(), models.AuditLog{
			EntityType: "settlement",
			EntityID:   st.ID,
			Action:     "completed",
			Details: map[string]any{
				"payer": st.PayerID, "payee": st.PayeeID, "amount": st.Amount.String(),
			},
		})
	})
}
