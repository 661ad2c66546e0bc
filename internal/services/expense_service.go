package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/config"
	"github.com/burakozf/splitledger/internal/directory"
	"github.com/burakozf/splitledger/internal/ledger"
	"github.com/burakozf/splitledger/internal/metrics"
	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/repository"
	"github.com/burakozf/splitledger/internal/splitter"
	"github.com/burakozf/splitledger/internal/worker"
)

// ExpenseService records expenses: it splits the total into per-participant
// obligations, persists them as audit facts, and applies each one to the
// pairwise ledger.
type ExpenseService struct {
	store repository.Store
	ldg   *ledger.Ledger
	dir   directory.Directory
	wp    *worker.Pool
	cfg   config.Config
}

func NewExpenseService(store repository.Store, ldg *ledger.Ledger, dir directory.Directory, wp *worker.Pool, cfg config.Config) *ExpenseService {
	return &ExpenseService{store: store, ldg: ldg, dir: dir, wp: wp, cfg: cfg}
}

type ExpenseRequest struct {
	PaidBy          int64                   `json:"paid_by"`
	TotalAmount     decimal.Decimal         `json:"total_amount"`
	Participants    []splitter.Participant  `json:"participants"`
	SplitType       models.SplitType        `json:"split_type"`
	Description     string                  `json:"description"`
	Category        string                  `json:"category,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
	TransactionDate time.Time               `json:"transaction_date,omitempty"`
}

// ObligationView is an obligation with directory names resolved.
type ObligationView struct {
	models.Obligation
	PaidByName string `json:"paid_by_name"`
	OwedByName string `json:"owed_by_name"`
}

// RecordExpense validates the request, computes the shares, persists one
// obligation per participant under a fresh group id, and applies each
// obligation to the ledger. The returned views carry resolved display names.
func (s *ExpenseService) RecordExpense(ctx context.Context, req ExpenseRequest, createdBy int64) ([]ObligationView, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	shares, err := splitter.Shares(req.TotalAmount, req.Participants, req.SplitType)
	if err != nil {
		return nil, err
	}

	groupID := uuid.NewString()
	txDate := req.TransactionDate
	if txDate.IsZero() {
		txDate = time.Now().UTC()
	}
	obs := make([]models.Obligation, 0, len(shares))
	for _, share := range shares {
		obs = append(obs, models.Obligation{
			PaidBy:          req.PaidBy,
			OwedBy:          share.UserID,
			Amount:          share.Amount,
			TotalAmount:     req.TotalAmount,
			Description:     req.Description,
			Category:        req.Category,
			GroupID:         groupID,
			SplitType:       req.SplitType,
			Status:          models.ObligationActive,
			Notes:           req.Notes,
			CreatedBy:       createdBy,
			TransactionDate: txDate,
		})
	}

	keys := make([]string, 0, len(obs))
	for _, o := range obs {
		if o.PaidBy == o.OwedBy {
			continue
		}
		key, err := models.PairKey(o.PaidBy, o.OwedBy)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	// Locks before the transaction so the pair order agrees with the
	// settlement path; obligation rows and their ledger deltas commit or
	// roll back together.
	unlock := s.ldg.LockPairs(keys)
	defer unlock()

	err = retryTx(ctx, s.store, func(tx repository.Store) error {
		var err error
		obs, err = tx.Obligations().CreateBatch(ctx, obs)
		if err != nil {
			return fmt.Errorf("persist obligations: %w", err)
		}
		for _, o := range obs {
			if err := s.ldg.ApplyObligationIn(ctx, tx.Balances(), o.PaidBy, o.OwedBy, o.Amount); err != nil {
				return fmt.Errorf("apply obligation %s: %w", o.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ExpensesRecorded.WithLabelValues(string(req.SplitType)).Inc()
	s.audit("expense", groupID, "recorded", map[string]any{
		"paid_by": req.PaidBy, "total": req.TotalAmount.String(), "participants": len(obs),
	})

	views := make([]ObligationView, 0, len(obs))
	for _, o := range obs {
		views = append(views, s.view(ctx, o))
	}
	return views, nil
}

// CancelExpense marks an obligation CANCELLED and reverses its ledger delta,
// both in one store transaction. Only the creator, payer, or ower may
// cancel. The ACTIVE check is repeated inside the transaction so two
// concurrent cancels cannot reverse the same delta twice.
func (s *ExpenseService) CancelExpense(ctx context.Context, obligationID string, callerID int64) error {
	o, err := s.store.Obligations().GetByID(ctx, obligationID)
	if err != nil {
		return err
	}
	if !o.CanModify(callerID) {
		return ErrNotParticipant
	}
	if o.Status != models.ObligationActive {
		return ErrNotActive
	}

	if o.PaidBy != o.OwedBy {
		key, err := models.PairKey(o.PaidBy, o.OwedBy)
		if err != nil {
			return err
		}
		unlock := s.ldg.LockPair(key)
		defer unlock()
	}

	err = retryTx(ctx, s.store, func(tx repository.Store) error {
		cur, err := tx.Obligations().GetByID(ctx, o.ID)
		if err != nil {
			return err
		}
		if cur.Status != models.ObligationActive {
			return ErrNotActive
		}
		if err := tx.Obligations().UpdateStatus(ctx, cur.ID, models.ObligationCancelled); err != nil {
			return fmt.Errorf("cancel obligation %s: %w", cur.ID, err)
		}
		return s.ldg.ReverseObligationIn(ctx, tx.Balances(), cur.PaidBy, cur.OwedBy, cur.Amount)
	})
	if err != nil {
		return err
	}
	s.audit("expense", o.ID, "cancelled", map[string]any{"by": callerID})
	return nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id string) (ObligationView, error) {
	o, err := s.store.Obligations().GetByID(ctx, id)
	if err != nil {
		return ObligationView{}, err
	}
	return s.view(ctx, o), nil
}

// GetExpenseGroup returns every obligation created by one expense.
func (s *ExpenseService) GetExpenseGroup(ctx context.Context, groupID string) ([]ObligationView, error) {
	obs, err := s.store.Obligations().ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, repository.ErrNotFound
	}
	return s.views(ctx, obs), nil
}

func (s *ExpenseService) ListUserExpenses(ctx context.Context, userID int64, limit int) ([]ObligationView, error) {
	obs, err := s.store.Obligations().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, obs), nil
}

func (s *ExpenseService) ListExpensesBetween(ctx context.Context, userA, userB int64) ([]ObligationView, error) {
	obs, err := s.store.Obligations().ListBetween(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, obs), nil
}

func (s *ExpenseService) validate(req ExpenseRequest) error {
	if len(req.Participants) == 0 {
		return splitter.ErrInvalidSplit
	}
	if req.TotalAmount.LessThan(s.cfg.MinExpenseAmount) {
		return ErrBelowMinimum
	}
	if req.TotalAmount.GreaterThan(s.cfg.MaxExpenseAmount) {
		return ErrAboveMaximum
	}
	if len(req.Participants) > s.cfg.MaxParticipants {
		return ErrTooManyParticipants
	}
	payerIncluded := false
	for _, p := range req.Participants {
		if p.UserID == req.PaidBy {
			payerIncluded = true
			break
		}
	}
	if !payerIncluded {
		return ErrPayerNotIncluded
	}
	return nil
}

func (s *ExpenseService) view(ctx context.Context, o models.Obligation) ObligationView {
	return ObligationView{
		Obligation: o,
		PaidByName: directory.Resolve(ctx, s.dir, o.PaidBy),
		OwedByName: directory.Resolve(ctx, s.dir, o.OwedBy),
	}
}

func (s *ExpenseService) views(ctx context.Context, obs []models.Obligation) []ObligationView {
	out := make([]ObligationView, 0, len(obs))
	for _, o := range obs {
		out = append(out, s.view(ctx, o))
	}
	return out
}

func (s *ExpenseService) audit(entityType, entityID, action string, details map[string]any) {
	if s.wp == nil {
		return
	}
	s.wp.Submit(func() {
		err := s.store.AuditLogs().Create(context.Background(), models.AuditLog{
			EntityType: entityType,
			EntityID:   entityID,
			Action:     action,
			Details:    details,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Debug("audit write failed", "entity", entityID, "err", err)
		}
	})
}
