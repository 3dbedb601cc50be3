package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certhub-backend/internal/application/policies"
	"certhub-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service owns dealer balances and the transaction log.
// Balance changes only when a transaction is written as, or moves to, approved.
type Service struct {
	DB     *gorm.DB
	Policy policies.Policy
}

func New(db *gorm.DB, policy policies.Policy) *Service {
	if policy == nil {
		policy = policies.RolePolicy{}
	}
	return &Service{DB: db, Policy: policy}
}

type PendingInput struct {
	ID          uuid.UUID // optional; generated when nil
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Type        string
	Method      string
	Description string
	Metadata    map[string]interface{}
}

// HistoryFilter narrows History. Empty fields match everything.
type HistoryFilter struct {
	Type   string
	Status string
	Page   int
	Limit  int
}

type HistoryPage struct {
	Items []domain.Transaction `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

type AuditResult struct {
	UserID     uuid.UUID       `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	Derived    decimal.Decimal `json:"derived"`
	Consistent bool            `json:"consistent"`
}

// NormalizeAmount rounds to cents and rejects non-positive values.
func NormalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	a := amount.Round(2)
	if !a.IsPositive() {
		return decimal.Zero, domain.Invalid("amount", "must be greater than zero")
	}
	return a, nil
}

// RecordPending inserts a pending transaction. The balance is untouched.
func (s *Service) RecordPending(ctx context.Context, in PendingInput) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.RecordPendingTx(tx, in)
		out = t
		return err
	})
	return out, err
}

// RecordPendingTx is RecordPending inside the caller's transaction.
func (s *Service) RecordPendingTx(tx *gorm.DB, in PendingInput) (*domain.Transaction, error) {
	amount, err := NormalizeAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if !domain.IsValidTxType(in.Type) {
		return nil, domain.Invalid("type", "unknown transaction type")
	}
	if !domain.IsValidTxMethod(in.Method) {
		return nil, domain.Invalid("method", "unknown transaction method")
	}
	if in.UserID == uuid.Nil {
		return nil, domain.Invalid("user_id", "required")
	}
	if _, err := findUser(tx, in.UserID); err != nil {
		return nil, err
	}

	t := &domain.Transaction{
		TxID:        in.ID,
		UserID:      in.UserID,
		Amount:      amount,
		Type:        in.Type,
		Method:      in.Method,
		Status:      domain.TxStatusPending,
		Description: in.Description,
		Metadata:    datatypes.JSONMap(copyMeta(in.Metadata)),
	}
	if err := tx.Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// Finalize moves a pending transaction to outcome. Any other current status
// yields ErrAlreadyFinalized along with the stored transaction.
func (s *Service) Finalize(ctx context.Context, txID uuid.UUID, outcome string) (*domain.Transaction, error) {
	var out *domain.Transaction
	var already bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.FinalizeTx(tx, txID, outcome)
		out = t
		if errors.Is(err, domain.ErrAlreadyFinalized) {
			already = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if already {
		return out, domain.ErrAlreadyFinalized
	}
	return out, nil
}

// FinalizeByActor is Finalize for the admin approval path.
func (s *Service) FinalizeByActor(ctx context.Context, actor policies.Actor, txID uuid.UUID, outcome string) (*domain.Transaction, error) {
	if !s.Policy.CanFinalize(actor) {
		return nil, domain.ErrForbidden
	}
	t, err := s.Finalize(ctx, txID, outcome)
	if err == nil {
		log.Info().Str("tx_id", txID.String()).Str("status", outcome).Str("by", actor.UserID.String()).Msg("transaction finalized by admin")
	}
	return t, err
}

// FinalizeTx locks the transaction row, then for approved deposits and refunds
// locks the owner's row and credits the amount, all within tx.
func (s *Service) FinalizeTx(tx *gorm.DB, txID uuid.UUID, outcome string) (*domain.Transaction, error) {
	if !domain.IsFinalOutcome(outcome) {
		return nil, domain.Invalid("status", "must be approved, rejected or failed")
	}

	var t domain.Transaction
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("tx_id = ?", txID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if t.Status != domain.TxStatusPending {
		return &t, domain.ErrAlreadyFinalized
	}

	now := time.Now().UTC()
	res := tx.Model(&domain.Transaction{}).
		Where("tx_id = ? AND status = ?", t.TxID, domain.TxStatusPending).
		Updates(map[string]interface{}{"status": outcome, "finalized_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return &t, domain.ErrAlreadyFinalized
	}
	t.Status = outcome
	t.FinalizedAt = &now

	if outcome == domain.TxStatusApproved && t.Credits() {
		if _, err := adjustBalance(tx, t.UserID, t.Amount); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// DebitForExpense must run inside the caller's transaction so the debit commits
// or rolls back with sibling writes. Balance-exempt actors are neither checked nor charged.
func (s *Service) DebitForExpense(tx *gorm.DB, actor policies.Actor, userID uuid.UUID, amount decimal.Decimal, description string, metadata map[string]interface{}) (*domain.Transaction, error) {
	amt, err := NormalizeAmount(amount)
	if err != nil {
		return nil, err
	}

	u, err := lockUser(tx, userID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.BalanceExempt(actor) {
		if u.Balance.LessThan(amt) {
			return nil, domain.ErrInsufficientBalance
		}
		if err := tx.Model(&domain.User{}).Where("user_id = ?", userID).Update("balance", u.Balance.Sub(amt)).Error; err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	t := &domain.Transaction{
		UserID:      userID,
		Amount:      amt,
		Type:        domain.TxTypeExpense,
		Method:      domain.TxMethodSystem,
		Status:      domain.TxStatusApproved,
		Description: description,
		Metadata:    datatypes.JSONMap(copyMeta(metadata)),
		FinalizedAt: &now,
	}
	if err := tx.Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// Credit is an administrative top-up: a system deposit approved on the spot.
func (s *Service) Credit(ctx context.Context, actor policies.Actor, userID uuid.UUID, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	if !s.Policy.CanFinalize(actor) {
		return nil, domain.ErrForbidden
	}
	if description == "" {
		description = "Balance credit"
	}
	var out *domain.Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.RecordPendingTx(tx, PendingInput{
			UserID:      userID,
			Amount:      amount,
			Type:        domain.TxTypeDeposit,
			Method:      domain.TxMethodSystem,
			Description: description,
			Metadata:    map[string]interface{}{"credited_by": actor.UserID.String()},
		})
		if err != nil {
			return err
		}
		out, err = s.FinalizeTx(tx, t.TxID, domain.TxStatusApproved)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", userID.String()).Str("amount", out.Amount.StringFixed(2)).Msg("balance credited")
	return out, nil
}

// Annotate merges keys into a transaction's metadata. Status is not touched.
func (s *Service) Annotate(ctx context.Context, txID uuid.UUID, meta map[string]interface{}) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.AnnotateTx(tx, txID, meta)
	})
}

func (s *Service) AnnotateTx(tx *gorm.DB, txID uuid.UUID, meta map[string]interface{}) error {
	var t domain.Transaction
	if err := tx.Where("tx_id = ?", txID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	merged := copyMeta(t.Metadata)
	for k, v := range meta {
		merged[k] = v
	}
	return tx.Model(&domain.Transaction{}).Where("tx_id = ?", txID).Update("metadata", datatypes.JSONMap(merged)).Error
}

// Get returns a single transaction.
func (s *Service) Get(ctx context.Context, txID uuid.UUID) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := s.DB.WithContext(ctx).Where("tx_id = ?", txID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	u, err := findUser(s.DB.WithContext(ctx), userID)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Balance.Round(2), nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, f HistoryFilter) (*HistoryPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}

	q := s.DB.WithContext(ctx).Model(&domain.Transaction{}).Where("user_id = ?", userID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	page := &HistoryPage{Items: []domain.Transaction{}, Page: f.Page, Limit: f.Limit}
	if err := q.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return nil, err
	}
	if err := q.Order(`"createdAt" DESC`).Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&page.Items).Error; err != nil {
		return nil, err
	}
	return page, nil
}

// Audit recomputes the balance from approved transactions and compares it
// with the stored value.
func (s *Service) Audit(ctx context.Context, userID uuid.UUID) (*AuditResult, error) {
	db := s.DB.WithContext(ctx)
	u, err := findUser(db, userID)
	if err != nil {
		return nil, err
	}

	var txs []domain.Transaction
	if err := db.Select("amount", "type").Where("user_id = ? AND status = ?", userID, domain.TxStatusApproved).Find(&txs).Error; err != nil {
		return nil, err
	}
	derived := decimal.Zero
	for _, t := range txs {
		if t.Credits() {
			derived = derived.Add(t.Amount)
		} else if t.Type == domain.TxTypeExpense && !s.exempt(u) {
			derived = derived.Sub(t.Amount)
		}
	}

	res := &AuditResult{
		UserID:     userID,
		Balance:    u.Balance.Round(2),
		Derived:    derived.Round(2),
		Consistent: u.Balance.Round(2).Equal(derived.Round(2)),
	}
	if !res.Consistent {
		log.Warn().Str("user_id", userID.String()).Str("balance", res.Balance.StringFixed(2)).Str("derived", res.Derived.StringFixed(2)).Msg("ledger audit mismatch")
	}
	return res, nil
}

// exempt users are never charged, so their expenses do not count against the balance.
func (s *Service) exempt(u *domain.User) bool {
	return s.Policy.BalanceExempt(policies.Actor{UserID: u.UserID, Role: u.Role})
}

func findUser(db *gorm.DB, userID uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := db.Where("user_id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func lockUser(tx *gorm.DB, userID uuid.UUID) (*domain.User, error) {
	return findUser(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

// LockUser takes the row lock other services use to serialize per-dealer work.
func LockUser(tx *gorm.DB, userID uuid.UUID) (*domain.User, error) {
	return lockUser(tx, userID)
}

func adjustBalance(tx *gorm.DB, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	u, err := lockUser(tx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	next := u.Balance.Add(delta).Round(2)
	if err := tx.Model(&domain.User{}).Where("user_id = ?", userID).Update("balance", next).Error; err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

func copyMeta(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
