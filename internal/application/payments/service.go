package payments

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"certhub-backend/internal/application/ledger"
	"certhub-backend/internal/application/policies"
	"certhub-backend/internal/domain"
	"certhub-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const correlationPrefix = "DEP"

// Callback outcomes carried in the redirect's status parameter.
const (
	ResultSuccess          = "success"
	ResultFailed           = "failed"
	ResultAlreadyProcessed = "already_processed"
	ResultError            = "error"
)

type Service struct {
	DB      *gorm.DB
	Ledger  *ledger.Service
	Gateway Gateway
	Policy  policies.Policy

	CallbackURL string // absolute URL of POST /api/v1/payments/callback
	ResultURL   string
	Timeout     time.Duration
	Now         func() time.Time
}

type InitiateResult struct {
	Transaction *domain.Transaction `json:"transaction"`
	Redirect    *Redirect           `json:"redirect,omitempty"`
}

// Callback is the gateway's asynchronous result notification.
type Callback struct {
	CorrelationID string
	ResultCode    int
	ResultMessage string
}

type PackageInput struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Price        decimal.Decimal `json:"price"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
}

// CorrelationID embeds the transaction id in the gateway order id.
func CorrelationID(txID uuid.UUID) string {
	return correlationPrefix + strings.ReplaceAll(txID.String(), "-", "")
}

// ParseCorrelationID reverses CorrelationID.
func ParseCorrelationID(s string) (uuid.UUID, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, correlationPrefix) || len(s) != len(correlationPrefix)+32 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s[len(correlationPrefix):])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Packages lists purchasable credit packages, cheapest first.
func (s *Service) Packages(ctx context.Context) ([]domain.CreditPackage, error) {
	var out []domain.CreditPackage
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Order("price ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CreatePackage(ctx context.Context, actor policies.Actor, in PackageInput) (*domain.CreditPackage, error) {
	if !s.Policy.CanManageCatalog(actor) {
		return nil, domain.ErrForbidden
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	price, err := ledger.NormalizeAmount(in.Price)
	if err != nil {
		return nil, domain.Invalid("price", "must be greater than zero")
	}
	credit, err := ledger.NormalizeAmount(in.CreditAmount)
	if err != nil {
		return nil, domain.Invalid("credit_amount", "must be greater than zero")
	}
	p := &domain.CreditPackage{Name: strings.TrimSpace(in.Name), Price: price, CreditAmount: credit, IsActive: true}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) activePackage(ctx context.Context, id uuid.UUID) (*domain.CreditPackage, error) {
	var p domain.CreditPackage
	if err := s.DB.WithContext(ctx).Where("package_id = ? AND is_active = ?", id, true).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Initiate records a pending card deposit for the package's credit amount and
// asks the gateway to charge the package price. A gateway failure leaves the
// transaction pending with the failure noted in its metadata.
func (s *Service) Initiate(ctx context.Context, actor policies.Actor, packageID uuid.UUID, card Card) (*InitiateResult, error) {
	if err := validation.Struct(card); err != nil {
		return nil, err
	}
	if card.Expired(s.now()) {
		return nil, domain.Invalid("expiry_year", "card has expired")
	}
	pkg, err := s.activePackage(ctx, packageID)
	if err != nil {
		return nil, err
	}

	txID := uuid.New()
	orderID := CorrelationID(txID)
	pending, err := s.Ledger.RecordPending(ctx, ledger.PendingInput{
		ID:          txID,
		UserID:      actor.UserID,
		Amount:      pkg.CreditAmount,
		Type:        domain.TxTypeDeposit,
		Method:      domain.TxMethodCreditCard,
		Description: "Card payment: " + pkg.Name,
		Metadata: map[string]interface{}{
			domain.MetaExternalOrderID: orderID,
			domain.MetaPackageID:       pkg.PackageID.String(),
			domain.MetaPrice:           pkg.Price.StringFixed(2),
		},
	})
	if err != nil {
		return nil, err
	}

	gctx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	redirect, err := s.Gateway.Charge(gctx, OrderRequest{
		OrderID:    orderID,
		Amount:     pkg.Price,
		SuccessURL: s.CallbackURL,
		FailURL:    s.CallbackURL,
		Card:       card,
	})
	if err != nil {
		log.Warn().Err(err).Str("tx_id", txID.String()).Str("order_id", orderID).Msg("payment gateway call failed, transaction left pending")
		if aerr := s.Ledger.Annotate(context.WithoutCancel(ctx), txID, map[string]interface{}{domain.MetaGatewayError: err.Error()}); aerr != nil {
			log.Error().Err(aerr).Str("tx_id", txID.String()).Msg("failed to record gateway error")
		}
		if !errors.Is(err, domain.ErrGatewayRejected) && !errors.Is(err, domain.ErrGatewayUnreachable) {
			err = errors.Join(domain.ErrGatewayUnreachable, err)
		}
		return &InitiateResult{Transaction: pending}, err
	}

	log.Info().Str("tx_id", txID.String()).Str("order_id", orderID).Str("package", pkg.Name).Msg("card payment initiated")
	return &InitiateResult{Transaction: pending, Redirect: redirect}, nil
}

// RequestWireTransfer records a pending wire-transfer deposit. Only an admin
// finalize approves it.
func (s *Service) RequestWireTransfer(ctx context.Context, actor policies.Actor, packageID uuid.UUID) (*domain.Transaction, error) {
	pkg, err := s.activePackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	txID := uuid.New()
	t, err := s.Ledger.RecordPending(ctx, ledger.PendingInput{
		ID:          txID,
		UserID:      actor.UserID,
		Amount:      pkg.CreditAmount,
		Type:        domain.TxTypeDeposit,
		Method:      domain.TxMethodWireTransfer,
		Description: "Wire transfer: " + pkg.Name,
		Metadata: map[string]interface{}{
			domain.MetaExternalOrderID: CorrelationID(txID),
			domain.MetaPackageID:       pkg.PackageID.String(),
			domain.MetaPrice:           pkg.Price.StringFixed(2),
		},
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("tx_id", txID.String()).Str("user_id", actor.UserID.String()).Msg("wire transfer requested")
	return t, nil
}

// HandleCallback finalizes the referenced card deposit at most once and returns
// the URL the payer is redirected to. It never fails; problems show up as
// status=error in the redirect.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) string {
	txID, ok := ParseCorrelationID(cb.CorrelationID)
	if !ok {
		log.Warn().Str("order_id", cb.CorrelationID).Msg("payment callback with unreadable order id")
		return s.redirect(ResultError, "")
	}

	outcome := domain.TxStatusFailed
	result := ResultFailed
	if cb.ResultCode > 0 {
		outcome = domain.TxStatusApproved
		result = ResultSuccess
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t domain.Transaction
		if err := tx.Where("tx_id = ?", txID).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if t.Method != domain.TxMethodCreditCard || t.Type != domain.TxTypeDeposit {
			return domain.ErrNotFound
		}
		if _, err := s.Ledger.FinalizeTx(tx, txID, outcome); err != nil {
			return err
		}
		return s.Ledger.AnnotateTx(tx, txID, map[string]interface{}{
			domain.MetaGatewayMessage: cb.ResultMessage,
			"result_code":             cb.ResultCode,
		})
	})

	switch {
	case err == nil:
		log.Info().Str("tx_id", txID.String()).Str("status", outcome).Int("result_code", cb.ResultCode).Msg("payment callback processed")
		return s.redirect(result, txID.String())
	case errors.Is(err, domain.ErrAlreadyFinalized):
		log.Info().Str("tx_id", txID.String()).Msg("payment callback replayed, already processed")
		return s.redirect(ResultAlreadyProcessed, txID.String())
	case errors.Is(err, domain.ErrNotFound):
		log.Warn().Str("tx_id", txID.String()).Msg("payment callback for unknown transaction")
		return s.redirect(ResultError, txID.String())
	default:
		log.Error().Err(err).Str("tx_id", txID.String()).Msg("payment callback failed, rolled back")
		return s.redirect(ResultError, txID.String())
	}
}

// ParseResultCode reads the gateway's result code, which arrives as a JSON
// number, a JSON string or a form value. Anything that is not an integer is
// rejected so an unreadable payload never settles a transaction.
func ParseResultCode(raw string) (int, error) {
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.Invalid("result_code", "must be an integer")
	}
	return code, nil
}

// RejectCallback answers a callback whose payload could not be read. The
// transaction is left as it is so a later, readable callback can settle it.
func (s *Service) RejectCallback(orderID string, reason error) string {
	txID := ""
	if id, ok := ParseCorrelationID(orderID); ok {
		txID = id.String()
	}
	log.Warn().Err(reason).Str("order_id", orderID).Msg("payment callback payload unreadable, left unsettled")
	return s.redirect(ResultError, txID)
}

func (s *Service) redirect(status, txID string) string {
	q := url.Values{}
	q.Set("status", status)
	if txID != "" {
		q.Set("tx", txID)
	}
	sep := "?"
	if strings.Contains(s.ResultURL, "?") {
		sep = "&"
	}
	return s.ResultURL + sep + q.Encode()
}
