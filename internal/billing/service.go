package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/krishi-kendra/krishi-kendra/internal/platform/validation"
	"github.com/krishi-kendra/krishi-kendra/internal/shared"
	"github.com/krishi-kendra/krishi-kendra/internal/stock"
)

// Repository persists bills.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (Bill, error)
	List(ctx context.Context, filter ListFilter) ([]Bill, error)
}

// TxRepository exposes the operations that run inside one bill transaction.
type TxRepository interface {
	// Ledger is the product quantity store bound to the same transaction.
	Ledger() stock.Ledger
	BillNumberExists(ctx context.Context, number string) (bool, error)
	InsertBill(ctx context.Context, bill *Bill) error
	// GetForUpdate reads the bill and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (Bill, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (time.Time, error)
	DeleteBill(ctx context.Context, id uuid.UUID) error
	InsertAudit(ctx context.Context, log shared.AuditLog) error
}

// Observer receives lifecycle events for metrics.
type Observer interface {
	BillCreated(billType, paymentMode string)
	BillStatusChanged(from, to string)
	BillDeleted(status string)
}

// ChangeNotifier is told after a bill mutation commits.
type ChangeNotifier interface {
	BillsChanged(ctx context.Context)
}

// ServiceConfig tunes the billing service.
type ServiceConfig struct {
	// GSTRate applies to pakka bills. Nil selects DefaultGSTRate; zero is a
	// valid configured rate.
	GSTRate  *decimal.Decimal
	Location *time.Location
}

// Service implements the bill lifecycle.
type Service struct {
	repo     Repository
	engine   *stock.Engine
	logger   *slog.Logger
	validate *validator.Validate
	config   ServiceConfig
	gstRate  decimal.Decimal
	observer Observer
	notifier ChangeNotifier
	now      func() time.Time
}

// NewService constructs the billing service. observer and notifier may be nil.
func NewService(repo Repository, engine *stock.Engine, cfg ServiceConfig, logger *slog.Logger, observer Observer, notifier ChangeNotifier) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = stock.NewEngine(logger, nil)
	}
	gstRate := DefaultGSTRate
	if cfg.GSTRate != nil {
		gstRate = *cfg.GSTRate
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		repo:     repo,
		engine:   engine,
		logger:   logger,
		validate: validation.New(),
		config:   cfg,
		gstRate:  gstRate,
		observer: observer,
		notifier: notifier,
		now:      time.Now,
	}
}

// CreateBill validates the request, debits stock for every line and stores
// the bill as pending, all in one transaction. A *stock.StockError is
// returned unchanged and nothing is persisted.
func (s *Service) CreateBill(ctx context.Context, input CreateBillInput, actor string) (Bill, error) {
	bill, err := s.prepare(input)
	if err != nil {
		return Bill{}, err
	}
	bill.CreatedBy = actor

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.BillNumberExists(ctx, bill.BillNumber)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateBillNumber
		}
		if err := s.engine.ValidateAndDebit(ctx, tx.Ledger(), bill.StockLines()); err != nil {
			return err
		}
		if err := tx.InsertBill(ctx, &bill); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, shared.AuditLog{
			ActorID:  actor,
			Action:   "bill.create",
			Entity:   "bill",
			EntityID: bill.ID.String(),
			Meta: map[string]any{
				"bill_number":  bill.BillNumber,
				"total":        bill.Total.String(),
				"payment_mode": string(bill.PaymentMode),
				"items":        len(bill.Items),
			},
		})
	})
	if err != nil {
		var shortage *stock.StockError
		if errors.As(err, &shortage) {
			s.logger.InfoContext(ctx, "bill rejected for stock",
				slog.String("bill_number", bill.BillNumber),
				slog.String("product", shortage.Product),
				slog.Int64("available", shortage.Available),
				slog.Int64("required", shortage.Required))
		}
		return Bill{}, err
	}

	s.logger.InfoContext(ctx, "bill created",
		slog.String("bill_id", bill.ID.String()),
		slog.String("bill_number", bill.BillNumber),
		slog.String("total", bill.Total.String()))
	if s.observer != nil {
		s.observer.BillCreated(string(bill.BillType), string(bill.PaymentMode))
	}
	s.changed(ctx)
	return bill, nil
}

// UpdateStatus moves a bill through the lifecycle. Cancelling credits the
// bill's stock exactly once; the status is re-read under a row lock so
// concurrent cancellations cannot both credit.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, actor string) (Bill, error) {
	if !status.Valid() {
		return Bill{}, ErrInvalidStatus
	}
	var (
		bill    Bill
		from    Status
		changed bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		bill, from = current, current.Status
		effect, err := transition(current.Status, status)
		if err != nil {
			return err
		}
		if effect == effectNoop {
			return nil
		}
		if effect == effectCreditStock {
			if err := s.engine.Credit(ctx, tx.Ledger(), current.StockLines()); err != nil {
				return err
			}
		}
		updatedAt, err := tx.UpdateStatus(ctx, id, status)
		if err != nil {
			return err
		}
		bill.Status, bill.UpdatedAt, changed = status, updatedAt, true
		return tx.InsertAudit(ctx, shared.AuditLog{
			ActorID:  actor,
			Action:   "bill.status",
			Entity:   "bill",
			EntityID: id.String(),
			Meta: map[string]any{
				"from":           string(from),
				"to":             string(status),
				"stock_credited": effect == effectCreditStock,
			},
		})
	})
	if err != nil {
		return Bill{}, err
	}
	if changed {
		s.logger.InfoContext(ctx, "bill status changed",
			slog.String("bill_id", id.String()),
			slog.String("from", string(from)),
			slog.String("to", string(status)))
		if s.observer != nil {
			s.observer.BillStatusChanged(string(from), string(status))
		}
		s.changed(ctx)
	}
	return bill, nil
}

// DeleteBill removes a bill, crediting its stock unless it was already
// cancelled.
func (s *Service) DeleteBill(ctx context.Context, id uuid.UUID, actor string) error {
	var status Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		status = current.Status
		credited := creditsOnDelete(current.Status)
		if credited {
			if err := s.engine.Credit(ctx, tx.Ledger(), current.StockLines()); err != nil {
				return err
			}
		}
		if err := tx.DeleteBill(ctx, id); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, shared.AuditLog{
			ActorID:  actor,
			Action:   "bill.delete",
			Entity:   "bill",
			EntityID: id.String(),
			Meta: map[string]any{
				"bill_number":    current.BillNumber,
				"status":         string(current.Status),
				"stock_credited": credited,
			},
		})
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "bill deleted", slog.String("bill_id", id.String()), slog.String("status", string(status)))
	if s.observer != nil {
		s.observer.BillDeleted(string(status))
	}
	s.changed(ctx)
	return nil
}

// GetBill fetches one bill.
func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (Bill, error) {
	return s.repo.Get(ctx, id)
}

// ListBills returns bills newest first.
func (s *Service) ListBills(ctx context.Context, filter ListFilter) ([]Bill, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// ListPending returns pending bills newest first.
func (s *Service) ListPending(ctx context.Context) ([]Bill, error) {
	return s.repo.List(ctx, ListFilter{Status: StatusPending})
}

func (s *Service) prepare(input CreateBillInput) (Bill, error) {
	input.BillNumber = strings.TrimSpace(input.BillNumber)
	input.Customer.Name = strings.TrimSpace(input.Customer.Name)
	input.Customer.Mobile = strings.TrimSpace(input.Customer.Mobile)
	if len(input.Items) == 0 {
		return Bill{}, ErrEmptyBill
	}
	if err := validation.Struct(s.validate, input); err != nil {
		return Bill{}, err
	}

	dueDate, err := s.parseDueDate(input.DueDate)
	if err != nil {
		return Bill{}, err
	}

	bill := Bill{
		ID:         uuid.New(),
		BillNumber: input.BillNumber,
		BillType:   input.BillType,
		Customer: Customer{
			ID:      strings.TrimSpace(input.Customer.ID),
			Name:    input.Customer.Name,
			Mobile:  validation.NormalizeMobile(input.Customer.Mobile),
			Address: strings.TrimSpace(input.Customer.Address),
		},
		PaymentMode: input.PaymentMode,
		DueDate:     dueDate,
		Status:      StatusPending,
	}
	if bill.BillType == "" {
		bill.BillType = BillTypeKaccha
	}
	if bill.PaymentMode == "" {
		bill.PaymentMode = PaymentCash
	}

	items := make([]Item, len(input.Items))
	for i, in := range input.Items {
		items[i] = Item{
			ProductID:   in.ProductID,
			ProductName: strings.TrimSpace(in.ProductName),
			Quantity:    in.Quantity,
			Rate:        in.Rate,
		}
	}
	items, totals := ComputeTotals(items, bill.BillType, s.gstRate)
	if err := checkClaimed(input, items, totals); err != nil {
		return Bill{}, err
	}
	bill.Items = items
	bill.Subtotal, bill.GST, bill.Total = totals.Subtotal, totals.GST, totals.Total
	return bill, nil
}

func (s *Service) parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, s.config.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDueDate, raw)
	}
	return &t, nil
}

func (s *Service) changed(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.BillsChanged(ctx)
	}
}
