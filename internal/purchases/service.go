package purchases

import (
	"context"
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

// Repository persists purchases.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context) ([]Purchase, error)
	Get(ctx context.Context, id uuid.UUID) (Purchase, error)
}

// TxRepository exposes transactional purchase operations.
type TxRepository interface {
	Ledger() stock.Ledger
	// ClaimKey records an idempotency key, failing with ErrDuplicateRequest
	// when it was seen before.
	ClaimKey(ctx context.Context, key string) error
	Insert(ctx context.Context, p *Purchase) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (Purchase, error)
	Update(ctx context.Context, p *Purchase) error
	Delete(ctx context.Context, id uuid.UUID) error
	InsertAudit(ctx context.Context, log shared.AuditLog) error
}

// ChangeNotifier is told when purchases moved stock.
type ChangeNotifier interface {
	CatalogChanged(ctx context.Context)
}

// ServiceConfig tunes the purchases service.
type ServiceConfig struct {
	// CreditStock adds catalog-linked purchase lines to product quantities.
	CreditStock bool
	Location    *time.Location
}

// Service implements company purchase bookkeeping.
type Service struct {
	repo     Repository
	engine   *stock.Engine
	logger   *slog.Logger
	validate *validator.Validate
	config   ServiceConfig
	notifier ChangeNotifier
	now      func() time.Time
}

// NewService constructs the purchases service. notifier may be nil.
func NewService(repo Repository, engine *stock.Engine, cfg ServiceConfig, logger *slog.Logger, notifier ChangeNotifier) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = stock.NewEngine(logger, nil)
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
		notifier: notifier,
		now:      time.Now,
	}
}

// List returns purchases newest first.
func (s *Service) List(ctx context.Context) ([]Purchase, error) {
	return s.repo.List(ctx)
}

// Get fetches one purchase.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Purchase, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a purchase. A non-empty idempotencyKey makes retries of the
// same request fail with ErrDuplicateRequest instead of recording it twice.
func (s *Service) Create(ctx context.Context, input Input, idempotencyKey, actor string) (Purchase, error) {
	purchase, err := s.fromInput(input)
	if err != nil {
		return Purchase{}, err
	}
	purchase.ID = uuid.New()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if key := strings.TrimSpace(idempotencyKey); key != "" {
			if err := tx.ClaimKey(ctx, key); err != nil {
				return err
			}
		}
		if err := s.credit(ctx, tx, &purchase); err != nil {
			return err
		}
		if err := tx.Insert(ctx, &purchase); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, audit(actor, "purchase.create", purchase))
	})
	if err != nil {
		return Purchase{}, err
	}
	s.logger.InfoContext(ctx, "purchase recorded",
		slog.String("purchase_id", purchase.ID.String()),
		slog.String("company", purchase.CompanyName),
		slog.String("total", purchase.TotalAmount.String()),
		slog.Bool("stock_credited", purchase.StockCredited))
	s.stockChanged(ctx, purchase.StockCredited)
	return purchase, nil
}

// Update replaces a purchase. Lines credited when the purchase was recorded
// are taken back out of stock first; the new lines are credited when stock
// crediting is enabled now.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input, actor string) (Purchase, error) {
	purchase, err := s.fromInput(input)
	if err != nil {
		return Purchase{}, err
	}
	purchase.ID = id

	var previous Purchase
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		previous, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		purchase.CreatedAt = previous.CreatedAt
		if err := s.reverse(ctx, tx, previous); err != nil {
			return err
		}
		if err := s.credit(ctx, tx, &purchase); err != nil {
			return err
		}
		if err := tx.Update(ctx, &purchase); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, audit(actor, "purchase.update", purchase))
	})
	if err != nil {
		return Purchase{}, err
	}
	s.logger.InfoContext(ctx, "purchase updated", slog.String("purchase_id", id.String()))
	s.stockChanged(ctx, previous.StockCredited || purchase.StockCredited)
	return purchase, nil
}

// Delete removes a purchase, taking back whatever stock it credited.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	var previous Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		previous, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.reverse(ctx, tx, previous); err != nil {
			return err
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, audit(actor, "purchase.delete", previous))
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "purchase deleted", slog.String("purchase_id", id.String()))
	s.stockChanged(ctx, previous.StockCredited)
	return nil
}

func (s *Service) credit(ctx context.Context, tx TxRepository, p *Purchase) error {
	p.markCredited(nil)
	lines := p.StockLines()
	if !s.config.CreditStock || len(lines) == 0 {
		return nil
	}
	credited, err := s.engine.CreditExisting(ctx, tx.Ledger(), lines)
	if err != nil {
		return err
	}
	p.markCredited(credited)
	return nil
}

// reverse withdraws only what was credited, whatever the current setting.
func (s *Service) reverse(ctx context.Context, tx TxRepository, p Purchase) error {
	lines := p.CreditedLines()
	if len(lines) == 0 {
		return nil
	}
	return s.engine.Withdraw(ctx, tx.Ledger(), lines)
}

func (s *Service) stockChanged(ctx context.Context, moved bool) {
	if moved && s.notifier != nil {
		s.notifier.CatalogChanged(ctx)
	}
}

func audit(actor, action string, p Purchase) shared.AuditLog {
	return shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "company_purchase",
		EntityID: p.ID.String(),
		Meta: map[string]any{
			"company": p.CompanyName,
			"total":   p.TotalAmount.String(),
			"items":   len(p.Items),
		},
	}
}

func (s *Service) fromInput(input Input) (Purchase, error) {
	input.CompanyName = strings.TrimSpace(input.CompanyName)
	if err := validation.Struct(s.validate, input); err != nil {
		return Purchase{}, err
	}
	paymentDate, err := s.parseDate(input.PaymentDate)
	if err != nil {
		return Purchase{}, err
	}
	items := make([]Item, len(input.Items))
	for i, in := range input.Items {
		total := in.Rate.Mul(decimal.NewFromInt(in.Quantity))
		if in.Total != nil {
			total = *in.Total
		}
		items[i] = Item{
			ProductID:   strings.ToLower(strings.TrimSpace(in.ProductID)),
			ProductName: strings.TrimSpace(in.ProductName),
			Quantity:    in.Quantity,
			Rate:        in.Rate,
			Total:       total,
		}
	}
	return Purchase{
		CompanyName: input.CompanyName,
		Items:       items,
		TotalAmount: *input.TotalAmount,
		PaymentDate: paymentDate,
		Notes:       strings.TrimSpace(input.Notes),
	}, nil
}

func (s *Service) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, s.config.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPaymentDate, raw)
	}
	return t, nil
}
