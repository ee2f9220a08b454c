package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/krishi-kendra/krishi-kendra/internal/platform/validation"
)

// Repository persists products.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, product Product) (Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ChangeNotifier is told when catalog quantities or prices change so cached
// reports can be refreshed.
type ChangeNotifier interface {
	CatalogChanged(ctx context.Context)
}

// Service implements catalog use cases.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	validate *validator.Validate
	notifier ChangeNotifier
}

// NewService builds a catalog Service. notifier may be nil.
func NewService(repo Repository, logger *slog.Logger, notifier ChangeNotifier) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	v := validation.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	return &Service{
		repo:     repo,
		logger:   logger,
		validate: v,
		notifier: notifier,
	}
}

// List returns products newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, validation.Errors{"category": fmt.Sprintf("unknown category %q", filter.Category)}
	}
	return s.repo.List(ctx, filter)
}

// LowStock returns products at or below their alert threshold.
func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx, ListFilter{LowStock: true})
}

// Get fetches one product.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, input ProductInput) (Product, error) {
	product, err := s.fromInput(input)
	if err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", created.ID.String()),
		slog.String("name", created.Name),
		slog.Int64("quantity", created.Quantity))
	s.changed(ctx)
	return created, nil
}

// Update replaces a product's fields, including its quantity.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input ProductInput) (Product, error) {
	product, err := s.fromInput(input)
	if err != nil {
		return Product{}, err
	}
	product.ID = id
	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", id.String()),
		slog.Int64("quantity", updated.Quantity))
	s.changed(ctx)
	return updated, nil
}

// Delete removes a product. Bills keep their snapshot of it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id.String()))
	s.changed(ctx)
	return nil
}

func (s *Service) fromInput(input ProductInput) (Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Company = strings.TrimSpace(input.Company)
	input.TechnicalName = strings.TrimSpace(input.TechnicalName)
	if err := validation.Struct(s.validate, input); err != nil {
		return Product{}, err
	}
	alert := DefaultQuantityAlert
	if input.QuantityAlert != nil {
		alert = *input.QuantityAlert
	}
	return Product{
		Name:               titleCase(input.Name),
		TechnicalName:      input.TechnicalName,
		Company:            titleCase(input.Company),
		Category:           input.Category,
		Quantity:           *input.Quantity,
		QuantityAlert:      alert,
		BuyingPrice:        input.BuyingPrice,
		SellingPriceCash:   input.SellingPriceCash,
		SellingPriceUdhaar: input.SellingPriceUdhaar,
	}, nil
}

func (s *Service) changed(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.CatalogChanged(ctx)
	}
}

// titleCase upper-cases word starts and leaves acronyms such as NPK alone.
// Casers are stateful, so one is built per call.
func titleCase(s string) string {
	return cases.Title(language.Und, cases.NoLower).String(s)
}
