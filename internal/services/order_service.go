package services

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/eshop/services/orders/internal/models"
	"example.com/eshop/services/orders/internal/repositories"
	"example.com/eshop/services/orders/internal/tracing"
)

// OrderIndexer pushes orders into the search index.
type OrderIndexer interface {
	IndexOrder(ctx context.Context, order *models.Order) error
	SearchOrders(ctx context.Context, query string) ([]map[string]interface{}, error)
}

// EventPublisher publishes order events for external consumers such as the
// mail sender.
type EventPublisher interface {
	SendMessage(ctx context.Context, body interface{}) error
}

// OrderEvent is the message published on order creation and status change.
type OrderEvent struct {
	Type        string `json:"type"`
	OrderNumber int64  `json:"order_number"`
	Status      string `json:"status"`
	Email       string `json:"email"`
	Time        string `json:"time"`
}

// ProductView is the snapshot tuple returned for an order's line items.
type ProductView struct {
	ProductID   uuid.UUID `json:"product_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Weight      float64   `json:"weight"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// OrderService owns the order aggregate: CRUD, product association, copy
// and bulk status changes.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	statusRepo  repositories.StatusRepository
	indexer     OrderIndexer
	events      EventPublisher
	tracer      tracing.Tracer
}

// NewOrderService creates a new order service. Indexer and events may be
// nil; both are best-effort collaborators.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	statusRepo repositories.StatusRepository,
	indexer OrderIndexer,
	events EventPublisher,
	tracer tracing.Tracer,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		statusRepo:  statusRepo,
		indexer:     indexer,
		events:      events,
		tracer:      tracer,
	}
}

// validateOrder checks the required fields of an incoming order.
func validateOrder(order *models.Order) error {
	switch {
	case order.CustomerName == "":
		return NewValidationError("Meno zákazníka je povinné")
	case order.Street == "" || order.City == "" || order.PostalCode == "":
		return NewValidationError("Adresa je povinná")
	case order.Email == "":
		return NewValidationError("Email je povinný")
	case !emailPattern.MatchString(order.Email):
		return NewValidationError("Email má nesprávny formát")
	case order.DeliveryOption == "":
		return NewValidationError("Spôsob doručenia je povinný")
	case order.PaymentOption == "":
		return NewValidationError("Spôsob platby je povinný")
	case order.TotalPrice.IsNegative():
		return NewValidationError("Celková cena nesmie byť záporná")
	case order.InvoiceNumber == "":
		return NewValidationError("Číslo faktúry je povinné")
	case order.VariableSymbol == "":
		return NewValidationError("Variabilný symbol je povinný")
	case order.Discount < 0 || order.Discount > 100:
		return NewValidationError("Zľava musí byť v rozsahu 0-100")
	}
	return nil
}

// CreateOrder validates and persists a new order. When the caller did not
// assign a business number, one is allocated from the sequence.
func (s *OrderService) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	txn := s.tracer.StartTransaction("create-order")
	defer s.tracer.EndTransaction(txn)

	if err := validateOrder(order); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	if order.OrderNumber == 0 {
		number, err := s.orderRepo.NextOrderNumber(ctx)
		if err != nil {
			s.tracer.RecordError(txn, err)
			return nil, &PersistenceError{Err: err}
		}
		order.OrderNumber = number
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, &PersistenceError{Err: err}
	}

	log.Info().
		Int64("order_number", order.OrderNumber).
		Str("customer", order.CustomerName).
		Msg("Order created")

	s.indexOrder(ctx, order)
	s.publishEvent(ctx, "order_created", order.OrderNumber, order.Status, order.Email)

	return order, nil
}

// GetOrder loads a single order by business number.
func (s *OrderService) GetOrder(ctx context.Context, number int64) (*models.Order, error) {
	order, err := s.orderRepo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Err: err}
	}
	return order, nil
}

// ListOrders returns the summary projection of all orders.
func (s *OrderService) ListOrders(ctx context.Context) ([]repositories.OrderSummary, error) {
	summaries, err := s.orderRepo.List(ctx)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return summaries, nil
}

// ListStatuses returns the end-user editable status catalog.
func (s *OrderService) ListStatuses(ctx context.Context) ([]models.OrderStatus, error) {
	statuses, err := s.statusRepo.List(ctx)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return statuses, nil
}

// UpdateOrder replaces the mutable fields of an order. The path number
// must match the body's; the business number itself never changes.
func (s *OrderService) UpdateOrder(ctx context.Context, number int64, order *models.Order) (*models.Order, error) {
	txn := s.tracer.StartTransaction("update-order")
	defer s.tracer.EndTransaction(txn)

	if number != order.OrderNumber {
		return nil, NewValidationError("Id mismatch")
	}
	if err := validateOrder(order); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	existing, err := s.orderRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	order.ID = existing.ID
	order.IsIndexed = false

	if err := s.orderRepo.Update(ctx, order); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.tracer.RecordError(txn, err)
		return nil, &PersistenceError{Err: err}
	}

	s.indexOrder(ctx, order)
	return order, nil
}

// DeleteOrder removes an order by surrogate id; its line items go first.
func (s *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &PersistenceError{Err: err}
	}
	log.Info().Str("order_id", id.String()).Msg("Order deleted")
	return nil
}

// CopyOrders duplicates the given orders under fresh business numbers with
// the provided order date. The batch is atomic: one missing source rolls
// everything back.
func (s *OrderService) CopyOrders(ctx context.Context, numbers []int64, newOrderDate string) ([]models.Order, error) {
	txn := s.tracer.StartTransaction("copy-orders")
	defer s.tracer.EndTransaction(txn)

	if len(numbers) == 0 {
		return nil, NewValidationError("Nie sú vybrané žiadne objednávky")
	}
	if newOrderDate == "" {
		return nil, NewValidationError("Dátum objednávky je povinný")
	}

	copies, err := s.orderRepo.Copy(ctx, numbers, newOrderDate)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.tracer.RecordError(txn, err)
		return nil, &PersistenceError{Err: err}
	}

	log.Info().
		Int("count", len(copies)).
		Str("order_date", newOrderDate).
		Msg("Orders copied")

	for i := range copies {
		s.indexOrder(ctx, &copies[i])
	}
	return copies, nil
}

// ChangeOrderStatus bulk-sets the status label on the given orders.
func (s *OrderService) ChangeOrderStatus(ctx context.Context, numbers []int64, status string) error {
	txn := s.tracer.StartTransaction("change-order-status")
	defer s.tracer.EndTransaction(txn)

	if len(numbers) == 0 {
		return NewValidationError("Nie sú vybrané žiadne objednávky")
	}
	if status == "" {
		return NewValidationError("Stav objednávky je povinný")
	}

	changed, err := s.orderRepo.ChangeStatus(ctx, numbers, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		s.tracer.RecordError(txn, err)
		return &PersistenceError{Err: err}
	}

	log.Info().
		Int("changed", len(changed)).
		Str("status", status).
		Msg("Order status changed")

	// Only rows that actually changed get an event
	for _, number := range changed {
		s.publishEvent(ctx, "status_changed", number, status, "")
	}
	return nil
}

// RemoveSelectedOrders bulk-deletes orders and their line items,
// committing once at the end.
func (s *OrderService) RemoveSelectedOrders(ctx context.Context, numbers []int64) error {
	if len(numbers) == 0 {
		return NewValidationError("Nie sú vybrané žiadne objednávky")
	}

	removed, err := s.orderRepo.DeleteByNumbers(ctx, numbers)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &PersistenceError{Err: err}
	}

	log.Info().Int64("removed", removed).Msg("Selected orders removed")
	return nil
}

// AttachProducts snapshots the current catalog state of every referenced
// product onto the order. A single unresolvable product id fails the call;
// the count mismatch is the detection method.
func (s *OrderService) AttachProducts(ctx context.Context, number int64, productIDs []uuid.UUID) error {
	txn := s.tracer.StartTransaction("attach-products")
	defer s.tracer.EndTransaction(txn)

	if len(productIDs) == 0 {
		return NewValidationError("Nie sú vybrané žiadne produkty")
	}

	order, err := s.orderRepo.GetByNumber(ctx, number)
	if err != nil {
		return err
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return &PersistenceError{Err: err}
	}
	if len(products) != len(productIDs) {
		return ErrNotFound
	}

	items := make([]models.OrderItem, 0, len(products))
	for _, product := range products {
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			Name:        product.Name,
			Description: product.Description,
			Price:       product.Price,
			Weight:      product.Weight,
		})
	}

	if err := s.orderRepo.AttachItems(ctx, order.ID, items); err != nil {
		s.tracer.RecordError(txn, err)
		return &PersistenceError{Err: err}
	}

	log.Info().
		Int64("order_number", number).
		Int("items", len(items)).
		Msg("Products attached to order")
	return nil
}

// OrderItems returns the snapshot-joined product list for an order, never
// live catalog data.
func (s *OrderService) OrderItems(ctx context.Context, number int64) ([]ProductView, error) {
	items, err := s.orderRepo.ItemsByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Err: err}
	}

	views := make([]ProductView, 0, len(items))
	for _, item := range items {
		views = append(views, ProductView{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price.StringFixed(2),
			Weight:      item.Weight,
		})
	}
	return views, nil
}

// SearchOrders runs a free-text query against the search index.
func (s *OrderService) SearchOrders(ctx context.Context, query string) ([]map[string]interface{}, error) {
	if s.indexer == nil {
		return nil, errors.New("search is not configured")
	}
	return s.indexer.SearchOrders(ctx, query)
}

// ReconcileSearchIndex pushes orders the index missed. Runs from the
// worker on a schedule; per-order failures are logged and skipped so one
// bad document cannot stall the backlog.
func (s *OrderService) ReconcileSearchIndex(ctx context.Context) error {
	if s.indexer == nil {
		return nil
	}

	orders, err := s.orderRepo.ListUnindexed(ctx, 100)
	if err != nil {
		return errors.Wrap(err, "failed to list unindexed orders")
	}
	if len(orders) == 0 {
		return nil
	}

	log.Info().Int("count", len(orders)).Msg("Reconciling search index")

	for i := range orders {
		order := &orders[i]
		if err := s.indexer.IndexOrder(ctx, order); err != nil {
			log.Error().
				Err(err).
				Int64("order_number", order.OrderNumber).
				Msg("Failed to index order during reconciliation")
			continue
		}
		if err := s.orderRepo.MarkIndexed(ctx, order.ID); err != nil {
			log.Error().
				Err(err).
				Int64("order_number", order.OrderNumber).
				Msg("Failed to mark order as indexed")
		}
	}
	return nil
}

// indexOrder pushes one order to the search index, best effort.
func (s *OrderService) indexOrder(ctx context.Context, order *models.Order) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexOrder(ctx, order); err != nil {
		log.Warn().
			Err(err).
			Int64("order_number", order.OrderNumber).
			Msg("Failed to index order, reconciliation will retry")
		return
	}
	if err := s.orderRepo.MarkIndexed(ctx, order.ID); err != nil {
		log.Warn().
			Err(err).
			Int64("order_number", order.OrderNumber).
			Msg("Failed to mark order as indexed")
	}
}

// publishEvent sends an order event, best effort.
func (s *OrderService) publishEvent(ctx context.Context, eventType string, number int64, status, email string) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		Type:        eventType,
		OrderNumber: number,
		Status:      status,
		Email:       email,
		Time:        time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.events.SendMessage(ctx, event); err != nil {
		log.Warn().
			Err(err).
			Int64("order_number", number).
			Str("type", eventType).
			Msg("Failed to publish order event")
	}
}
