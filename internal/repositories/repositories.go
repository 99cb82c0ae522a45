package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/eshop/services/orders/internal/models"
)

// ErrNotFound is returned when a referenced order, product or settings row
// does not exist.
var ErrNotFound = errors.New("record not found")

// OrderSummary is the reduced projection returned by order listings.
type OrderSummary struct {
	ID           uuid.UUID `json:"id"`
	OrderNumber  int64     `json:"order_number"`
	CustomerName string    `json:"customer_name"`
	Email        string    `json:"email"`
	Note         string    `json:"note"`
	Status       string    `gorm:"column:order_status" json:"order_status"`
	OrderDate    string    `json:"order_date"`
	TotalPrice   string    `json:"total_price"`
}

// OrderRepository provides access to order data
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByNumber(ctx context.Context, number int64) (*models.Order, error)
	ListByNumbers(ctx context.Context, numbers []int64) ([]models.Order, error)
	List(ctx context.Context) ([]OrderSummary, error)
	Update(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByNumbers(ctx context.Context, numbers []int64) (int64, error)
	ChangeStatus(ctx context.Context, numbers []int64, status string) ([]int64, error)
	Copy(ctx context.Context, numbers []int64, newOrderDate string) ([]models.Order, error)
	AttachItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error
	ItemsByNumber(ctx context.Context, number int64) ([]models.OrderItem, error)
	NextOrderNumber(ctx context.Context) (int64, error)
	MarkIndexed(ctx context.Context, id uuid.UUID) error
	ListUnindexed(ctx context.Context, limit int) ([]models.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// nextOrderNumber bumps the single-row counter under a row lock and returns
// the new value. Must run inside tx so concurrent allocations serialize.
func nextOrderNumber(tx *gorm.DB) (int64, error) {
	var seq models.OrderSequence
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", 1).
		First(&seq).Error; err != nil {
		return 0, errors.Wrap(err, "failed to lock order sequence")
	}
	seq.Value++
	if err := tx.Model(&models.OrderSequence{}).
		Where("id = ?", 1).
		Update("value", seq.Value).Error; err != nil {
		return 0, errors.Wrap(err, "failed to bump order sequence")
	}
	return seq.Value, nil
}

// NextOrderNumber allocates a fresh business order number.
func (r *orderRepository) NextOrderNumber(ctx context.Context) (int64, error) {
	var number int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := nextOrderNumber(tx)
		if err != nil {
			return err
		}
		number = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return number, nil
}

// advanceSequence moves the counter forward to at least number, so a later
// allocation can never collide with a caller-provided order number.
func advanceSequence(tx *gorm.DB, number int64) error {
	var seq models.OrderSequence
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", 1).
		First(&seq).Error; err != nil {
		return errors.Wrap(err, "failed to lock order sequence")
	}
	if seq.Value >= number {
		return nil
	}
	if err := tx.Model(&models.OrderSequence{}).
		Where("id = ?", 1).
		Update("value", number).Error; err != nil {
		return errors.Wrap(err, "failed to advance order sequence")
	}
	return nil
}

// Create persists a new order with its line items, if any. A caller-provided
// business number drags the sequence along with it.
func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if order.OrderNumber != 0 {
			if err := advanceSequence(tx, order.OrderNumber); err != nil {
				return err
			}
		}
		return tx.Create(order).Error
	})
}

// GetByNumber loads an order by its business number, line items included.
func (r *orderRepository) GetByNumber(ctx context.Context, number int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", number).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get order by number")
	}
	return &order, nil
}

// ListByNumbers returns the orders whose business numbers resolve, in
// ascending number order. Missing numbers are simply absent from the
// result; the caller decides whether that matters.
func (r *orderRepository) ListByNumbers(ctx context.Context, numbers []int64) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("order_number IN ?", numbers).
		Order("order_number ASC").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders by numbers")
	}
	return orders, nil
}

// List returns the summary projection of all orders, newest first.
func (r *orderRepository) List(ctx context.Context) ([]OrderSummary, error) {
	var summaries []OrderSummary
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("id, order_number, customer_name, email, note, order_status, order_date, total_price").
		Order("order_number DESC").
		Find(&summaries).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	return summaries, nil
}

// Update replaces all mutable fields of an existing order row.
func (r *orderRepository) Update(ctx context.Context, order *models.Order) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Select("*").
		Omit("id", "order_number", "created_at", "items").
		Updates(order)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update order")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an order by surrogate id: line items first, then the
// order itself, in one transaction. Zero line items is not an error.
func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("id = ?", id).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errors.Wrap(err, "failed to load order for delete")
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete order items")
		}
		if err := tx.Delete(&order).Error; err != nil {
			return errors.Wrap(err, "failed to delete order")
		}
		return nil
	})
}

// DeleteByNumbers removes the selected orders and their line items,
// committing once at the end. Returns the number of orders removed.
func (r *orderRepository) DeleteByNumbers(ctx context.Context, numbers []int64) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orders []models.Order
		if err := tx.Where("order_number IN ?", numbers).Find(&orders).Error; err != nil {
			return errors.Wrap(err, "failed to load orders for delete")
		}
		if len(orders) == 0 {
			return ErrNotFound
		}
		for _, order := range orders {
			if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete order items")
			}
			if err := tx.Delete(&order).Error; err != nil {
				return errors.Wrap(err, "failed to delete order")
			}
		}
		removed = int64(len(orders))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ChangeStatus bulk-sets the status label on all matching orders in one
// save. Returns the business numbers of the rows actually touched, so the
// caller never acts on numbers that matched nothing.
func (r *orderRepository) ChangeStatus(ctx context.Context, numbers []int64, status string) ([]int64, error) {
	var updated []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).
			Where("order_number IN ?", numbers).
			Pluck("order_number", &updated).Error; err != nil {
			return errors.Wrap(err, "failed to resolve orders for status change")
		}
		if len(updated) == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&models.Order{}).
			Where("order_number IN ?", updated).
			Updates(map[string]interface{}{"order_status": status, "is_indexed": false}).Error; err != nil {
			return errors.Wrap(err, "failed to change order status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Copy duplicates each source order under a freshly allocated order number
// with the given order date, snapshots preserved. The whole batch runs in
// one transaction: a missing source rolls everything back.
func (r *orderRepository) Copy(ctx context.Context, numbers []int64, newOrderDate string) ([]models.Order, error) {
	var copies []models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, number := range numbers {
			var source models.Order
			err := tx.Preload("Items").
				Where("order_number = ?", number).
				First(&source).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return errors.Wrap(err, "failed to load source order")
			}

			newNumber, err := nextOrderNumber(tx)
			if err != nil {
				return err
			}

			duplicate := source
			duplicate.ID = uuid.New()
			duplicate.OrderNumber = newNumber
			duplicate.OrderDate = newOrderDate
			duplicate.IsIndexed = false
			duplicate.Items = nil

			if err := tx.Create(&duplicate).Error; err != nil {
				return errors.Wrap(err, "failed to create order copy")
			}

			for _, item := range source.Items {
				copyItem := models.OrderItem{
					OrderID:     duplicate.ID,
					ProductID:   item.ProductID,
					Name:        item.Name,
					Description: item.Description,
					Price:       item.Price,
					Weight:      item.Weight,
				}
				if err := tx.Create(&copyItem).Error; err != nil {
					return errors.Wrap(err, "failed to copy order item")
				}
				duplicate.Items = append(duplicate.Items, copyItem)
			}

			copies = append(copies, duplicate)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copies, nil
}

// AttachItems adds snapshot line items to an order in one transaction.
func (r *orderRepository) AttachItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range items {
			items[i].OrderID = orderID
			if err := tx.Create(&items[i]).Error; err != nil {
				return errors.Wrap(err, "failed to attach order item")
			}
		}
		return nil
	})
}

// ItemsByNumber returns the snapshot line items of an order.
func (r *orderRepository) ItemsByNumber(ctx context.Context, number int64) ([]models.OrderItem, error) {
	order, err := r.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return order.Items, nil
}

// MarkIndexed records that the order made it into the search index.
func (r *orderRepository) MarkIndexed(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("is_indexed", true)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to mark order as indexed")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnindexed returns orders the search index does not have yet.
func (r *orderRepository) ListUnindexed(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("is_indexed = ?", false).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list unindexed orders")
	}
	return orders, nil
}

// ProductRepository provides access to the product catalog
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	List(ctx context.Context) ([]models.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create persists a new catalog product.
func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// List returns all live products; soft-deleted rows are filtered by gorm.
func (r *productRepository) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	return products, nil
}

// GetByIDs resolves the given catalog ids; soft-deleted products do not
// resolve, so the caller can detect dangling references by count.
func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get products by ids")
	}
	return products, nil
}

// SoftDelete flags a product as deleted without touching historical
// order-item snapshots.
func (r *productRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to soft-delete product")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SettingsRepository provides access to the system settings singleton
type SettingsRepository interface {
	Get(ctx context.Context) (*models.SystemSettings, error)
	Save(ctx context.Context, settings *models.SystemSettings) (*models.SystemSettings, error)
}

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get returns the singleton row.
func (r *settingsRepository) Get(ctx context.Context) (*models.SystemSettings, error) {
	var settings models.SystemSettings
	err := r.db.WithContext(ctx).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get system settings")
	}
	return &settings, nil
}

// Save updates the existing singleton row in place, or inserts it when no
// row exists yet. The row count never exceeds one.
func (r *settingsRepository) Save(ctx context.Context, settings *models.SystemSettings) (*models.SystemSettings, error) {
	var saved models.SystemSettings
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SystemSettings
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing).Error
		switch {
		case err == nil:
			existing.DeliveryFee = settings.DeliveryFee
			existing.PaymentFee = settings.PaymentFee
			existing.BankAccount = settings.BankAccount
			if err := tx.Save(&existing).Error; err != nil {
				return errors.Wrap(err, "failed to update system settings")
			}
			saved = existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(settings).Error; err != nil {
				return errors.Wrap(err, "failed to create system settings")
			}
			saved = *settings
			return nil
		default:
			return errors.Wrap(err, "failed to load system settings")
		}
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// StatusRepository provides read access to the status catalog
type StatusRepository interface {
	List(ctx context.Context) ([]models.OrderStatus, error)
}

type statusRepository struct {
	db *gorm.DB
}

// NewStatusRepository creates a new status repository
func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepository{db: db}
}

// List returns the status catalog in display order.
func (r *statusRepository) List(ctx context.Context) ([]models.OrderStatus, error) {
	var statuses []models.OrderStatus
	err := r.db.WithContext(ctx).Order("position ASC").Find(&statuses).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list order statuses")
	}
	return statuses, nil
}
