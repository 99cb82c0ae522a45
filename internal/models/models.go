package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is the order aggregate root. OrderNumber is the business-facing
// sequential number printed on invoices and shipping labels; ID is the
// store surrogate. The two are never interchangeable.
type Order struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	OrderNumber int64     `gorm:"not null;uniqueIndex" json:"order_number"`

	// Shipping identity and address
	CustomerName string `gorm:"not null" json:"customer_name"`
	Company      string `json:"company"`
	ICO          string `gorm:"column:ico" json:"ico"`
	DIC          string `gorm:"column:dic" json:"dic"`
	ICDPH        string `gorm:"column:ic_dph" json:"ic_dph"`
	Street       string `gorm:"not null" json:"street"`
	City         string `gorm:"not null" json:"city"`
	PostalCode   string `gorm:"not null" json:"postal_code"`
	Country      string `json:"country"`
	Email        string `gorm:"not null" json:"email"`
	PhoneNumber  string `json:"phone_number"`

	// Delivery and payment
	DeliveryOption string          `gorm:"not null" json:"delivery_option"`
	DeliveryPrice  decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"delivery_price"`
	PaymentOption  string          `gorm:"not null" json:"payment_option"`
	PaymentPrice   decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"payment_price"`

	// Discount is a whole percentage, 0-100
	Discount   int             `gorm:"not null;default:0" json:"discount"`
	Note       string          `json:"note"`
	Status     string          `gorm:"column:order_status;not null" json:"order_status"`
	OrderDate  string          `gorm:"not null" json:"order_date"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"total_price"`

	// Invoice fields; billing identity may differ from the shipping one
	InvoiceNumber     string `gorm:"not null" json:"invoice_number"`
	VariableSymbol    string `gorm:"not null" json:"variable_symbol"`
	InvoiceIssueDate  string `json:"invoice_issue_date"`
	InvoiceName       string `json:"invoice_name"`
	InvoiceCompany    string `json:"invoice_company"`
	InvoiceICO        string `gorm:"column:invoice_ico" json:"invoice_ico"`
	InvoiceDIC        string `gorm:"column:invoice_dic" json:"invoice_dic"`
	InvoiceStreet     string `json:"invoice_street"`
	InvoiceCity       string `json:"invoice_city"`
	InvoicePostalCode string `json:"invoice_postal_code"`

	PackageCode *string `json:"package_code"`

	// IsIndexed tracks whether the order has been pushed to the search
	// index; the worker reconciles rows where it is still false.
	IsIndexed bool `gorm:"not null;default:false" json:"-"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// OrderItem joins an order to a catalog product. Name, Description, Price
// and Weight are snapshots frozen at attach time: later catalog edits must
// never change historical order content.
type OrderItem struct {
	OrderID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey" json:"product_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"price"`
	Weight      float64         `gorm:"not null;default:0" json:"weight"`

	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
}

// Product is the live catalog entity. Deletion is logical: soft-deleted
// rows disappear from default queries while order-item snapshots keep
// their frozen copies.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"price"`
	Weight      float64         `gorm:"not null;default:0" json:"weight"`
}

// SystemSettings is a singleton row; at most one ever exists.
type SystemSettings struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeliveryFee decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"delivery_fee"`
	PaymentFee  decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"payment_fee"`
	BankAccount string          `gorm:"not null" json:"bank_account"`
}

// OrderStatus is the end-user editable status catalog. The backend
// enforces no transition graph over these labels.
type OrderStatus struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"not null;uniqueIndex" json:"name"`
	Color    string `json:"color"`
	Position int    `gorm:"not null;default:0" json:"position"`
}

// OrderSequence is the single-row counter behind business order numbers.
// It is only ever read and bumped under a row lock.
type OrderSequence struct {
	ID    uint  `gorm:"primaryKey" json:"id"`
	Value int64 `gorm:"not null" json:"value"`
}

// BeforeCreate assigns a surrogate id when the caller did not.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns a surrogate id when the caller did not.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// FirstOrderNumber is where the business sequence starts when the counter
// row is first created.
const FirstOrderNumber = 500000

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Product{},
		&Order{},
		&OrderItem{},
		&SystemSettings{},
		&OrderStatus{},
		&OrderSequence{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	// Seed the order-number counter; the row must exist before the first
	// allocation locks it.
	seq := OrderSequence{ID: 1, Value: FirstOrderNumber}
	if err := db.Where(OrderSequence{ID: 1}).FirstOrCreate(&seq).Error; err != nil {
		return errors.Wrap(err, "failed to seed order sequence")
	}

	return nil
}
