package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/eshop/services/orders/internal/models"
	"example.com/eshop/services/orders/internal/repositories"
	"example.com/eshop/services/orders/internal/tracing"
)

// Mock repositories for testing
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, number int64) (*models.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByNumbers(ctx context.Context, numbers []int64) ([]models.Order, error) {
	args := m.Called(ctx, numbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context) ([]repositories.OrderSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repositories.OrderSummary), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) DeleteByNumbers(ctx context.Context, numbers []int64) (int64, error) {
	args := m.Called(ctx, numbers)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) ChangeStatus(ctx context.Context, numbers []int64, status string) ([]int64, error) {
	args := m.Called(ctx, numbers, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockOrderRepository) Copy(ctx context.Context, numbers []int64, newOrderDate string) ([]models.Order, error) {
	args := m.Called(ctx, numbers, newOrderDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) AttachItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *MockOrderRepository) ItemsByNumber(ctx context.Context, number int64) ([]models.OrderItem, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) NextOrderNumber(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) MarkIndexed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) ListUnindexed(ctx context.Context, limit int) ([]models.Order, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) List(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockStatusRepository struct {
	mock.Mock
}

func (m *MockStatusRepository) List(ctx context.Context) ([]models.OrderStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderStatus), args.Error(1)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockIndexer) SearchOrders(ctx context.Context, query string) ([]map[string]interface{}, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]interface{}), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) SendMessage(ctx context.Context, body interface{}) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

func validOrder() *models.Order {
	return &models.Order{
		CustomerName:   "Ján Novák",
		Street:         "Hlavná 1",
		City:           "Bratislava",
		PostalCode:     "81101",
		Email:          "jan.novak@example.com",
		DeliveryOption: "Kuriér",
		PaymentOption:  "Prevod",
		Status:         "Nová",
		OrderDate:      "2024-03-15",
		TotalPrice:     decimal.NewFromFloat(49.90),
		InvoiceNumber:  "F2024001",
		VariableSymbol: "500001",
	}
}

func newTestOrderService(orderRepo *MockOrderRepository, productRepo *MockProductRepository) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		tracer:      tracing.Disabled(),
	}
}

func TestCreateOrderAllocatesBusinessNumber(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("NextOrderNumber", mock.Anything).Return(int64(500001), nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)

	service := newTestOrderService(mockRepo, nil)

	order, err := service.CreateOrder(context.Background(), validOrder())
	require.NoError(t, err)
	require.Equal(t, int64(500001), order.OrderNumber)

	mockRepo.AssertExpectations(t)
}

func TestCreateOrderKeepsProvidedNumber(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)

	service := newTestOrderService(mockRepo, nil)

	input := validOrder()
	input.OrderNumber = 500123

	order, err := service.CreateOrder(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, int64(500123), order.OrderNumber)

	mockRepo.AssertNotCalled(t, "NextOrderNumber", mock.Anything)
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Order)
		message string
	}{
		{"missing customer name", func(o *models.Order) { o.CustomerName = "" }, "Meno zákazníka je povinné"},
		{"missing street", func(o *models.Order) { o.Street = "" }, "Adresa je povinná"},
		{"missing email", func(o *models.Order) { o.Email = "" }, "Email je povinný"},
		{"malformed email", func(o *models.Order) { o.Email = "not-an-email" }, "Email má nesprávny formát"},
		{"missing delivery option", func(o *models.Order) { o.DeliveryOption = "" }, "Spôsob doručenia je povinný"},
		{"missing payment option", func(o *models.Order) { o.PaymentOption = "" }, "Spôsob platby je povinný"},
		{"negative total", func(o *models.Order) { o.TotalPrice = decimal.NewFromInt(-1) }, "Celková cena nesmie byť záporná"},
		{"missing invoice number", func(o *models.Order) { o.InvoiceNumber = "" }, "Číslo faktúry je povinné"},
		{"missing variable symbol", func(o *models.Order) { o.VariableSymbol = "" }, "Variabilný symbol je povinný"},
		{"discount over 100", func(o *models.Order) { o.Discount = 101 }, "Zľava musí byť v rozsahu 0-100"},
	}

	service := newTestOrderService(new(MockOrderRepository), nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := validOrder()
			tt.mutate(order)

			_, err := service.CreateOrder(context.Background(), order)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Equal(t, tt.message, validationErr.Message)
		})
	}
}

func TestCreateOrderPublishesEvent(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("NextOrderNumber", mock.Anything).Return(int64(500001), nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)

	mockPublisher := new(MockPublisher)
	mockPublisher.On("SendMessage", mock.Anything, mock.MatchedBy(func(body interface{}) bool {
		event, ok := body.(OrderEvent)
		return ok && event.Type == "order_created" && event.OrderNumber == 500001
	})).Return(nil)

	service := newTestOrderService(mockRepo, nil)
	service.events = mockPublisher

	_, err := service.CreateOrder(context.Background(), validOrder())
	require.NoError(t, err)

	mockPublisher.AssertExpectations(t)
}

func TestCreateOrderSurvivesPublishFailure(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("NextOrderNumber", mock.Anything).Return(int64(500001), nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)

	mockPublisher := new(MockPublisher)
	mockPublisher.On("SendMessage", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	service := newTestOrderService(mockRepo, nil)
	service.events = mockPublisher

	_, err := service.CreateOrder(context.Background(), validOrder())
	require.NoError(t, err)
}

func TestUpdateOrderNumberMismatch(t *testing.T) {
	service := newTestOrderService(new(MockOrderRepository), nil)

	order := validOrder()
	order.OrderNumber = 500002

	_, err := service.UpdateOrder(context.Background(), 500001, order)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "Id mismatch", validationErr.Message)
}

func TestUpdateOrderKeepsSurrogateID(t *testing.T) {
	existingID := uuid.New()

	mockRepo := new(MockOrderRepository)
	mockRepo.On("GetByNumber", mock.Anything, int64(500001)).
		Return(&models.Order{ID: existingID, OrderNumber: 500001}, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
		return o.ID == existingID && !o.IsIndexed
	})).Return(nil)

	service := newTestOrderService(mockRepo, nil)

	order := validOrder()
	order.OrderNumber = 500001

	updated, err := service.UpdateOrder(context.Background(), 500001, order)
	require.NoError(t, err)
	require.Equal(t, existingID, updated.ID)

	mockRepo.AssertExpectations(t)
}

func TestUpdateOrderNotFound(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("GetByNumber", mock.Anything, int64(999999)).Return(nil, ErrNotFound)

	service := newTestOrderService(mockRepo, nil)

	order := validOrder()
	order.OrderNumber = 999999

	_, err := service.UpdateOrder(context.Background(), 999999, order)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCopyOrdersRequiresSelectionAndDate(t *testing.T) {
	service := newTestOrderService(new(MockOrderRepository), nil)

	var validationErr *ValidationError

	_, err := service.CopyOrders(context.Background(), nil, "2024-03-15")
	require.ErrorAs(t, err, &validationErr)

	_, err = service.CopyOrders(context.Background(), []int64{500001}, "")
	require.ErrorAs(t, err, &validationErr)
}

func TestCopyOrdersMissingSourceFailsWholeBatch(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("Copy", mock.Anything, []int64{500001, 999999}, "2024-03-15").
		Return(nil, ErrNotFound)

	service := newTestOrderService(mockRepo, nil)

	_, err := service.CopyOrders(context.Background(), []int64{500001, 999999}, "2024-03-15")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCopyOrders(t *testing.T) {
	copies := []models.Order{
		{OrderNumber: 500010, OrderDate: "2024-03-15"},
		{OrderNumber: 500011, OrderDate: "2024-03-15"},
	}

	mockRepo := new(MockOrderRepository)
	mockRepo.On("Copy", mock.Anything, []int64{500001, 500002}, "2024-03-15").
		Return(copies, nil)

	service := newTestOrderService(mockRepo, nil)

	result, err := service.CopyOrders(context.Background(), []int64{500001, 500002}, "2024-03-15")
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Equal(t, "2024-03-15", result[0].OrderDate)

	mockRepo.AssertExpectations(t)
}

func TestChangeOrderStatusValidation(t *testing.T) {
	service := newTestOrderService(new(MockOrderRepository), nil)

	var validationErr *ValidationError

	err := service.ChangeOrderStatus(context.Background(), nil, "Odoslaná")
	require.ErrorAs(t, err, &validationErr)

	err = service.ChangeOrderStatus(context.Background(), []int64{500001}, "")
	require.ErrorAs(t, err, &validationErr)
}

func TestChangeOrderStatus(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("ChangeStatus", mock.Anything, []int64{500001, 500002}, "Odoslaná").
		Return([]int64{500001, 500002}, nil)

	service := newTestOrderService(mockRepo, nil)

	err := service.ChangeOrderStatus(context.Background(), []int64{500001, 500002}, "Odoslaná")
	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
}

func TestChangeOrderStatusPublishesOnlyForChangedRows(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("ChangeStatus", mock.Anything, []int64{500001, 999999}, "Odoslaná").
		Return([]int64{500001}, nil)

	mockPublisher := new(MockPublisher)
	mockPublisher.On("SendMessage", mock.Anything, mock.MatchedBy(func(body interface{}) bool {
		event, ok := body.(OrderEvent)
		return ok && event.Type == "status_changed" && event.OrderNumber == 500001
	})).Return(nil)

	service := newTestOrderService(mockRepo, nil)
	service.events = mockPublisher

	err := service.ChangeOrderStatus(context.Background(), []int64{500001, 999999}, "Odoslaná")
	require.NoError(t, err)

	mockPublisher.AssertExpectations(t)
	mockPublisher.AssertNumberOfCalls(t, "SendMessage", 1)
}

func TestRemoveSelectedOrders(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("DeleteByNumbers", mock.Anything, []int64{500001}).Return(int64(1), nil)

	service := newTestOrderService(mockRepo, nil)

	err := service.RemoveSelectedOrders(context.Background(), []int64{500001})
	require.NoError(t, err)

	var validationErr *ValidationError
	err = service.RemoveSelectedOrders(context.Background(), nil)
	require.ErrorAs(t, err, &validationErr)
}

func TestAttachProductsSnapshotsCatalogState(t *testing.T) {
	orderID := uuid.New()
	productID := uuid.New()

	mockRepo := new(MockOrderRepository)
	mockRepo.On("GetByNumber", mock.Anything, int64(500001)).
		Return(&models.Order{ID: orderID, OrderNumber: 500001}, nil)
	mockRepo.On("AttachItems", mock.Anything, orderID, mock.MatchedBy(func(items []models.OrderItem) bool {
		return len(items) == 1 &&
			items[0].ProductID == productID &&
			items[0].Name == "Čaj zelený" &&
			items[0].Price.Equal(decimal.NewFromFloat(5.90))
	})).Return(nil)

	mockProducts := new(MockProductRepository)
	mockProducts.On("GetByIDs", mock.Anything, []uuid.UUID{productID}).
		Return([]models.Product{{
			ID:    productID,
			Name:  "Čaj zelený",
			Price: decimal.NewFromFloat(5.90),
		}}, nil)

	service := newTestOrderService(mockRepo, mockProducts)

	err := service.AttachProducts(context.Background(), 500001, []uuid.UUID{productID})
	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
	mockProducts.AssertExpectations(t)
}

func TestAttachProductsFailsOnUnknownProduct(t *testing.T) {
	knownID := uuid.New()
	unknownID := uuid.New()

	mockRepo := new(MockOrderRepository)
	mockRepo.On("GetByNumber", mock.Anything, int64(500001)).
		Return(&models.Order{ID: uuid.New(), OrderNumber: 500001}, nil)

	mockProducts := new(MockProductRepository)
	mockProducts.On("GetByIDs", mock.Anything, []uuid.UUID{knownID, unknownID}).
		Return([]models.Product{{ID: knownID, Name: "Čaj zelený"}}, nil)

	service := newTestOrderService(mockRepo, mockProducts)

	err := service.AttachProducts(context.Background(), 500001, []uuid.UUID{knownID, unknownID})
	require.ErrorIs(t, err, ErrNotFound)

	mockRepo.AssertNotCalled(t, "AttachItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderItemsReturnsSnapshotViews(t *testing.T) {
	productID := uuid.New()

	mockRepo := new(MockOrderRepository)
	mockRepo.On("ItemsByNumber", mock.Anything, int64(500001)).
		Return([]models.OrderItem{{
			ProductID:   productID,
			Name:        "Čaj zelený",
			Description: "Sypaný, 100g",
			Price:       decimal.NewFromFloat(5.9),
			Weight:      0.1,
		}}, nil)

	service := newTestOrderService(mockRepo, nil)

	views, err := service.OrderItems(context.Background(), 500001)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, productID, views[0].ProductID)
	require.Equal(t, "5.90", views[0].Price)
}

func TestReconcileSearchIndexSkipsFailedOrders(t *testing.T) {
	good := models.Order{ID: uuid.New(), OrderNumber: 500001}
	bad := models.Order{ID: uuid.New(), OrderNumber: 500002}

	mockRepo := new(MockOrderRepository)
	mockRepo.On("ListUnindexed", mock.Anything, 100).Return([]models.Order{good, bad}, nil)
	mockRepo.On("MarkIndexed", mock.Anything, good.ID).Return(nil)

	mockIndexer := new(MockIndexer)
	mockIndexer.On("IndexOrder", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
		return o.OrderNumber == 500001
	})).Return(nil)
	mockIndexer.On("IndexOrder", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
		return o.OrderNumber == 500002
	})).Return(errors.New("index unavailable"))

	service := newTestOrderService(mockRepo, nil)
	service.indexer = mockIndexer

	err := service.ReconcileSearchIndex(context.Background())
	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "MarkIndexed", mock.Anything, bad.ID)
}

func TestGetOrderWrapsStoreFailures(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("GetByNumber", mock.Anything, int64(500001)).
		Return(nil, errors.New("connection reset"))

	service := newTestOrderService(mockRepo, nil)

	_, err := service.GetOrder(context.Background(), 500001)

	var persistenceErr *PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
}

func TestListOrdersWrapsStoreFailures(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("List", mock.Anything).Return(nil, errors.New("connection reset"))

	service := newTestOrderService(mockRepo, nil)

	_, err := service.ListOrders(context.Background())

	var persistenceErr *PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
}

func TestSearchOrdersWithoutIndexer(t *testing.T) {
	service := newTestOrderService(new(MockOrderRepository), nil)

	_, err := service.SearchOrders(context.Background(), "novak")
	require.Error(t, err)
}
