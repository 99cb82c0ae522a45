package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/eshop/services/orders/internal/models"
)

func TestCreateProductValidation(t *testing.T) {
	service := NewProductService(new(MockProductRepository), nil)

	var validationErr *ValidationError

	_, err := service.Create(context.Background(), &models.Product{})
	require.ErrorAs(t, err, &validationErr)

	_, err = service.Create(context.Background(), &models.Product{
		Name:  "Čaj zelený",
		Price: decimal.NewFromInt(-1),
	})
	require.ErrorAs(t, err, &validationErr)
}

func TestCreateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Product")).Return(nil)

	service := NewProductService(mockRepo, nil)

	product, err := service.Create(context.Background(), &models.Product{
		Name:  "Čaj zelený",
		Price: decimal.NewFromFloat(5.90),
	})
	require.NoError(t, err)
	require.Equal(t, "Čaj zelený", product.Name)

	mockRepo.AssertExpectations(t)
}

func TestDeleteProduct(t *testing.T) {
	id := uuid.New()

	mockRepo := new(MockProductRepository)
	mockRepo.On("SoftDelete", mock.Anything, id).Return(nil)

	service := NewProductService(mockRepo, nil)

	require.NoError(t, service.Delete(context.Background(), id))
	mockRepo.AssertExpectations(t)

	missing := uuid.New()
	mockRepo.On("SoftDelete", mock.Anything, missing).Return(ErrNotFound)
	require.ErrorIs(t, service.Delete(context.Background(), missing), ErrNotFound)
}
