package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/eshop/services/orders/internal/eph"
	"example.com/eshop/services/orders/internal/repositories"
	"example.com/eshop/services/orders/internal/tracing"
)

// ExportService converts sets of orders into carrier EPH batches.
type ExportService struct {
	orderRepo repositories.OrderRepository
	builder   *eph.Builder
	tracer    tracing.Tracer
}

// NewExportService creates a new export service
func NewExportService(orderRepo repositories.OrderRepository, builder *eph.Builder, tracer tracing.Tracer) *ExportService {
	return &ExportService{
		orderRepo: orderRepo,
		builder:   builder,
		tracer:    tracer,
	}
}

// Export builds the downloadable EPH batch for the given order numbers.
// Returns the date-stamped file name and the XML content. Fails with
// ErrNotFound when none of the numbers resolve, and with a
// ProcessingError naming the offending order when any shipment element
// cannot be built; nothing is skipped.
//
// The batch is returned without the credentialed transport envelope: the
// carrier API key has no business inside a user download. Callers that
// submit to the carrier directly wrap the batch via eph.Builder.Envelope.
func (s *ExportService) Export(ctx context.Context, numbers []int64) (string, []byte, error) {
	txn := s.tracer.StartTransaction("export-orders-to-xml")
	defer s.tracer.EndTransaction(txn)

	if len(numbers) == 0 {
		return "", nil, NewValidationError("Nie sú vybrané žiadne objednávky")
	}

	orders, err := s.orderRepo.ListByNumbers(ctx, numbers)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return "", nil, &PersistenceError{Err: err}
	}
	if len(orders) == 0 {
		return "", nil, ErrNotFound
	}

	batch, err := s.builder.BuildBatch(orders)
	if err != nil {
		var shipErr *eph.ShipmentError
		if errors.As(err, &shipErr) {
			s.tracer.RecordError(txn, err)
			return "", nil, &ProcessingError{OrderNumber: shipErr.OrderNumber, Err: shipErr.Err}
		}
		s.tracer.RecordError(txn, err)
		return "", nil, err
	}

	content, err := eph.Marshal(batch)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return "", nil, err
	}

	log.Info().
		Int("shipments", batch.Info.Count).
		Str("batch_id", batch.Info.BatchID).
		Msg("EPH batch exported")

	return s.builder.FileName(), content, nil
}
