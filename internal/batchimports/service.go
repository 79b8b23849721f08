package batchimports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/internal/orders"
	"github.com/printdock/printdock-backend/internal/products"
	"github.com/printdock/printdock-backend/pkg/db/models"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/metrics"
	"github.com/printdock/printdock-backend/pkg/outbox"
	"github.com/printdock/printdock-backend/pkg/outbox/payloads"
	"github.com/printdock/printdock-backend/pkg/pagination"
	"github.com/printdock/printdock-backend/pkg/types"
)

// SourceBatch labels imported orders in metrics.
const SourceBatch = "batch"

const maxErrorLength = 500

// Service imports CSV order files and exposes their history.
type Service interface {
	Import(ctx context.Context, userID uuid.UUID, fileName string, body io.Reader) (*BatchImportDTO, error)
	List(ctx context.Context, params ListParams) (*types.Page[BatchImportDTO], error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*BatchImportDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderPlacer interface {
	PlaceInTx(ctx context.Context, tx *gorm.DB, req orders.PlacementRequest) (*orders.Placement, error)
}

// ServiceParams bundles batch import dependencies.
type ServiceParams struct {
	DB       txRunner
	Repo     *Repository
	Products *products.Repository
	Orders   orderPlacer
	Outbox   outbox.Emitter
	Metrics  *metrics.StoreMetrics
	Logger   *logger.Logger
}

type service struct {
	db       txRunner
	repo     *Repository
	products *products.Repository
	orders   orderPlacer
	outbox   outbox.Emitter
	metrics  *metrics.StoreMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("db runner is required")
	case params.Repo == nil:
		return nil, fmt.Errorf("batch import repository is required")
	case params.Products == nil:
		return nil, fmt.Errorf("product repository is required")
	case params.Orders == nil:
		return nil, fmt.Errorf("order placer is required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		products: params.Products,
		orders:   params.Orders,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     logg,
	}, nil
}

// Import parses the whole file before writing anything, then creates every
// order in one transaction. Any failure leaves no orders behind and marks the
// import failed.
func (s *service) Import(ctx context.Context, userID uuid.UUID, fileName string, body io.Reader) (*BatchImportDTO, error) {
	rows, err := ParseCSV(body)
	if err != nil {
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, rowErr.Error()).
				WithDetails(map[string]any{"line": rowErr.Line, "column": rowErr.Column})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid csv file")
	}

	batch := &models.BatchImport{
		UserID:   userID,
		FileName: cleanFileName(fileName),
		Status:   enums.BatchImportProcessing,
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create batch import")
	}
	ctx = s.logg.WithField(ctx, "batch_import_id", batch.ID.String())

	var placement *orders.Placement
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		shipments, err := s.shipments(ctx, tx, rows)
		if err != nil {
			return err
		}
		placement, err = s.orders.PlaceInTx(ctx, tx, orders.PlacementRequest{
			UserID:        userID,
			Shipments:     shipments,
			BatchImportID: &batch.ID,
			Source:        SourceBatch,
		})
		if err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Complete(ctx, batch.ID, len(placement.Orders), placement.Total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete batch import")
		}
		batch.Status = enums.BatchImportCompleted
		batch.OrderCount = len(placement.Orders)
		batch.TotalPrice = placement.Total
		return s.emitCompleted(ctx, tx, batch)
	})
	if err != nil {
		s.fail(ctx, batch, err)
		return nil, err
	}

	s.metrics.OrdersCreated(SourceBatch, batch.OrderCount, batch.TotalPrice)
	s.logg.Info(s.logg.WithField(ctx, "order_count", batch.OrderCount), "batch import completed")
	reloaded, err := s.repo.FindByID(ctx, batch.ID)
	if err != nil {
		return FromModel(batch), nil
	}
	return FromModel(reloaded), nil
}

// shipments resolves each row's sku. Every row ships separately.
func (s *service) shipments(ctx context.Context, tx *gorm.DB, rows []Row) ([]orders.Shipment, error) {
	skus := make([]string, 0, len(rows))
	for _, row := range rows {
		skus = append(skus, row.SKU)
	}
	catalog, err := s.products.WithTx(tx).FindBySKUs(ctx, skus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	out := make([]orders.Shipment, 0, len(rows))
	for _, row := range rows {
		product, ok := catalog[row.SKU]
		if !ok || !product.Active {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: unknown sku %s", row.Line, row.SKU)).
				WithDetails(map[string]any{"line": row.Line, "column": "sku"})
		}
		out = append(out, orders.Shipment{
			Items: []orders.ItemInput{{
				ProductID:      product.ID,
				Quantity:       row.Quantity,
				Color:          row.Color,
				Size:           row.Size,
				Customizations: row.Customizations,
			}},
			ShippingAddress: row.Address,
			ShippingMethod:  row.ShippingMethod,
			Notes:           row.Notes,
		})
	}
	return out, nil
}

func (s *service) fail(ctx context.Context, batch *models.BatchImport, cause error) {
	reason := cause.Error()
	if typed := pkgerrors.As(cause); typed != nil {
		reason = typed.Message()
	}
	if len(reason) > maxErrorLength {
		reason = reason[:maxErrorLength]
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Fail(ctx, batch.ID, reason); err != nil {
			return err
		}
		batch.Status = enums.BatchImportFailed
		batch.Error = &reason
		return s.emitCompleted(ctx, tx, batch)
	})
	if err != nil {
		s.logg.Error(ctx, "failed to record batch import failure", err)
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "batch import failed")
}

func (s *service) emitCompleted(ctx context.Context, tx *gorm.DB, batch *models.BatchImport) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBatchImportCompleted,
		AggregateType: enums.AggregateBatchImport,
		AggregateID:   batch.ID,
		Actor:         &outbox.ActorRef{UserID: batch.UserID, Role: enums.UserRoleUser},
		Data: payloads.BatchImportCompletedEvent{
			BatchImportID: batch.ID,
			UserID:        batch.UserID,
			Status:        batch.Status,
			OrderCount:    batch.OrderCount,
			Total:         batch.TotalPrice,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit batch import event")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*types.Page[BatchImportDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, params, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list batch imports")
	}
	rows, next := pagination.Trim(rows, params.Limit, cursorOf)
	items := make([]BatchImportDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &types.Page[BatchImportDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*BatchImportDTO, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch import not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load batch import")
	}
	if !actor.Admin && batch.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch import not found")
	}
	return FromModel(batch), nil
}

func cleanFileName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "import.csv"
	}
	return name
}
