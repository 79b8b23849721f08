package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/internal/pricing"
	"github.com/printdock/printdock-backend/internal/products"
	"github.com/printdock/printdock-backend/internal/transactions"
	"github.com/printdock/printdock-backend/internal/users"
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

// SourceDirect labels orders placed through POST /orders in metrics.
const SourceDirect = "direct"

// Service defines order placement, history, and fulfillment operations.
type Service interface {
	Quote(ctx context.Context, userID uuid.UUID, req QuoteRequest) (*Quote, error)
	Create(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*Placement, error)
	PlaceInTx(ctx context.Context, tx *gorm.DB, req PlacementRequest) (*Placement, error)
	List(ctx context.Context, params ListParams) (*types.Page[OrderDTO], error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, adminID, id uuid.UUID, req StatusRequest) (*OrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles order service dependencies.
type ServiceParams struct {
	DB           txRunner
	Repo         *Repository
	Products     *products.Repository
	Users        *users.Repository
	Transactions *transactions.Repository
	Engine       *pricing.Engine
	Outbox       outbox.Emitter
	Metrics      *metrics.StoreMetrics
	Logger       *logger.Logger
}

type service struct {
	db           txRunner
	repo         *Repository
	products     *products.Repository
	users        *users.Repository
	transactions *transactions.Repository
	engine       *pricing.Engine
	outbox       outbox.Emitter
	metrics      *metrics.StoreMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("db runner is required")
	case params.Repo == nil:
		return nil, fmt.Errorf("order repository is required")
	case params.Products == nil:
		return nil, fmt.Errorf("product repository is required")
	case params.Users == nil:
		return nil, fmt.Errorf("user repository is required")
	case params.Transactions == nil:
		return nil, fmt.Errorf("transaction repository is required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter is required")
	}
	engine := params.Engine
	if engine == nil {
		engine = pricing.DefaultEngine()
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		db:           params.DB,
		repo:         params.Repo,
		products:     params.Products,
		users:        params.Users,
		transactions: params.Transactions,
		engine:       engine,
		outbox:       params.Outbox,
		metrics:      params.Metrics,
		logg:         logg,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// Quote prices a cart without writing anything. The breakdown is returned
// even when the balance gate fails.
func (s *service) Quote(ctx context.Context, userID uuid.UUID, req QuoteRequest) (*Quote, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	shipment := Shipment{Items: req.Items, ShippingMethod: req.ShippingMethod}
	catalog, err := s.products.FindByIDs(ctx, productIDs([]Shipment{shipment}))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	priced, err := s.priceShipment(shipment, catalog)
	if err != nil {
		return nil, err
	}

	lines := make([]QuoteLine, 0, len(priced.lines))
	for _, l := range priced.lines {
		lines = append(lines, QuoteLine{
			ProductID:          l.product.ID,
			ProductName:        l.product.Name,
			SKU:                l.product.SKU,
			Quantity:           l.input.Quantity,
			UnitPrice:          l.item.UnitPrice.Round(2),
			Customizations:     l.customizations,
			Subtotal:           l.line.Subtotal.Round(2),
			CustomizationTotal: l.line.CustomizationTotal.Round(2),
		})
	}
	return &Quote{
		Lines:     lines,
		Breakdown: priced.breakdown,
		Balance:   user.Balance,
		CanSubmit: pricing.CanSubmit(user.Balance, priced.breakdown.Total),
	}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*Placement, error) {
	var placement *Placement
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		placement, err = s.PlaceInTx(ctx, tx, PlacementRequest{
			UserID: userID,
			Shipments: []Shipment{{
				Items:           req.Items,
				ShippingAddress: req.ShippingAddress,
				ShippingMethod:  req.ShippingMethod,
				Notes:           req.Notes,
			}},
			Source: SourceDirect,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.OrdersCreated(SourceDirect, len(placement.Orders), placement.Total)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_count": len(placement.Orders),
		"total":       placement.Total.StringFixed(2),
	}), "orders placed")
	return placement, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*types.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, params, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	rows, next := pagination.Trim(rows, params.Limit, cursorOf)
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &types.Page[OrderDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindError(err)
	}
	if !actor.Admin && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return FromModel(order), nil
}

// Cancel refunds and cancels a pending order owned by the caller.
func (s *service) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error) {
	var out *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapFindError(err)
		}
		if !actor.Admin && order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled")
		}
		if err := s.cancelTx(ctx, tx, order, actor); err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(out), nil
}

// allowedTransitions lists admin fulfillment moves. Cancellation always refunds.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
}

func (s *service) UpdateStatus(ctx context.Context, adminID, id uuid.UUID, req StatusRequest) (*OrderDTO, error) {
	if !req.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	var out *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapFindError(err)
		}
		if order.Status == req.Status {
			out = order
			return nil
		}
		if !canTransition(order.Status, req.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, req.Status))
		}
		previous := order.Status
		admin := Actor{UserID: adminID, Admin: true}
		if req.Status == enums.OrderStatusCancelled {
			if err := s.cancelTx(ctx, tx, order, admin); err != nil {
				return err
			}
		} else {
			if err := s.repo.WithTx(tx).Transition(ctx, order.ID, previous, req.Status, order.IsPaid, s.now()); err != nil {
				return mapTransitionError(err)
			}
			order.Status = req.Status
		}
		if err := s.emit(ctx, tx, enums.EventOrderStatusChanged, order.ID, admin, payloads.OrderStatusChangedEvent{
			OrderID:  order.ID,
			UserID:   order.UserID,
			Previous: previous,
			Status:   order.Status,
		}); err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(out), nil
}

// cancelTx flips order to cancelled, writes the refund, and credits the owner.
func (s *service) cancelTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor Actor) error {
	now := s.now()
	if err := s.repo.WithTx(tx).Transition(ctx, order.ID, order.Status, enums.OrderStatusCancelled, false, now); err != nil {
		return mapTransitionError(err)
	}
	refund := decimal.Zero
	if order.IsPaid {
		refund = order.TotalPrice
		if _, err := s.transactions.WithTx(tx).RecordPayment(ctx, order.UserID, order.ID, enums.TransactionRefund, refund, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record refund")
		}
		if err := s.users.WithTx(tx).Credit(ctx, order.UserID, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit refund")
		}
	}
	order.Status = enums.OrderStatusCancelled
	order.IsPaid = false
	return s.emit(ctx, tx, enums.EventOrderCancelled, order.ID, actor, payloads.OrderCancelledEvent{
		OrderID:      order.ID,
		UserID:       order.UserID,
		RefundAmount: refund,
		CancelledAt:  now,
	})
}

func (s *service) emitCreated(ctx context.Context, tx *gorm.DB, req PlacementRequest, ids []uuid.UUID, total decimal.Decimal) error {
	aggregateType, aggregateID := enums.AggregateOrder, ids[0]
	if req.BatchImportID != nil {
		aggregateType, aggregateID = enums.AggregateBatchImport, *req.BatchImportID
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Actor:         &outbox.ActorRef{UserID: req.UserID, Role: enums.UserRoleUser},
		Data: payloads.OrderCreatedEvent{
			UserID:        req.UserID,
			OrderIDs:      ids,
			BatchImportID: req.BatchImportID,
			Total:         total,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created")
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, orderID uuid.UUID, actor Actor, data any) error {
	role := enums.UserRoleUser
	if actor.Admin {
		role = enums.UserRoleAdmin
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: role},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(eventType))
	}
	return nil
}

func canTransition(from, to enums.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
}

func mapTransitionError(err error) error {
	if errors.Is(err, ErrStatusUnchanged) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
