package discounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/assettrack-backend/internal/authz"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/assettrack-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service grants and lists employee discounts.
type Service interface {
	Assign(ctx context.Context, actorID uuid.UUID, req AssignRequest) (*DiscountDTO, error)
	ListForUser(ctx context.Context, actorID, userID uuid.UUID) ([]DiscountDTO, error)
	ListAll(ctx context.Context, actorID uuid.UUID) ([]DiscountDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type itemReader interface {
	LoadTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.Item, error)
}

type principalLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type eventRecorder interface {
	IncEvent(event string)
}

type service struct {
	repo       *Repository
	tx         txRunner
	gate       authz.Authorizer
	items      itemReader
	principals principalLookup
	policy     Policy
	emitter    outbox.Emitter
	metrics    eventRecorder
	logg       *logger.Logger
}

// ServiceParams bundles the calculator dependencies. A zero Policy falls
// back to DefaultPolicy.
type ServiceParams struct {
	Repo       *Repository
	DB         txRunner
	Gate       authz.Authorizer
	Items      itemReader
	Principals principalLookup
	Policy     Policy
	Emitter    outbox.Emitter
	Metrics    eventRecorder
	Logger     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("discount repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Gate == nil:
		return nil, fmt.Errorf("authorization gate required")
	case params.Items == nil:
		return nil, fmt.Errorf("item registry required")
	case params.Principals == nil:
		return nil, fmt.Errorf("principal lookup required")
	}
	policy := params.Policy
	if policy == (Policy{}) {
		policy = DefaultPolicy
	}
	emitter := params.Emitter
	if emitter == nil {
		emitter = outbox.NopEmitter{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:       params.Repo,
		tx:         params.DB,
		gate:       params.Gate,
		items:      params.Items,
		principals: params.Principals,
		policy:     policy,
		emitter:    emitter,
		metrics:    params.Metrics,
		logg:       logg,
	}, nil
}

// Assign snapshots the item's purchase price and stores the discounted price.
// The item must be Available when the row is written.
func (s *service) Assign(ctx context.Context, actorID uuid.UUID, req AssignRequest) (*DiscountDTO, error) {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapManageDiscounts)
	if err != nil {
		return nil, err
	}

	discountDate, err := types.ParseDate(req.Date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidDate, err, "invalid discount date")
	}
	day := discountDate.Day()
	percent := 0
	if req.Percent != nil {
		percent = *req.Percent
		if percent == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "percent must be between 1 and 100, got 0")
		}
	}
	if _, err := s.policy.PercentForDay(day); err != nil {
		return nil, err
	}
	if req.ItemID == uuid.Nil || req.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "itemId and userId are required")
	}
	if err := s.ensureRecipient(ctx, req.UserID); err != nil {
		return nil, err
	}

	var discount *models.Discount
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		item, err := s.items.LoadTx(ctx, tx, req.ItemID)
		if err != nil {
			return err
		}
		if item.Status != enums.ItemStatusAvailable {
			return pkgerrors.New(pkgerrors.CodeItemNotAvailable, "item is not available").
				WithDetails(map[string]any{"itemId": item.ID, "status": item.Status})
		}
		if item.PurchasePrice == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item has no purchase price")
		}
		quote, err := s.policy.Quote(day, percent, *item.PurchasePrice)
		if err != nil {
			return err
		}

		discount = &models.Discount{
			ItemID:          item.ID,
			UserID:          req.UserID,
			DiscountDate:    discountDate,
			Day:             quote.Day,
			Percent:         quote.Percent,
			OriginalPrice:   quote.OriginalPrice,
			DiscountedPrice: quote.DiscountedPrice,
			CreatedBy:       actor.ID,
		}
		if err := s.repo.WithTx(tx).Create(ctx, discount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create discount")
		}
		err = s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDiscountCreated,
			AggregateType: enums.AggregateDiscount,
			AggregateID:   discount.ID,
			Actor:         &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Role)},
			Data: payloads.DiscountCreatedEvent{
				DiscountID:      discount.ID,
				ItemID:          discount.ItemID,
				UserID:          discount.UserID,
				Day:             discount.Day,
				Percent:         discount.Percent,
				OriginalPrice:   discount.OriginalPrice,
				DiscountedPrice: discount.DiscountedPrice,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue discount_created")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncEvent(string(enums.EventDiscountCreated))
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id":    actor.ID.String(),
		"discount_id": discount.ID.String(),
		"item_id":     discount.ItemID.String(),
		"user_id":     discount.UserID.String(),
		"percent":     discount.Percent,
	})
	s.logg.Info(logCtx, "discount.created")
	dto := toDTO(discount)
	return &dto, nil
}

func (s *service) ListForUser(ctx context.Context, actorID, userID uuid.UUID) ([]DiscountDTO, error) {
	var err error
	if actorID == userID {
		_, err = s.gate.Authenticate(ctx, actorID)
	} else {
		_, err = s.gate.Authorize(ctx, actorID, enums.CapManageDiscounts)
	}
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, &userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list discounts")
	}
	return toDTOs(rows), nil
}

func (s *service) ListAll(ctx context.Context, actorID uuid.UUID) ([]DiscountDTO, error) {
	if _, err := s.gate.Authorize(ctx, actorID, enums.CapManageDiscounts); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list discounts")
	}
	return toDTOs(rows), nil
}

func (s *service) ensureRecipient(ctx context.Context, userID uuid.UUID) error {
	user, err := s.principals.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if !user.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "user is disabled")
	}
	return nil
}
