package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/assettrack-backend/internal/authz"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/assettrack-backend/pkg/pagination"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	noteCreated       = "item created"
	noteStatusUpdated = "status updated"
)

// Service is the item registry.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, req CreateItemRequest) (*ItemDTO, error)
	Update(ctx context.Context, actorID, itemID uuid.UUID, req UpdateItemRequest) (*ItemDTO, error)
	ChangeStatus(ctx context.Context, actorID, itemID uuid.UUID, req ChangeStatusRequest) (*ItemDTO, error)
	Delete(ctx context.Context, actorID, itemID uuid.UUID) error
	Get(ctx context.Context, actorID, itemID uuid.UUID) (*ItemDTO, error)
	List(ctx context.Context, actorID uuid.UUID, filter ListFilter) (*ListResult, error)
	History(ctx context.Context, actorID, itemID uuid.UUID) ([]StatusEventDTO, error)
	Categories(ctx context.Context, actorID uuid.UUID) ([]string, error)

	LoadTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.Item, error)
	ChangeStatusTx(ctx context.Context, tx *gorm.DB, actor *authz.Principal, itemID uuid.UUID, target enums.ItemStatus, note string) error
	TransitionTx(ctx context.Context, tx *gorm.DB, t Transition) error
}

// Transition is a status move performed inside a caller-owned transaction.
// The item must still be in From for the move to apply.
type Transition struct {
	ItemID       uuid.UUID
	From         enums.ItemStatus
	To           enums.ItemStatus
	Actor        *authz.Principal
	AssignmentID *uuid.UUID
	Note         string
}

// ErrStatusChanged reports that the item left the expected status before the
// conditional update ran.
var ErrStatusChanged = errors.New("item status changed concurrently")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CustodyChecker answers for the assignment ledger whether an open
// assignment still holds an item.
type CustodyChecker interface {
	HasOpenAssignmentTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (bool, error)
}

// ReferenceChecker is implemented by each component whose records point at
// items. An item any of them references cannot be deleted.
type ReferenceChecker interface {
	ReferencesItemTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (bool, error)
}

type lifecycleRecorder interface {
	IncTransition(from, to string)
	IncEvent(event string)
}

type service struct {
	repo       *Repository
	tx         txRunner
	gate       authz.Authorizer
	custody    CustodyChecker
	references []ReferenceChecker
	emitter    outbox.Emitter
	metrics    lifecycleRecorder
	logg       *logger.Logger
}

// ServiceParams bundles the registry dependencies. Custody and References
// are the repositories of the components that point at items.
type ServiceParams struct {
	Repo       *Repository
	DB         txRunner
	Gate       authz.Authorizer
	Custody    CustodyChecker
	References []ReferenceChecker
	Emitter    outbox.Emitter
	Metrics    lifecycleRecorder
	Logger     *logger.Logger
}

// NewService constructs the item registry.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("authorization gate required")
	}
	if params.Custody == nil {
		return nil, fmt.Errorf("custody checker required")
	}
	for i, ref := range params.References {
		if ref == nil {
			return nil, fmt.Errorf("reference checker %d is nil", i)
		}
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
		custody:    params.Custody,
		references: params.References,
		emitter:    emitter,
		metrics:    params.Metrics,
		logg:       logg,
	}, nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, req CreateItemRequest) (*ItemDTO, error) {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapManageInventory)
	if err != nil {
		return nil, err
	}

	item, err := buildItem(req)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := ensureSerialFree(ctx, repo, item.SerialNumber, uuid.Nil); err != nil {
			return err
		}
		if err := repo.Create(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateSerial(item.SerialNumber, err)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create item")
		}
		if err := repo.InsertEvent(ctx, &models.ItemStatusEvent{
			ItemID:    item.ID,
			ToStatus:  item.Status,
			ChangedBy: actor.ID,
			Note:      noteCreated,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record initial status")
		}
		return s.emit(ctx, tx, actor, enums.EventItemCreated, item.ID, payloads.ItemCreatedEvent{
			ItemID:       item.ID,
			SerialNumber: item.SerialNumber,
			Category:     item.Category,
			Status:       item.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncTransition("", string(item.Status))
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id": actor.ID.String(),
		"item_id":  item.ID.String(),
		"status":   item.Status,
	})
	s.logg.Info(logCtx, "item.created")
	return FromModel(item), nil
}

func (s *service) Update(ctx context.Context, actorID, itemID uuid.UUID, req UpdateItemRequest) (*ItemDTO, error) {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapManageInventory)
	if err != nil {
		return nil, err
	}

	updates, err := buildUpdates(req)
	if err != nil {
		return nil, err
	}
	var target *enums.ItemStatus
	if req.Status != nil {
		status, err := enums.ParseItemStatus(*req.Status)
		if err != nil {
			return nil, pkgerrors.Validation(err)
		}
		target = &status
	}

	var updated *models.Item
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, itemID)
		if err != nil {
			return notFoundOrInternal(err, "load item")
		}
		if target != nil {
			if err := ensureNotTerminal(current, *target); err != nil {
				return err
			}
		}
		if serial, ok := updates["serial_number"].(string); ok && !strings.EqualFold(serial, current.SerialNumber) {
			if err := ensureSerialFree(ctx, repo, serial, current.ID); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, current.ID, updates); err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateSerial(fmt.Sprint(updates["serial_number"]), err)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update item")
		}
		if target != nil && *target != current.Status {
			note := strings.TrimSpace(req.Note)
			if note == "" {
				note = noteStatusUpdated
			}
			if err := s.changeStatusTx(ctx, tx, actor, current, *target, note); err != nil {
				return err
			}
		}
		updated, err = repo.FindByID(ctx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id": actor.ID.String(),
		"item_id":  itemID.String(),
	})
	s.logg.Info(logCtx, "item.updated")
	return FromModel(updated), nil
}

func (s *service) ChangeStatus(ctx context.Context, actorID, itemID uuid.UUID, req ChangeStatusRequest) (*ItemDTO, error) {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapManageInventory)
	if err != nil {
		return nil, err
	}
	target, err := enums.ParseItemStatus(req.Status)
	if err != nil {
		return nil, pkgerrors.Validation(err)
	}
	note := strings.TrimSpace(req.Note)
	if note == "" {
		note = noteStatusUpdated
	}

	var updated *models.Item
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, itemID)
		if err != nil {
			return notFoundOrInternal(err, "load item")
		}
		if err := ensureNotTerminal(current, target); err != nil {
			return err
		}
		if current.Status == target {
			updated = current
			return nil
		}
		if err := s.changeStatusTx(ctx, tx, actor, current, target, note); err != nil {
			return err
		}
		updated, err = repo.FindByID(ctx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// changeStatusTx applies a manual status change. Custody moves belong to the
// assignment ledger, so Assigned is never a manual target or source while an
// assignment is open.
func (s *service) changeStatusTx(ctx context.Context, tx *gorm.DB, actor *authz.Principal, current *models.Item, target enums.ItemStatus, note string) error {
	if err := ensureNotTerminal(current, target); err != nil {
		return err
	}
	if target == enums.ItemStatusAssigned {
		return invalidTransition(current.Status, target, "items are assigned through the assignment ledger")
	}
	if current.Status == enums.ItemStatusAssigned {
		open, err := s.custody.HasOpenAssignmentTx(ctx, tx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check open assignment")
		}
		if open {
			return invalidTransition(current.Status, target, "return the open assignment first")
		}
	}
	err := s.TransitionTx(ctx, tx, Transition{
		ItemID: current.ID,
		From:   current.Status,
		To:     target,
		Actor:  actor,
		Note:   note,
	})
	if errors.Is(err, ErrStatusChanged) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "item status changed, retry")
	}
	return err
}

// ChangeStatusTx applies a manual status change inside a caller-owned
// transaction under the same rules as ChangeStatus.
func (s *service) ChangeStatusTx(ctx context.Context, tx *gorm.DB, actor *authz.Principal, itemID uuid.UUID, target enums.ItemStatus, note string) error {
	current, err := s.LoadTx(ctx, tx, itemID)
	if err != nil {
		return err
	}
	if err := ensureNotTerminal(current, target); err != nil {
		return err
	}
	if current.Status == target {
		return nil
	}
	return s.changeStatusTx(ctx, tx, actor, current, target, note)
}

// ensureNotTerminal rejects every status request against a terminal item,
// including one naming the status it already has.
func ensureNotTerminal(current *models.Item, target enums.ItemStatus) error {
	if current.Status.IsTerminal() {
		return invalidTransition(current.Status, target, "disposed items cannot change status")
	}
	return nil
}

// LoadTx reads an item inside tx.
func (s *service) LoadTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.repo.WithTx(tx).FindByID(ctx, itemID)
	if err != nil {
		return nil, notFoundOrInternal(err, "load item")
	}
	return item, nil
}

// TransitionTx moves an item from t.From to t.To with a conditional update,
// appends the history row and queues the status event. It returns
// ErrStatusChanged when the item is no longer in t.From.
func (s *service) TransitionTx(ctx context.Context, tx *gorm.DB, t Transition) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if t.Actor == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transition actor required")
	}
	if !t.To.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown item status %q", t.To))
	}
	if t.From == t.To {
		return nil
	}
	if t.From.IsTerminal() {
		return invalidTransition(t.From, t.To, "disposed items cannot change status")
	}

	repo := s.repo.WithTx(tx)
	changed, err := repo.SetStatusIf(ctx, t.ItemID, t.From, t.To)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update item status")
	}
	if !changed {
		return ErrStatusChanged
	}

	from := t.From
	if err := repo.InsertEvent(ctx, &models.ItemStatusEvent{
		ItemID:       t.ItemID,
		FromStatus:   &from,
		ToStatus:     t.To,
		ChangedBy:    t.Actor.ID,
		AssignmentID: t.AssignmentID,
		Note:         t.Note,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record status change")
	}
	if err := s.emit(ctx, tx, t.Actor, enums.EventItemStatusChanged, t.ItemID, payloads.ItemStatusChangedEvent{
		ItemID:       t.ItemID,
		FromStatus:   t.From,
		ToStatus:     t.To,
		ChangedBy:    t.Actor.ID,
		AssignmentID: t.AssignmentID,
		Note:         t.Note,
	}); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncTransition(string(t.From), string(t.To))
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id": t.Actor.ID.String(),
		"item_id":  t.ItemID.String(),
		"from":     t.From,
		"to":       t.To,
	})
	s.logg.Info(logCtx, "item.status_changed")
	return nil
}

func (s *service) Delete(ctx context.Context, actorID, itemID uuid.UUID) error {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapManageInventory)
	if err != nil {
		return err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, itemID); err != nil {
			return notFoundOrInternal(err, "load item")
		}
		for _, ref := range s.references {
			referenced, err := ref.ReferencesItemTx(ctx, tx, itemID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check item references")
			}
			if referenced {
				return pkgerrors.New(pkgerrors.CodeReferentialConflict, "item has assignments, maintenance requests or discounts")
			}
		}
		if err := repo.Delete(ctx, itemID); err != nil {
			return notFoundOrInternal(err, "delete item")
		}
		return nil
	})
	if err != nil {
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id": actor.ID.String(),
		"item_id":  itemID.String(),
	})
	s.logg.Info(logCtx, "item.deleted")
	return nil
}

func (s *service) Get(ctx context.Context, actorID, itemID uuid.UUID) (*ItemDTO, error) {
	if _, err := s.gate.Authorize(ctx, actorID, enums.CapBrowseInventory); err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, notFoundOrInternal(err, "load item")
	}
	return FromModel(item), nil
}

func (s *service) List(ctx context.Context, actorID uuid.UUID, filter ListFilter) (*ListResult, error) {
	if _, err := s.gate.Authorize(ctx, actorID, enums.CapBrowseInventory); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, filter, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list items")
	}
	return &ListResult{Items: fromModels(rows), NextCursor: next}, nil
}

func (s *service) History(ctx context.Context, actorID, itemID uuid.UUID) ([]StatusEventDTO, error) {
	if _, err := s.gate.Authorize(ctx, actorID, enums.CapBrowseInventory); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, itemID); err != nil {
		return nil, notFoundOrInternal(err, "load item")
	}
	rows, err := s.repo.ListEvents(ctx, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list status history")
	}
	return eventsFromModels(rows), nil
}

func (s *service) Categories(ctx context.Context, actorID uuid.UUID) ([]string, error) {
	if _, err := s.gate.Authorize(ctx, actorID, enums.CapBrowseInventory); err != nil {
		return nil, err
	}
	out, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor *authz.Principal, eventType enums.OutboxEventType, itemID uuid.UUID, data any) error {
	err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateItem,
		AggregateID:   itemID,
		Actor:         &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Role)},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue "+string(eventType))
	}
	return nil
}

func buildItem(req CreateItemRequest) (*models.Item, error) {
	var errs error
	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = multierr.Append(errs, errors.New("name is required"))
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		errs = multierr.Append(errs, errors.New("category is required"))
	}
	serial := strings.TrimSpace(req.SerialNumber)
	if serial == "" {
		errs = multierr.Append(errs, errors.New("serialNumber is required"))
	}
	status := enums.ItemStatusAvailable
	if strings.TrimSpace(req.Status) != "" {
		parsed, err := enums.ParseItemStatus(req.Status)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			status = parsed
		}
	}
	if req.PurchasePrice != nil && req.PurchasePrice.IsNegative() {
		errs = multierr.Append(errs, errors.New("purchasePrice cannot be negative"))
	}
	if errs != nil {
		return nil, pkgerrors.Validation(errs)
	}
	if status == enums.ItemStatusAssigned {
		return nil, invalidTransition("", status, "items are assigned through the assignment ledger")
	}

	item := &models.Item{
		Name:          name,
		Category:      category,
		Brand:         strings.TrimSpace(req.Brand),
		Model:         strings.TrimSpace(req.Model),
		SerialNumber:  serial,
		Status:        status,
		Location:      strings.TrimSpace(req.Location),
		PurchasePrice: req.PurchasePrice,
		Description:   strings.TrimSpace(req.Description),
	}
	if req.PurchaseDate != nil && !req.PurchaseDate.IsZero() {
		day := req.PurchaseDate.Time
		item.PurchaseDate = &day
	}
	return item, nil
}

func buildUpdates(req UpdateItemRequest) (map[string]any, error) {
	updates := map[string]any{}
	var errs error

	required := []struct {
		field  string
		column string
		value  *string
	}{
		{"name", "name", req.Name},
		{"category", "category", req.Category},
		{"serialNumber", "serial_number", req.SerialNumber},
	}
	for _, r := range required {
		if r.value == nil {
			continue
		}
		v := strings.TrimSpace(*r.value)
		if v == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s cannot be blank", r.field))
			continue
		}
		updates[r.column] = v
	}

	optional := map[string]*string{
		"brand":       req.Brand,
		"model":       req.Model,
		"location":    req.Location,
		"description": req.Description,
	}
	for column, value := range optional {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}

	if req.PurchaseDate.Set {
		if req.PurchaseDate.Value == nil || req.PurchaseDate.Value.IsZero() {
			updates["purchase_date"] = nil
		} else {
			updates["purchase_date"] = req.PurchaseDate.Value.Time
		}
	}
	if req.PurchasePrice.Set {
		if req.PurchasePrice.Value == nil {
			updates["purchase_price"] = nil
		} else if req.PurchasePrice.Value.IsNegative() {
			errs = multierr.Append(errs, errors.New("purchasePrice cannot be negative"))
		} else {
			updates["purchase_price"] = *req.PurchasePrice.Value
		}
	}

	if errs != nil {
		return nil, pkgerrors.Validation(errs)
	}
	return updates, nil
}

func ensureSerialFree(ctx context.Context, repo *Repository, serial string, self uuid.UUID) error {
	existing, err := repo.FindBySerial(ctx, serial)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check serial number")
	}
	if existing.ID == self {
		return nil
	}
	return duplicateSerial(serial, nil)
}

func duplicateSerial(serial string, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDuplicateSerial, cause, "serial number already registered").
		WithDetails(map[string]any{"serialNumber": serial})
}

func invalidTransition(from, to enums.ItemStatus, message string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, message).WithDetails(map[string]any{
		"from": from,
		"to":   to,
	})
}

func notFoundOrInternal(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
