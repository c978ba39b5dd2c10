package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/assettrack-backend/internal/authz"
	"github.com/angelmondragon/assettrack-backend/internal/items"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/assettrack-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	noteAssigned = "assignment created"
	noteReturned = "assignment returned"
	noteCanceled = "assignment canceled"
)

// Service is the assignment ledger.
type Service interface {
	Assign(ctx context.Context, actorID uuid.UUID, req AssignRequest) (*AssignmentDTO, error)
	Return(ctx context.Context, actorID, assignmentID uuid.UUID, req ReturnRequest) (*AssignmentDTO, error)
	Update(ctx context.Context, actorID, assignmentID uuid.UUID, req UpdateRequest) (*AssignmentDTO, error)
	Delete(ctx context.Context, actorID, assignmentID uuid.UUID) error
	Get(ctx context.Context, actorID, assignmentID uuid.UUID) (*AssignmentDTO, error)
	ListForEmployee(ctx context.Context, actorID, employeeID uuid.UUID) ([]AssignmentDTO, error)
	ListAll(ctx context.Context, actorID uuid.UUID, filter ListFilter) ([]AssignmentDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type itemLedger interface {
	LoadTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.Item, error)
	TransitionTx(ctx context.Context, tx *gorm.DB, t items.Transition) error
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
	items      itemLedger
	principals principalLookup
	emitter    outbox.Emitter
	metrics    eventRecorder
	logg       *logger.Logger
	now        func() time.Time
}

// ServiceParams bundles the ledger dependencies.
type ServiceParams struct {
	Repo       *Repository
	DB         txRunner
	Gate       authz.Authorizer
	Items      itemLedger
	Principals principalLookup
	Emitter    outbox.Emitter
	Metrics    eventRecorder
	Logger     *logger.Logger
	Clock      func() time.Time
}

// NewService constructs the assignment ledger.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("assignment repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Gate == nil:
		return nil, fmt.Errorf("authorization gate required")
	case params.Items == nil:
		return nil, fmt.Errorf("item registry required")
	case params.Principals == nil:
		return nil, fmt.Errorf("principal lookup required")
	}
	emitter := params.Emitter
	if emitter == nil {
		emitter = outbox.NopEmitter{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:       params.Repo,
		tx:         params.DB,
		gate:       params.Gate,
		items:      params.Items,
		principals: params.Principals,
		emitter:    emitter,
		metrics:    params.Metrics,
		logg:       logg,
		now:        clock,
	}, nil
}

func (s *service) Assign(ctx context.Context, actorID uuid.UUID, req AssignRequest) (*AssignmentDTO, error) {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapManageAssignments)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	assignment, err := s.buildAssignment(req, actor.ID, now)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAssignee(ctx, assignment.EmployeeID); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		item, err := s.items.LoadTx(ctx, tx, assignment.ItemID)
		if err != nil {
			return err
		}
		if item.Status != enums.ItemStatusAvailable {
			return itemNotAvailable(item.ID, item.Status, nil)
		}
		if err := s.repo.WithTx(tx).Create(ctx, assignment); err != nil {
			if db.IsUniqueViolation(err, "") {
				return itemNotAvailable(item.ID, item.Status, err)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create assignment")
		}
		err = s.items.TransitionTx(ctx, tx, items.Transition{
			ItemID:       item.ID,
			From:         enums.ItemStatusAvailable,
			To:           enums.ItemStatusAssigned,
			Actor:        actor,
			AssignmentID: &assignment.ID,
			Note:         noteAssigned,
		})
		if errors.Is(err, items.ErrStatusChanged) {
			return itemNotAvailable(item.ID, item.Status, err)
		}
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, actor, enums.EventAssignmentCreated, assignment.ID, payloads.AssignmentCreatedEvent{
			AssignmentID:       assignment.ID,
			ItemID:             assignment.ItemID,
			EmployeeID:         assignment.EmployeeID,
			AssignmentDate:     assignment.AssignmentDate,
			ExpectedReturnDate: assignment.ExpectedReturnDate,
			Condition:          assignment.Condition,
		})
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, assignment, string(enums.EventAssignmentCreated))
	dto := toDTO(assignment, s.now())
	return &dto, nil
}

func (s *service) Return(ctx context.Context, actorID, assignmentID uuid.UUID, req ReturnRequest) (*AssignmentDTO, error) {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapManageAssignments)
	if err != nil {
		return nil, err
	}
	condition := enums.ConditionGood
	if strings.TrimSpace(req.Condition) != "" {
		if condition, err = enums.ParseCondition(req.Condition); err != nil {
			return nil, pkgerrors.Validation(err)
		}
	}

	var returned *models.Assignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{"condition": condition}
		if req.Notes != nil {
			updates["notes"] = strings.TrimSpace(*req.Notes)
		}
		var err error
		returned, err = s.closeTx(ctx, tx, actor, assignmentID, updates, condition.ReturnStatus(), noteReturned, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, returned, string(enums.EventAssignmentReturned))
	dto := toDTO(returned, s.now())
	return &dto, nil
}

// closeTx ends custody: it stamps the return, moves the item to target and
// queues assignment_returned. Only one concurrent caller can close a given
// assignment.
func (s *service) closeTx(ctx context.Context, tx *gorm.DB, actor *authz.Principal, assignmentID uuid.UUID, updates map[string]any, target enums.ItemStatus, note string, canceled bool) (*models.Assignment, error) {
	repo := s.repo.WithTx(tx)
	current, err := repo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, notFoundOrInternal(err, "load assignment")
	}
	if !current.IsOpen() {
		return nil, alreadyReturned(current.ID)
	}

	returnedAt := s.now().UTC()
	updates["actual_return_date"] = returnedAt
	if canceled {
		updates["canceled_at"] = returnedAt
	}
	closed, err := repo.Close(ctx, current.ID, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close assignment")
	}
	if !closed {
		return nil, alreadyReturned(current.ID)
	}

	item, err := s.items.LoadTx(ctx, tx, current.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.Status.IsTerminal() {
		err = s.items.TransitionTx(ctx, tx, items.Transition{
			ItemID:       item.ID,
			From:         item.Status,
			To:           target,
			Actor:        actor,
			AssignmentID: &current.ID,
			Note:         note,
		})
		if errors.Is(err, items.ErrStatusChanged) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "item status changed, retry")
		}
		if err != nil {
			return nil, err
		}
	}

	out, err := repo.FindByID(ctx, current.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload assignment")
	}
	if err := s.emit(ctx, tx, actor, enums.EventAssignmentReturned, out.ID, payloads.AssignmentReturnedEvent{
		AssignmentID: out.ID,
		ItemID:       out.ItemID,
		EmployeeID:   out.EmployeeID,
		ReturnedAt:   returnedAt,
		Condition:    out.Condition,
		ItemStatus:   target,
		Canceled:     canceled,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, actorID, assignmentID uuid.UUID, req UpdateRequest) (*AssignmentDTO, error) {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapManageAssignments)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, notFoundOrInternal(err, "load assignment")
	}
	updates, err := s.buildUpdates(ctx, current, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, current.ID, updates); err != nil {
		return nil, notFoundOrInternal(err, "update assignment")
	}
	updated, err := s.repo.FindByID(ctx, current.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload assignment")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id":      actor.ID.String(),
		"assignment_id": current.ID.String(),
	})
	s.logg.Info(logCtx, "assignment.updated")
	dto := toDTO(updated, s.now())
	return &dto, nil
}

// Delete cancels an open assignment, returning the item to Available, and
// then soft-deletes the row.
func (s *service) Delete(ctx context.Context, actorID, assignmentID uuid.UUID) error {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapManageAssignments)
	if err != nil {
		return err
	}

	var canceled *models.Assignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, assignmentID)
		if err != nil {
			return notFoundOrInternal(err, "load assignment")
		}
		if current.IsOpen() {
			canceled, err = s.closeTx(ctx, tx, actor, current.ID, map[string]any{}, enums.ItemStatusAvailable, noteCanceled, true)
			if err != nil {
				return err
			}
		}
		if err := repo.SoftDelete(ctx, current.ID); err != nil {
			return notFoundOrInternal(err, "delete assignment")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if canceled != nil {
		s.record(ctx, actor, canceled, "assignment_canceled")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id":      actor.ID.String(),
		"assignment_id": assignmentID.String(),
	})
	s.logg.Info(logCtx, "assignment.deleted")
	return nil
}

// Get returns an assignment to its holder or to a ledger manager.
func (s *service) Get(ctx context.Context, actorID, assignmentID uuid.UUID) (*AssignmentDTO, error) {
	actor, err := s.gate.AuthorizeAny(ctx, actorID, enums.CapViewOwnAssignments, enums.CapManageAssignments)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, notFoundOrInternal(err, "load assignment")
	}
	if a.EmployeeID != actor.ID && !actor.Can(enums.CapManageAssignments) {
		return nil, notOwner()
	}
	dto := toDTO(a, s.now())
	return &dto, nil
}

func (s *service) ListForEmployee(ctx context.Context, actorID, employeeID uuid.UUID) ([]AssignmentDTO, error) {
	capability := enums.CapManageAssignments
	if actorID == employeeID {
		capability = enums.CapViewOwnAssignments
	}
	if _, err := s.gate.Authorize(ctx, actorID, capability); err != nil {
		return nil, err
	}
	now := s.now()
	rows, err := s.repo.List(ctx, ListFilter{EmployeeID: &employeeID}, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list assignments")
	}
	return toDTOs(rows, now), nil
}

func (s *service) ListAll(ctx context.Context, actorID uuid.UUID, filter ListFilter) ([]AssignmentDTO, error) {
	if _, err := s.gate.Authorize(ctx, actorID, enums.CapManageAssignments); err != nil {
		return nil, err
	}
	now := s.now()
	rows, err := s.repo.List(ctx, filter, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list assignments")
	}
	return toDTOs(rows, now), nil
}

func (s *service) buildAssignment(req AssignRequest, assignedBy uuid.UUID, now time.Time) (*models.Assignment, error) {
	var errs error
	if req.ItemID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("itemId is required"))
	}
	if req.EmployeeID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("employeeId is required"))
	}
	condition := enums.ConditionGood
	if strings.TrimSpace(req.Condition) != "" {
		parsed, err := enums.ParseCondition(req.Condition)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			condition = parsed
		}
	}
	assignedOn := types.TruncateDay(now)
	if req.AssignmentDate != nil && !req.AssignmentDate.IsZero() {
		assignedOn = req.AssignmentDate.Time
	}
	var expected *time.Time
	if req.ExpectedReturnDate != nil && !req.ExpectedReturnDate.IsZero() {
		day := req.ExpectedReturnDate.Time
		if day.Before(assignedOn) {
			errs = multierr.Append(errs, errors.New("expectedReturnDate cannot be before assignmentDate"))
		}
		expected = &day
	}
	if errs != nil {
		return nil, pkgerrors.Validation(errs)
	}
	return &models.Assignment{
		ItemID:             req.ItemID,
		EmployeeID:         req.EmployeeID,
		AssignedBy:         assignedBy,
		AssignmentDate:     assignedOn,
		ExpectedReturnDate: expected,
		Condition:          condition,
		Notes:              strings.TrimSpace(req.Notes),
	}, nil
}

func (s *service) buildUpdates(ctx context.Context, current *models.Assignment, req UpdateRequest) (map[string]any, error) {
	if req.ItemID != nil && *req.ItemID != current.ItemID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item reference is immutable")
	}
	updates := map[string]any{}
	if req.Notes != nil {
		updates["notes"] = strings.TrimSpace(*req.Notes)
	}
	custodyEdit := req.EmployeeID != nil || req.AssignmentDate != nil || req.ExpectedReturnDate.Set || req.Condition != nil
	if !current.IsOpen() {
		if custodyEdit {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "returned assignments only accept notes")
		}
		return updates, nil
	}

	var errs error
	if req.Condition != nil {
		condition, err := enums.ParseCondition(*req.Condition)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			updates["condition"] = condition
		}
	}
	assignedOn := current.AssignmentDate
	if req.AssignmentDate != nil && !req.AssignmentDate.IsZero() {
		assignedOn = req.AssignmentDate.Time
		updates["assignment_date"] = assignedOn
	}
	expected := current.ExpectedReturnDate
	if req.ExpectedReturnDate.Set {
		if req.ExpectedReturnDate.Value == nil || req.ExpectedReturnDate.Value.IsZero() {
			expected = nil
			updates["expected_return_date"] = nil
		} else {
			day := req.ExpectedReturnDate.Value.Time
			expected = &day
			updates["expected_return_date"] = day
		}
	}
	if expected != nil && expected.Before(assignedOn) {
		errs = multierr.Append(errs, errors.New("expectedReturnDate cannot be before assignmentDate"))
	}
	if errs != nil {
		return nil, pkgerrors.Validation(errs)
	}

	if req.EmployeeID != nil && *req.EmployeeID != current.EmployeeID {
		if err := s.ensureAssignee(ctx, *req.EmployeeID); err != nil {
			return nil, err
		}
		updates["employee_id"] = *req.EmployeeID
	}
	return updates, nil
}

func (s *service) ensureAssignee(ctx context.Context, employeeID uuid.UUID) error {
	user, err := s.principals.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load employee")
	}
	if !user.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "employee is disabled")
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor *authz.Principal, eventType enums.OutboxEventType, assignmentID uuid.UUID, data any) error {
	err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateAssignment,
		AggregateID:   assignmentID,
		Actor:         &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Role)},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue "+string(eventType))
	}
	return nil
}

func (s *service) record(ctx context.Context, actor *authz.Principal, a *models.Assignment, event string) {
	if s.metrics != nil {
		s.metrics.IncEvent(event)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id":      actor.ID.String(),
		"assignment_id": a.ID.String(),
		"item_id":       a.ItemID.String(),
		"employee_id":   a.EmployeeID.String(),
	})
	s.logg.Info(logCtx, strings.Replace(event, "_", ".", 1))
}

func itemNotAvailable(itemID uuid.UUID, status enums.ItemStatus, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeItemNotAvailable, cause, "item is not available").
		WithDetails(map[string]any{"itemId": itemID, "status": status})
}

func alreadyReturned(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeAlreadyReturned, "assignment already returned").
		WithDetails(map[string]any{"assignmentId": id})
}

func notOwner() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "not permitted").WithDetails(map[string]any{
		"capability": string(enums.CapManageAssignments),
		"reason":     authz.ReasonMissingCapability,
	})
}

func notFoundOrInternal(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
