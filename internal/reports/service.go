package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/assettrack-backend/internal/authz"
	"github.com/angelmondragon/assettrack-backend/internal/items"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Service derives read-only summaries from current state. Nothing is cached.
type Service interface {
	Overview(ctx context.Context, actorID uuid.UUID) (*Overview, error)
	CategoryBreakdown(ctx context.Context, actorID uuid.UUID) ([]CategorySummary, error)
}

type itemCounter interface {
	CountByStatus(ctx context.Context) (map[enums.ItemStatus]int64, error)
	CountByCategory(ctx context.Context) ([]items.CategoryCount, error)
}

type assignmentCounter interface {
	CountOpen(ctx context.Context, employeeID *uuid.UUID, now time.Time) (active, overdue int64, err error)
}

type principalCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

type service struct {
	gate        authz.Authorizer
	items       itemCounter
	assignments assignmentCounter
	principals  principalCounter
	logg        *logger.Logger
	now         func() time.Time
}

type ServiceParams struct {
	Gate        authz.Authorizer
	Items       itemCounter
	Assignments assignmentCounter
	Principals  principalCounter
	Logger      *logger.Logger
	Clock       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Gate == nil:
		return nil, fmt.Errorf("authorization gate required")
	case params.Items == nil:
		return nil, fmt.Errorf("item counter required")
	case params.Assignments == nil:
		return nil, fmt.Errorf("assignment counter required")
	case params.Principals == nil:
		return nil, fmt.Errorf("principal counter required")
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
		gate:        params.Gate,
		items:       params.Items,
		assignments: params.Assignments,
		principals:  params.Principals,
		logg:        logg,
		now:         clock,
	}, nil
}

// Overview counts items by status and open assignments. Callers without
// ManageAssignments only see their own assignments and no principal total.
func (s *service) Overview(ctx context.Context, actorID uuid.UUID) (*Overview, error) {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapViewReports)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := &Overview{Scope: ScopeAll, GeneratedAt: now}

	var scope *uuid.UUID
	fullView := actor.Can(enums.CapManageAssignments)
	if !fullView {
		scope = &actor.ID
		out.Scope = ScopeSelf
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.items.CountByStatus(gctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count items")
		}
		out.Available = counts[enums.ItemStatusAvailable]
		out.Assigned = counts[enums.ItemStatusAssigned]
		out.UnderRepair = counts[enums.ItemStatusUnderRepair]
		out.Damaged = counts[enums.ItemStatusDamaged]
		out.Disposed = counts[enums.ItemStatusDisposed]
		for _, n := range counts {
			out.TotalItems += n
		}
		return nil
	})
	g.Go(func() error {
		active, overdue, err := s.assignments.CountOpen(gctx, scope, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count assignments")
		}
		out.ActiveAssignments = active
		out.OverdueAssignments = overdue
		return nil
	})
	if fullView {
		g.Go(func() error {
			total, err := s.principals.CountActive(gctx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count principals")
			}
			out.TotalPrincipals = &total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CategoryBreakdown returns per-category totals ordered by category name.
func (s *service) CategoryBreakdown(ctx context.Context, actorID uuid.UUID) ([]CategorySummary, error) {
	if _, err := s.gate.Authorize(ctx, actorID, enums.CapViewReports); err != nil {
		return nil, err
	}
	rows, err := s.items.CountByCategory(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count categories")
	}

	byName := make(map[string]*CategorySummary)
	for _, row := range rows {
		name := strings.TrimSpace(row.Category)
		if name == "" {
			name = "Uncategorized"
		}
		entry, ok := byName[name]
		if !ok {
			entry = &CategorySummary{Category: name, ByStatus: map[enums.ItemStatus]int64{}}
			byName[name] = entry
		}
		entry.ByStatus[row.Status] += row.Count
		entry.Total += row.Count
	}

	out := make([]CategorySummary, 0, len(byName))
	for _, entry := range byName {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}
