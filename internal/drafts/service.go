package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"

	"github.com/angelmondragon/orderdraft/pkg/adminapi"
	pkgerrors "github.com/angelmondragon/orderdraft/pkg/errors"
	"github.com/angelmondragon/orderdraft/pkg/logger"
	"github.com/angelmondragon/orderdraft/pkg/metrics"
)

const (
	lockStripes   = 64
	resetAttempts = 3
)

const (
	opGet             = "get"
	opAddLine         = "add_line"
	opRemoveLine      = "remove_line"
	opSetQuantity     = "set_quantity"
	opSelectRecipient = "select_recipient"
	opCancel          = "cancel"

	resultOK      = "ok"
	resultWarning = "warning"
	resultError   = "error"

	outcomeCreated    = "created"
	outcomeRejected   = "rejected"
	outcomeFailed     = "failed"
	outcomeInvalid    = "invalid"
	outcomeInFlight   = "in_flight"
	outcomeIneligible = "no_eligible_recipients"
)

// Backend is the part of the admin API the aggregator submits through.
type Backend interface {
	ListEligibleUsers(ctx context.Context, search string) ([]adminapi.User, error)
	CreateFakeOrder(ctx context.Context, req adminapi.CreateOrderRequest) (*adminapi.CreatedOrder, error)
}

// Snapshot is the draft after an operation, its totals and any non-fatal refusals.
type Snapshot struct {
	Draft    *Draft
	Totals   Totals
	Warnings []Warning
}

// SubmitInput carries the optional fields of a submission.
type SubmitInput struct {
	OrderTime *time.Time
}

// SubmitResult describes a created order. Totals are those of the submitted draft;
// Draft is the reset, empty draft that replaces it.
type SubmitResult struct {
	OrderID string
	Totals  Totals
	Draft   *Snapshot
}

// Service exposes the order draft aggregator.
type Service interface {
	Get(ctx context.Context, key Key) (*Snapshot, error)
	AddLine(ctx context.Context, key Key, item adminapi.ShopProduct) (*Snapshot, error)
	RemoveLine(ctx context.Context, key Key, index int) (*Snapshot, error)
	SetQuantity(ctx context.Context, key Key, itemID string, delta int) (*Snapshot, error)
	SelectRecipient(ctx context.Context, key Key, user adminapi.User) (*Snapshot, error)
	Totals(ctx context.Context, key Key) (Totals, error)
	Submit(ctx context.Context, key Key, input SubmitInput) (*SubmitResult, error)
	Cancel(ctx context.Context, key Key) (*Snapshot, error)
}

// ServiceParams groups the collaborators of the draft service.
type ServiceParams struct {
	Store         Store
	Guard         SubmitGuard
	Backend       Backend
	Pricing       Pricing
	CheckEligible bool
	Metrics       *metrics.DraftMetrics
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	store         Store
	guard         SubmitGuard
	backend       Backend
	pricing       Pricing
	checkEligible bool
	metrics       *metrics.DraftMetrics
	logg          *logger.Logger
	now           func() time.Time
	stripes       [lockStripes]sync.Mutex
}

// NewService builds the draft service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("draft store required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("submit guard required")
	}
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:         params.Store,
		guard:         params.Guard,
		backend:       params.Backend,
		pricing:       params.Pricing,
		checkEligible: params.CheckEligible,
		metrics:       params.Metrics,
		logg:          params.Logger,
		now:           now,
	}, nil
}

// lock serializes load-mutate-save for one draft key.
func (s *service) lock(key Key) func() {
	mu := &s.stripes[xxhash.Sum64String(key.String())%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (s *service) withLog(ctx context.Context, key Key) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithUserID(ctx, key.Owner)
	return s.logg.WithShopID(ctx, key.ShopID)
}

func validateKey(key Key) error {
	if !key.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "draft owner and shop are required and may not contain ':'")
	}
	return nil
}

// load returns the stored draft or a fresh empty one.
func (s *service) load(ctx context.Context, key Key) (*Draft, error) {
	draft, err := s.store.Load(ctx, key)
	if errors.Is(err, ErrDraftNotFound) {
		return New(key, s.now()), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	return draft, nil
}

func (s *service) save(ctx context.Context, draft *Draft) error {
	if draft.State() == StateEmpty {
		if err := s.store.Delete(ctx, draft.Key()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete draft")
		}
		return nil
	}
	draft.UpdatedAt = s.now()
	if err := s.store.Save(ctx, draft); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save draft")
	}
	return nil
}

func (s *service) snapshot(draft *Draft, warnings ...Warning) *Snapshot {
	return &Snapshot{
		Draft:    draft.Clone(),
		Totals:   ComputeTotals(draft, s.pricing),
		Warnings: warnings,
	}
}

// mutate runs fn against the current draft under the key lock.
// Warning-class refusals leave the draft unchanged and are reported in the snapshot.
func (s *service) mutate(ctx context.Context, op string, key Key, fn func(*Draft) error) (*Snapshot, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	ctx = s.withLog(ctx, key)

	unlock := s.lock(key)
	defer unlock()

	draft, err := s.load(ctx, key)
	if err != nil {
		s.metrics.IncOperation(op, resultError)
		return nil, err
	}

	if err := fn(draft); err != nil {
		if warning, ok := asWarning(err); ok {
			s.metrics.IncOperation(op, resultWarning)
			if s.logg != nil {
				s.logg.Info(s.logg.WithField(ctx, "reason", warning.Reason), "draft."+op+".refused")
			}
			return s.snapshot(draft, warning), nil
		}
		s.metrics.IncOperation(op, resultError)
		return nil, toAPIError(err)
	}

	if err := s.save(ctx, draft); err != nil {
		s.metrics.IncOperation(op, resultError)
		return nil, err
	}
	s.metrics.IncOperation(op, resultOK)
	return s.snapshot(draft), nil
}

func (s *service) Get(ctx context.Context, key Key) (*Snapshot, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	draft, err := s.load(ctx, key)
	if err != nil {
		s.metrics.IncOperation(opGet, resultError)
		return nil, err
	}
	s.metrics.IncOperation(opGet, resultOK)
	return s.snapshot(draft), nil
}

func (s *service) AddLine(ctx context.Context, key Key, item adminapi.ShopProduct) (*Snapshot, error) {
	item.ID = strings.TrimSpace(item.ID)
	return s.mutate(ctx, opAddLine, key, func(d *Draft) error {
		return d.AddLine(item)
	})
}

func (s *service) RemoveLine(ctx context.Context, key Key, index int) (*Snapshot, error) {
	return s.mutate(ctx, opRemoveLine, key, func(d *Draft) error {
		return d.RemoveLine(index)
	})
}

func (s *service) SetQuantity(ctx context.Context, key Key, itemID string, delta int) (*Snapshot, error) {
	itemID = strings.TrimSpace(itemID)
	return s.mutate(ctx, opSetQuantity, key, func(d *Draft) error {
		return d.SetQuantity(itemID, delta)
	})
}

func (s *service) SelectRecipient(ctx context.Context, key Key, user adminapi.User) (*Snapshot, error) {
	return s.mutate(ctx, opSelectRecipient, key, func(d *Draft) error {
		return d.SelectRecipient(user)
	})
}

func (s *service) Totals(ctx context.Context, key Key) (Totals, error) {
	snap, err := s.Get(ctx, key)
	if err != nil {
		return Totals{}, err
	}
	return snap.Totals, nil
}

func (s *service) Cancel(ctx context.Context, key Key) (*Snapshot, error) {
	return s.mutate(ctx, opCancel, key, func(d *Draft) error {
		d.Reset()
		return nil
	})
}

// Submit validates the draft, creates the order upstream and resets the draft on success.
// A failed backend call leaves the draft as it was.
func (s *service) Submit(ctx context.Context, key Key, input SubmitInput) (*SubmitResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	ctx = s.withLog(ctx, key)
	start := s.now()
	defer func() { s.metrics.ObserveSubmit(s.now().Sub(start)) }()

	release, err := s.guard.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSubmitInFlight) {
			s.metrics.IncSubmission(outcomeInFlight)
			return nil, toAPIError(err)
		}
		s.metrics.IncSubmission(outcomeFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire submit guard")
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil && s.logg != nil {
			s.logg.Error(ctx, "draft.submit.release_failed", relErr)
		}
	}()

	// Store reads are the only work done under the key lock; the backend calls
	// below run unlocked and the guard keeps a second submit out.
	unlock := s.lock(key)
	draft, err := s.load(ctx, key)
	unlock()
	if err != nil {
		s.metrics.IncSubmission(outcomeFailed)
		return nil, err
	}
	if s.logg != nil {
		ctx = s.logg.WithDraftID(ctx, draft.ID.String())
	}

	if err := checkSubmittable(draft); err != nil {
		return nil, s.refuseSubmit(ctx, outcomeInvalid, err)
	}

	if s.checkEligible {
		users, err := s.backend.ListEligibleUsers(ctx, "")
		if err != nil {
			s.metrics.IncSubmission(outcomeFailed)
			return nil, err
		}
		if len(users) == 0 {
			return nil, s.refuseSubmit(ctx, outcomeIneligible, ErrNoEligibleRecipients)
		}
	}

	if err := checkRecipient(draft.Recipient); err != nil {
		return nil, s.refuseSubmit(ctx, outcomeInvalid, err)
	}

	totals := ComputeTotals(draft, s.pricing)
	lineCount := draft.TotalSelected()
	created, err := s.backend.CreateFakeOrder(ctx, BuildOrderRequest(draft, input.OrderTime))
	if err != nil {
		outcome := outcomeFailed
		if pkgerrors.IsCode(err, pkgerrors.CodeUpstream) {
			outcome = outcomeRejected
		}
		s.metrics.IncSubmission(outcome)
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "draft.submit.backend_failed")
		}
		return nil, err
	}

	s.metrics.IncSubmission(outcomeCreated)
	if s.logg != nil {
		ctx = s.logg.WithField(ctx, "order_id", created.ID)
	}

	draft.Reset()
	if err := s.resetAfterSubmit(ctx, draft); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "draft.submit.reset_failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %w", ErrDraftResetFailed, err), ErrDraftResetFailed.Error()).
			WithDetails(map[string]any{"reason": Reason(ErrDraftResetFailed), "orderId": created.ID})
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"grand_total": totals.GrandTotal.StringFixed(moneyPlaces),
			"lines":       lineCount,
		}), "draft.submit.created")
	}

	return &SubmitResult{
		OrderID: created.ID,
		Totals:  totals,
		Draft:   s.snapshot(draft),
	}, nil
}

// resetAfterSubmit clears the stored draft once its order exists. Edits made while
// the order was being created are discarded with it. When the delete keeps failing
// an empty draft is written over the submitted one.
func (s *service) resetAfterSubmit(ctx context.Context, draft *Draft) error {
	ctx = context.WithoutCancel(ctx)
	unlock := s.lock(draft.Key())
	defer unlock()

	var errs error
	for attempt := 0; attempt < resetAttempts; attempt++ {
		err := s.store.Delete(ctx, draft.Key())
		if err == nil {
			return nil
		}
		errs = multierr.Append(errs, err)
	}
	draft.UpdatedAt = s.now()
	if err := s.store.Save(ctx, draft); err != nil {
		return multierr.Append(errs, err)
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", errs.Error()), "draft.submit.reset_overwritten")
	}
	return nil
}

// refuseSubmit records a failed submit precondition; the draft is left untouched.
func (s *service) refuseSubmit(ctx context.Context, outcome string, err error) error {
	s.metrics.IncSubmission(outcome)
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "reason", Reason(err)), "draft.submit.refused")
	}
	return toAPIError(err)
}
