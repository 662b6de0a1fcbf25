package drafts

import (
	"errors"

	pkgerrors "github.com/angelmondragon/orderdraft/pkg/errors"
)

var (
	ErrLineIDRequired          = errors.New("line item id is required")
	ErrDuplicateLine           = errors.New("item already exists in the order")
	ErrLineIndexOutOfRange     = errors.New("line index out of range")
	ErrLineNotFound            = errors.New("line item not in draft")
	ErrInvalidDelta            = errors.New("quantity delta must be 1 or -1")
	ErrRecipientIDRequired     = errors.New("recipient id is required")
	ErrRecipientWithoutAddress = errors.New("recipient has no address")
	ErrNoRecipient             = errors.New("please select a recipient")
	ErrEmptyCart               = errors.New("please add at least one product")
	ErrNoEligibleRecipients    = errors.New("no eligible recipients available")
	ErrInvalidPhone            = errors.New("recipient phone number is invalid")
	ErrSubmitInFlight          = errors.New("a submission for this draft is already in progress")
	ErrDraftNotFound           = errors.New("draft not found")
	ErrDraftResetFailed        = errors.New("order created but the draft could not be reset; do not resubmit")
)

type classification struct {
	sentinel error
	code     pkgerrors.Code
	reason   string
	warning  bool
}

var classifications = map[error]classification{
	ErrLineIDRequired:          {code: pkgerrors.CodeValidation, reason: "line_id_required"},
	ErrDuplicateLine:           {code: pkgerrors.CodeConflict, reason: "duplicate_line", warning: true},
	ErrLineIndexOutOfRange:     {code: pkgerrors.CodeValidation, reason: "line_index_out_of_range"},
	ErrLineNotFound:            {code: pkgerrors.CodeNotFound, reason: "line_not_found"},
	ErrInvalidDelta:            {code: pkgerrors.CodeValidation, reason: "invalid_delta"},
	ErrRecipientIDRequired:     {code: pkgerrors.CodeValidation, reason: "recipient_id_required"},
	ErrRecipientWithoutAddress: {code: pkgerrors.CodeValidation, reason: "recipient_without_address", warning: true},
	ErrNoRecipient:             {code: pkgerrors.CodeValidation, reason: "no_recipient"},
	ErrEmptyCart:               {code: pkgerrors.CodeValidation, reason: "empty_cart"},
	ErrNoEligibleRecipients:    {code: pkgerrors.CodeStateConflict, reason: "no_eligible_recipients"},
	ErrInvalidPhone:            {code: pkgerrors.CodeValidation, reason: "invalid_phone"},
	ErrSubmitInFlight:          {code: pkgerrors.CodeStateConflict, reason: "submit_in_flight"},
	ErrDraftNotFound:           {code: pkgerrors.CodeNotFound, reason: "draft_not_found"},
	ErrDraftResetFailed:        {code: pkgerrors.CodeDependency, reason: "draft_reset_failed"},
}

// Warning is a refused, non-fatal operation reported alongside the unchanged draft.
type Warning struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func lookup(err error) (classification, bool) {
	for sentinel, c := range classifications {
		if errors.Is(err, sentinel) {
			c.sentinel = sentinel
			return c, true
		}
	}
	return classification{}, false
}

// asWarning converts warning-class sentinels into a Warning.
func asWarning(err error) (Warning, bool) {
	c, ok := lookup(err)
	if !ok || !c.warning {
		return Warning{}, false
	}
	return Warning{Reason: c.reason, Message: c.sentinel.Error()}, true
}

// toAPIError maps domain sentinels onto typed errors carrying a reason detail.
// Errors that are already typed pass through unchanged.
func toAPIError(err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	c, ok := lookup(err)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "draft operation failed")
	}
	return pkgerrors.Wrap(c.code, err, c.sentinel.Error()).WithDetails(map[string]any{"reason": c.reason})
}

// Reason returns the machine-readable reason for a domain error, or "".
func Reason(err error) string {
	if c, ok := lookup(err); ok {
		return c.reason
	}
	return ""
}
