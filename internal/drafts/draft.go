package drafts

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdraft/pkg/adminapi"
)

// State is the coarse lifecycle of a draft.
type State string

const (
	StateEmpty    State = "empty"
	StateDrafting State = "drafting"
)

const defaultQuantity = 1

// Key identifies the draft an admin is building for one shop.
type Key struct {
	Owner  string
	ShopID string
}

// keySeparator joins Owner and ShopID; neither half may contain it.
const keySeparator = ":"

func (k Key) String() string {
	return k.Owner + keySeparator + k.ShopID
}

// Valid reports whether both halves are present and free of the separator.
func (k Key) Valid() bool {
	return validKeyPart(k.Owner) && validKeyPart(k.ShopID)
}

func validKeyPart(part string) bool {
	return strings.TrimSpace(part) != "" && !strings.Contains(part, keySeparator)
}

// Recipient is the customer the order is created for.
type Recipient struct {
	UserID  string `json:"userId" validate:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone" validate:"omitempty,intl_phone"`
	Address string `json:"address" validate:"required"`
}

// Draft is an uncommitted order: selected catalog lines, their quantities and a recipient.
// Lines keep insertion order; a line id appears at most once.
type Draft struct {
	ID         uuid.UUID              `json:"id"`
	Owner      string                 `json:"owner"`
	ShopID     string                 `json:"shopId"`
	Lines      []adminapi.ShopProduct `json:"lines"`
	Quantities map[string]int         `json:"quantities"`
	Recipient  *Recipient             `json:"recipient,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// New returns an empty draft for key.
func New(key Key, now time.Time) *Draft {
	return &Draft{
		ID:         uuid.New(),
		Owner:      key.Owner,
		ShopID:     key.ShopID,
		Lines:      []adminapi.ShopProduct{},
		Quantities: map[string]int{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Key returns the identity the draft is stored under.
func (d *Draft) Key() Key {
	return Key{Owner: d.Owner, ShopID: d.ShopID}
}

// State derives Empty or Drafting from the draft contents.
func (d *Draft) State() State {
	if len(d.Lines) == 0 && d.Recipient == nil {
		return StateEmpty
	}
	return StateDrafting
}

// TotalSelected is the number of distinct lines in the draft.
func (d *Draft) TotalSelected() int {
	return len(d.Lines)
}

// Quantity returns the effective quantity for itemID; unset entries read as 1.
func (d *Draft) Quantity(itemID string) int {
	if q, ok := d.Quantities[itemID]; ok && q >= defaultQuantity {
		return q
	}
	return defaultQuantity
}

func (d *Draft) indexOf(itemID string) int {
	for i, line := range d.Lines {
		if line.ID == itemID {
			return i
		}
	}
	return -1
}

// AddLine appends item. A duplicate id leaves the draft untouched and returns ErrDuplicateLine.
func (d *Draft) AddLine(item adminapi.ShopProduct) error {
	if strings.TrimSpace(item.ID) == "" {
		return ErrLineIDRequired
	}
	if d.indexOf(item.ID) >= 0 {
		return ErrDuplicateLine
	}
	d.Lines = append(d.Lines, item)
	return nil
}

// RemoveLine deletes the line at index.
func (d *Draft) RemoveLine(index int) error {
	if index < 0 || index >= len(d.Lines) {
		return ErrLineIndexOutOfRange
	}
	removed := d.Lines[index]
	d.Lines = append(d.Lines[:index], d.Lines[index+1:]...)
	delete(d.Quantities, removed.ID)
	return nil
}

// SetQuantity moves the quantity of itemID by delta (+1 or -1), never below 1.
func (d *Draft) SetQuantity(itemID string, delta int) error {
	if delta != 1 && delta != -1 {
		return ErrInvalidDelta
	}
	if d.indexOf(itemID) < 0 {
		return ErrLineNotFound
	}
	next := d.Quantity(itemID) + delta
	if next < defaultQuantity {
		next = defaultQuantity
	}
	if d.Quantities == nil {
		d.Quantities = map[string]int{}
	}
	d.Quantities[itemID] = next
	return nil
}

// SelectRecipient replaces the recipient wholesale. Users without an address are refused.
func (d *Draft) SelectRecipient(user adminapi.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return ErrRecipientIDRequired
	}
	if strings.TrimSpace(user.Address) == "" {
		return ErrRecipientWithoutAddress
	}
	d.Recipient = &Recipient{
		UserID:  user.ID,
		Email:   user.Email,
		Phone:   user.Phone,
		Address: user.Address,
	}
	return nil
}

// Reset clears lines, quantities and recipient.
func (d *Draft) Reset() {
	d.Lines = []adminapi.ShopProduct{}
	d.Quantities = map[string]int{}
	d.Recipient = nil
}

// Clone returns a deep copy safe to hand to callers.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := *d
	out.Lines = make([]adminapi.ShopProduct, len(d.Lines))
	copy(out.Lines, d.Lines)
	out.Quantities = make(map[string]int, len(d.Quantities))
	for k, v := range d.Quantities {
		out.Quantities[k] = v
	}
	if d.Recipient != nil {
		r := *d.Recipient
		out.Recipient = &r
	}
	return &out
}
