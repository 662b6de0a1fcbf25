package drafts

import (
	"errors"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/orderdraft/pkg/adminapi"
)

var phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)

var recipientValidator = newRecipientValidator()

func newRecipientValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("intl_phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	return v
}

// ValidPhone reports whether phone is 10-15 digits with an optional leading plus.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// checkSubmittable enforces the local preconditions that come before the eligibility lookup.
func checkSubmittable(d *Draft) error {
	if d.Recipient == nil {
		return ErrNoRecipient
	}
	if len(d.Lines) == 0 {
		return ErrEmptyCart
	}
	return nil
}

// checkRecipient validates the recipient fields sent to the backend.
func checkRecipient(r *Recipient) error {
	if r == nil {
		return ErrNoRecipient
	}
	if err := recipientValidator.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "intl_phone" {
					return ErrInvalidPhone
				}
			}
		}
		return ErrNoRecipient
	}
	return nil
}

// BuildOrderRequest packages the draft into the backend's creation body.
func BuildOrderRequest(d *Draft, orderTime *time.Time) adminapi.CreateOrderRequest {
	items := make([]adminapi.OrderItem, 0, len(d.Lines))
	for _, line := range d.Lines {
		items = append(items, adminapi.OrderItem{
			ShopProductID: line.ID,
			Quantity:      d.Quantity(line.ID),
		})
	}
	req := adminapi.CreateOrderRequest{Items: items, OrderTime: orderTime}
	if d.Recipient != nil {
		req.Email = d.Recipient.Email
		req.Phone = d.Recipient.Phone
		req.Address = d.Recipient.Address
		req.UserID = d.Recipient.UserID
	}
	return req
}
