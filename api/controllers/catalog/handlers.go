package catalog

import (
	"context"
	"net/http"

	"github.com/angelmondragon/orderdraft/api/responses"
	"github.com/angelmondragon/orderdraft/api/validators"
	"github.com/angelmondragon/orderdraft/pkg/adminapi"
	pkgerrors "github.com/angelmondragon/orderdraft/pkg/errors"
	"github.com/angelmondragon/orderdraft/pkg/logger"
	"github.com/angelmondragon/orderdraft/pkg/pagination"
)

// ProductLister reads a shop's catalog from the backend.
type ProductLister interface {
	ListShopProducts(ctx context.Context, shopID string, params pagination.Params) (*adminapi.ProductPage, error)
}

// RecipientLister reads the users an order can be created for.
type RecipientLister interface {
	ListEligibleUsers(ctx context.Context, search string) ([]adminapi.User, error)
}

// AddressUpdater fixes a user's address on the backend.
type AddressUpdater interface {
	UpdateUserAddress(ctx context.Context, userID, address string) (*adminapi.User, error)
}

// ShopProducts proxies one page of the shop catalog with display fallbacks applied.
func ShopProducts(lister ProductLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lister == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog client unavailable"))
			return
		}

		shopID, err := validators.PathParam(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := lister.ListShopProducts(r.Context(), shopID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductPage(page))
	}
}

// Recipients lists eligible users, each with its avatar colors.
func Recipients(lister RecipientLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lister == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recipient client unavailable"))
			return
		}

		users, err := lister.ListEligibleUsers(r.Context(), validators.ParseSearch(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]recipientView, 0, len(users))
		for _, u := range users {
			out = append(out, newRecipient(u))
		}
		responses.WriteSuccess(w, out)
	}
}

// UpdateUserAddress sets the address of a user so they can be selected as recipient.
func UpdateUserAddress(updater AddressUpdater, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if updater == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user client unavailable"))
			return
		}

		userID, err := validators.PathParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := updater.UpdateUserAddress(r.Context(), userID, payload.Address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if user == nil {
			user = &adminapi.User{ID: userID, Address: payload.Address}
		}

		responses.WriteSuccessStatus(w, http.StatusOK, "address updated", newRecipient(*user))
	}
}
