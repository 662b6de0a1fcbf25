package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/orderdraft/pkg/errors"
	"github.com/angelmondragon/orderdraft/pkg/pagination"
)

const maxSearchLen = 100

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParsePagination reads page and take, applying the listing defaults.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	page, err := ParseQueryInt(r, "page", 1, 1, 1<<20)
	if err != nil {
		return pagination.Params{}, err
	}
	take, err := ParseQueryInt(r, "take", pagination.DefaultTake, 1, pagination.MaxTake)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Take: take}, nil
}

// ParseSearch returns the trimmed search term, capped in length.
func ParseSearch(r *http.Request) string {
	return SanitizeString(r.URL.Query().Get("search"), maxSearchLen)
}

// PathParam returns a required, trimmed chi URL parameter.
func PathParam(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "path parameter is required").WithDetails(map[string]any{"field": name})
	}
	return value, nil
}

// PathInt parses a non-negative integer chi URL parameter.
func PathInt(r *http.Request, name string) (int, error) {
	raw, err := PathParam(r, name)
	if err != nil {
		return 0, err
	}
	value, convErr := strconv.Atoi(raw)
	if convErr != nil || value < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a non-negative integer").WithDetails(map[string]any{"field": name})
	}
	return value, nil
}
