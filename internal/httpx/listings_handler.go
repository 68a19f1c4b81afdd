package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/service"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

type ListingsHandler struct {
	Service *service.Service
	Auth    TokenVerifier
}

func (h *ListingsHandler) Register(r *chi.Mux) {
	r.Get("/listings", h.listListings)
	r.Get("/listings/{id}", h.getListing)
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Auth))
		r.Post("/listings", h.createListing)
		r.Patch("/listings/{id}", h.editListing)
		r.Delete("/listings/{id}", h.deleteListing)
	})
}

func (h *ListingsHandler) listListings(w http.ResponseWriter, r *http.Request) {
	q, err := listingQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	ls, err := h.Service.ListListings(ctx, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ls)
}

func listingQuery(r *http.Request) (service.ListingQuery, error) {
	var q service.ListingQuery
	values := r.URL.Query()
	if v := values.Get("seller_id"); v != "" {
		q.SellerID = &v
	}
	if v := values.Get("sold"); v != "" {
		sold, err := strconv.ParseBool(v)
		if err != nil {
			return q, market.NewValidationError("sold", "sold must be true or false", market.ErrValidation)
		}
		q.Sold = &sold
	}
	if v := values.Get("category"); v != "" {
		q.Category = &v
	}
	return q, nil
}

func (h *ListingsHandler) getListing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	l, err := h.Service.GetListing(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *ListingsHandler) createListing(w http.ResponseWriter, r *http.Request) {
	var req service.CreateListingInput
	if err := decode(r, &req, market.ErrInvalidPayload); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	l, err := h.Service.CreateListing(ctx, Caller(ctx), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *ListingsHandler) editListing(w http.ResponseWriter, r *http.Request) {
	var req service.EditListingInput
	if err := decode(r, &req, market.ErrInvalidPayload); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	l, err := h.Service.EditListing(ctx, Caller(ctx), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *ListingsHandler) deleteListing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	if err := h.Service.DeleteListing(ctx, Caller(ctx), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into v. A malformed body is reported as a
// ValidationError of the given kind. An empty body decodes as {}.
func decode(r *http.Request, v any, kind error) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	field := ""
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field = typeErr.Field
	}
	return market.NewValidationError(field, "invalid json: "+err.Error(), kind)
}
