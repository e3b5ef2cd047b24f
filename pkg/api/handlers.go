package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"shopmart/pkg/checkout"
	"shopmart/pkg/idempotency"
	"shopmart/pkg/item"
	"shopmart/pkg/otel"
)

const (
	msgNotEnoughStock = "Not enough stock"
	msgMalformedCart  = "malformed cart"
	msgItemNotFound   = "ItemID could not be found"
	msgBodyTooLarge   = "request body too large"
)

// maxCartBytes caps the PUT /items body.
const maxCartBytes = 1 << 20

// healthHandler reports liveness.
// @Summary Health check
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listItemsHandler lists the whole catalog.
// @Summary List items
// @Produce json
// @Success 200 {array} item.Item
// @Failure 500 {object} errorResponse
// @Router /items [get]
func (s *Server) listItemsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listItemsHandler")
	defer span.End()

	items, err := s.items.List(ctx)
	if err != nil {
		s.log.Error(ctx, "list items", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type itemPage struct {
	ItemName    string
	Description string
	Stock       int
	Price       float64
	ImageURL    string
}

// getItemHandler returns the signed image URL of an item as JSON, or the
// item page when HTML is preferred.
// @Summary Get item image URL or page
// @Produce json
// @Produce html
// @Param id path string true "Item ID"
// @Success 200 {string} string "signed image URL"
// @Failure 404 {object} errorResponse
// @Failure 406 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /items/{id} [get]
func (s *Server) getItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getItemHandler")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("item.id", id))

	format := negotiate(r.Header.Get("Accept"), mimeJSON, mimeHTML)
	if format == "" {
		writeError(w, http.StatusNotAcceptable, "not acceptable")
		return
	}

	url, err := s.images.SignedURL(ctx, id, s.urlTTL)
	if err != nil {
		s.log.Error(ctx, "sign image url", "item_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if format == mimeJSON {
		writeJSON(w, http.StatusOK, url)
		return
	}

	it, err := s.items.Get(ctx, id)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgItemNotFound)
			return
		}
		s.log.Error(ctx, "get item", "item_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, itemPage{
		ItemName:    it.ItemName,
		Description: it.Description,
		Stock:       it.Stock,
		Price:       it.Price,
		ImageURL:    url,
	}); err != nil {
		s.log.Error(ctx, "render item page", "item_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "error from render")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// checkoutHandler settles a cart and returns the refreshed catalog.
// @Summary Checkout
// @Description Body maps item id to [quantity, unitPrice, displayName]. Stock is decremented for the whole cart or not at all.
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Replays the first successful response for this key"
// @Param cart body map[string][]interface{} true "Cart"
// @Success 200 {array} item.Item
// @Failure 400 {object} errorResponse
// @Failure 413 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /items [put]
func (s *Server) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "checkoutHandler")
	defer span.End()

	key := idempotency.Key(r)
	if key != "" && s.idem != nil {
		stored, ok, err := s.idem.Lookup(ctx, key)
		if err != nil {
			s.log.Warn(ctx, "idempotency lookup", "error", err)
		} else if ok {
			w.Header().Set(idempotency.ReplayHeader, "true")
			w.Header().Set("Content-Type", stored.ContentType)
			w.WriteHeader(stored.Status)
			_, _ = w.Write(stored.Body)
			return
		}
	}

	cart, err := checkout.DecodeCart(http.MaxBytesReader(w, r.Body, maxCartBytes))
	if err != nil {
		if s.metrics != nil {
			s.metrics.SettlementResult(checkout.ResultMalformed)
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgMalformedCart)
		return
	}

	settled, err := s.engine.Settle(ctx, cart)
	switch {
	case errors.Is(err, checkout.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, msgNotEnoughStock)
		return
	case errors.Is(err, checkout.ErrMalformedCart):
		writeError(w, http.StatusBadRequest, msgMalformedCart)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	body, err := json.Marshal(settled.Items)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	body = append(body, '\n')

	if key != "" && s.idem != nil {
		resp := idempotency.Response{Status: http.StatusOK, ContentType: "application/json", Body: body}
		if err := s.idem.Save(ctx, key, resp); err != nil {
			s.log.Warn(ctx, "idempotency save", "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
