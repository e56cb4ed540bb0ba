package controllers

import (
	"net/http"

	"github.com/bookhaven/bookledger-backend/api/middleware"
	"github.com/bookhaven/bookledger-backend/api/responses"
	"github.com/bookhaven/bookledger-backend/api/validators"
	"github.com/bookhaven/bookledger-backend/internal/catalog"
	"github.com/bookhaven/bookledger-backend/internal/purchases"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
	"github.com/bookhaven/bookledger-backend/pkg/logger"
)

// CreateBookRequest carries the catalog entry fields. Price and stock default
// to zero when omitted.
type CreateBookRequest struct {
	Title  string `json:"title" validate:"required"`
	Author string `json:"author" validate:"required"`
	Price  uint64 `json:"price"`
	Stock  uint64 `json:"stock"`
}

// CatalogList returns every id ever issued; removed ids read as zero entries.
func CatalogList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		books, err := svc.ListBooks(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, books)
	}
}

func CatalogGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		bookID, err := validators.BookIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.GetBook(r.Context(), bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

// CatalogSales reads the net active purchase count for a book.
func CatalogSales(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		bookID, err := validators.BookIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.GetSales(r.Context(), bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"book_id":    bookID,
			"sold_count": count,
		})
	}
}

// CatalogCreate adds a catalog entry. The storekeeper guard runs in the
// service against the settings row.
func CatalogCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var body CreateBookRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.AddBook(r.Context(), catalog.AddBookInput{
			Title:        body.Title,
			Author:       body.Author,
			Price:        body.Price,
			Stock:        body.Stock,
			ActorAddress: middleware.HolderAddressFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, book)
	}
}

func CatalogDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		bookID, err := validators.BookIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveBook(r.Context(), catalog.RemoveBookInput{
			BookID:       bookID,
			ActorAddress: middleware.HolderAddressFromContext(r.Context()),
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"removed": bookID})
	}
}
