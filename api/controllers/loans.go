package controllers

import (
	"net/http"

	"github.com/bookhaven/bookledger-backend/api/middleware"
	"github.com/bookhaven/bookledger-backend/api/responses"
	"github.com/bookhaven/bookledger-backend/api/validators"
	"github.com/bookhaven/bookledger-backend/internal/lending"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
	"github.com/bookhaven/bookledger-backend/pkg/logger"
)

// LoanBorrow snapshots a catalog entry into the caller's loan slot.
func LoanBorrow(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		bookID, err := validators.BookIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.BorrowBook(r.Context(), middleware.HolderAddressFromContext(r.Context()), bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, lending.FromRecord(record))
	}
}

// LoanReturn clears the caller's loan slot.
func LoanReturn(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		bookID, err := validators.BookIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ReturnBook(r.Context(), middleware.HolderAddressFromContext(r.Context()), bookID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"returned": bookID})
	}
}

// LoanMine reads the caller's active loan.
func LoanMine(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		record, err := svc.GetLoan(r.Context(), middleware.HolderAddressFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lending.FromRecord(record))
	}
}
