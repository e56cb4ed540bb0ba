package validators

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
)

// BookIDParam parses the bookId route parameter. Ids start at 1; zero is
// never issued.
func BookIDParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "bookId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid book id")
	}
	return id, nil
}
