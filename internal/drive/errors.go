package drive

import (
	"errors"
	"net/http"

	"github.com/pysugar/drive-nexus/internal/apperr"
	"google.golang.org/api/googleapi"
)

// translate maps a provider failure into the error taxonomy. Only the status
// code survives; the googleapi error, its body and headers are dropped.
func translate(op, message string, err error) error {
	if err == nil {
		return nil
	}

	var classified *apperr.Error
	if errors.As(err, &classified) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		kind := apperr.ErrProviderRequestFailed
		if gerr.Code == http.StatusNotFound {
			kind = apperr.ErrNotFound
		}
		return &apperr.Error{Kind: kind, Op: op, Message: message, ProviderStatus: gerr.Code}
	}

	return apperr.New(apperr.ErrProviderRequestFailed, op, message)
}
