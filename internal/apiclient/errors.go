package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"finsync/internal/domain"
)

// HTTPError representa una respuesta no 2xx de la API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Is clasifica el error dentro de la taxonomía de domain.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case domain.ErrNetwork:
		return true
	case domain.ErrSessionExpired:
		return e.StatusCode == http.StatusUnauthorized
	case domain.ErrValidation:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}

// IsStatus indica si err (o un error envuelto) es un HTTPError con el código dado.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}
