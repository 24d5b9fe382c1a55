package httperror

import (
	"net/http"

	"notes-server/internal/domain"
	"notes-server/pkg/response"
)

// Status maps an error to its HTTP status code.
func Status(err error) int {
	e := domain.AsError(err)

	switch e.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthentication:
		return http.StatusUnauthorized
	case domain.KindUnauthenticated:
		if e.Reason == domain.ReasonUserNotFound {
			return http.StatusNotFound
		}
		return http.StatusUnauthorized
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Writer renders errors as response envelopes. Causes are only included when
// ExposeDetails is set, which is never the case in production.
type Writer struct {
	ExposeDetails bool
}

func NewWriter(exposeDetails bool) *Writer {
	return &Writer{ExposeDetails: exposeDetails}
}

func (wr *Writer) Write(w http.ResponseWriter, err error) {
	response.Error(w, Status(err), wr.Body(err))
}

func (wr *Writer) Body(err error) response.ErrorBody {
	e := domain.AsError(err)

	body := response.ErrorBody{
		Kind:    string(e.Kind),
		Message: e.Message,
		Reason:  e.Reason,
	}

	for _, f := range e.Fields {
		body.Fields = append(body.Fields, response.FieldError{Field: f.Field, Message: f.Message})
	}

	if wr.ExposeDetails && e.Err != nil {
		body.Detail = e.Err.Error()
	}

	return body
}
