package httppresentation

import (
	"encoding/json"
	"net/http"

	"github.com/lumimart/checkout/internal/pkg/errcode"
)

type errorResponse struct {
	Code  errcode.Code `json:"code"`
	Error string       `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError resolves the chain to its stable code and the code to an HTTP
// status. Clients branch on the code; the message is for humans.
func writeError(w http.ResponseWriter, err error) {
	code := errcode.FromError(err)
	writeStatus(w, httpStatus(code), code, err.Error())
}

func writeStatus(w http.ResponseWriter, status int, code errcode.Code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

func httpStatus(code errcode.Code) int {
	switch code {
	case errcode.CodeValidation:
		return http.StatusBadRequest
	case errcode.CodeNotFound:
		return http.StatusNotFound
	case errcode.CodeInsufficientStock,
		errcode.CodeIllegalTransition,
		errcode.CodeDuplicateIntent:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
