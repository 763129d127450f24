package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/ledger"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/tools"
)

// errorBody is the JSON error envelope for all non-2xx responses.
type errorBody struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErrorMessage(w http.ResponseWriter, status int, category, message string) {
	writeJSON(w, status, errorBody{Error: message, Category: category})
}

// writeError maps a tool call error to an HTTP status. Business
// failures keep their classification in the body so clients can
// branch without parsing the message.
func writeError(w http.ResponseWriter, err error) {
	var unknown *tools.UnknownToolError
	if errors.As(err, &unknown) {
		writeErrorMessage(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	kind := ledger.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case ledger.KindValidation:
		status = http.StatusBadRequest
	case ledger.KindNotFound:
		status = http.StatusNotFound
	case ledger.KindDuplicate, ledger.KindInsufficientFunds:
		status = http.StatusConflict
	}

	message := err.Error()
	if kind == ledger.KindInternal {
		// Internal details stay in the logs.
		message = "internal error"
	}
	writeErrorMessage(w, status, string(kind), message)
}
