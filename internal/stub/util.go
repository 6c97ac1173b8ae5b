package stub

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/flowpilot/flowpilot/pkg/api/http/common"
)

// unmarshalJson reads the body of a request and attempts to unmarshal it into the given object.
// This function writes an error to the writer if an error occurs, and returns the error.
func unmarshalJson(w http.ResponseWriter, r *http.Request, obj interface{}) error {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "no body")
		return fmt.Errorf("no body")
	}
	d := json.NewDecoder(r.Body)

	err := d.Decode(obj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return fmt.Errorf("bad json: %v", err)
	}
	return nil
}

func writeJson(w http.ResponseWriter, status int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Println("[Stub] encode response:", err)
	}
}

// writeError replies with the runner's error envelope:
// {"detail": {"error": {"code": ..., "message": ...}}}
func writeError(w http.ResponseWriter, status int, code, message string) {
	detail := &common.ErrorDetail{}
	detail.Detail.Error.Code = code
	detail.Detail.Error.Message = message
	writeJson(w, status, detail)
}
