package api

import (
	"encoding/json"
	"net/http"
)

// envelope is the standard response shape.
type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// ok writes a success envelope.
func ok(w http.ResponseWriter, data any) {
	if data == nil {
		data = map[string]any{}
	}
	writeJSON(w, http.StatusOK, envelope{Code: 0, Msg: "ok", Data: data})
}

// fail writes an application error envelope. The platform reports
// application errors with HTTP 200 and a non-zero code.
func fail(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, envelope{Code: 1, Msg: msg, Data: map[string]any{}})
}

// unauthorized writes an HTTP 401 with a detail message.
func unauthorized(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": detail})
}
