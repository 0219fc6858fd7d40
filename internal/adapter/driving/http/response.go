package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/avalette/credgate/internal/application"
	"github.com/avalette/credgate/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CredentialResponse is the JSON representation of a stored credential
// record. Secrets are never serialized; only the id and match expression are
// ever exposed.
type CredentialResponse struct {
	ID              int    `json:"id"`
	MatchExpression string `json:"matchExpression"`
}

// CredentialDetailResponse is the single-record view, enriched with the
// targets the record's expression currently matches.
type CredentialDetailResponse struct {
	ID              int              `json:"id"`
	MatchExpression string           `json:"matchExpression"`
	Targets         []TargetResponse `json:"targets"`
}

// AddCredentialRequest is the JSON body for the add credential endpoint.
type AddCredentialRequest struct {
	MatchExpression string `json:"matchExpression"`
	Username        string `json:"username"`
	Password        string `json:"password"`
}

// AddCredentialResponse is the JSON body returned by the add credential endpoint.
type AddCredentialResponse struct {
	ID int `json:"id"`
}

// RemovedCredentialResponse is the JSON body returned by remove-by-expression.
type RemovedCredentialResponse struct {
	ID int `json:"id"`
}

// TargetResponse is the JSON representation of a discovered target.
type TargetResponse struct {
	ConnectURL  string            `json:"connectUrl"`
	Alias       string            `json:"alias,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`

	// HasCredentials is populated only on the target listing endpoint.
	HasCredentials *bool `json:"hasCredentials,omitempty"`
}

// ProbeResponse is the JSON body returned by the target probe endpoint.
type ProbeResponse struct {
	ConnectURL      string `json:"connectUrl"`
	Reachable       bool   `json:"reachable"`
	UsedCredentials string `json:"usedCredentials"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toTargetResponse converts a domain Target to its JSON representation.
func toTargetResponse(t model.Target) TargetResponse {
	return TargetResponse{
		ConnectURL:  t.ConnectURL,
		Alias:       t.Alias,
		Labels:      t.Labels,
		Annotations: t.Annotations,
	}
}

// toOverviewResponse converts a resolver target overview to its JSON
// representation, including the credential-coverage flag.
func toOverviewResponse(o application.TargetOverview) TargetResponse {
	resp := toTargetResponse(o.Target)
	has := o.HasCredentials
	resp.HasCredentials = &has
	return resp
}
