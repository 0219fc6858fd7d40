package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/avalette/credgate/internal/application"
	"github.com/avalette/credgate/internal/domain/model"
	"github.com/avalette/credgate/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	creds    *application.CredentialService
	resolver *application.ResolverService
	prober   driven.TargetProber
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	creds *application.CredentialService,
	resolver *application.ResolverService,
	prober driven.TargetProber,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		creds:    creds,
		resolver: resolver,
		prober:   prober,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered. Every route
// except the health check sits behind the authentication gate; the whole mux
// is wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, gate *Gate, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.Handle("GET /api/v1/credentials", gate.Authenticated(h.ListCredentials))
	mux.Handle("POST /api/v1/credentials", gate.Authenticated(h.AddCredential))
	mux.Handle("DELETE /api/v1/credentials", gate.Authenticated(h.RemoveCredentialByExpression))
	mux.Handle("GET /api/v1/credentials/{id}", gate.Authenticated(h.GetCredential))
	mux.Handle("DELETE /api/v1/credentials/{id}", gate.Authenticated(h.DeleteCredential))
	mux.Handle("GET /api/v1/targets", gate.Authenticated(h.ListTargets))
	mux.Handle("POST /api/v1/targets/{targetId}/probe", gate.Authenticated(h.ProbeTarget))

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListCredentials returns every stored record's id and match expression,
// sorted by id. Secrets are never included.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) *Error {
	all, err := h.creds.GetAll(r.Context())
	if err != nil {
		return classify(err)
	}

	ids := make([]int, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	resp := make([]CredentialResponse, 0, len(ids))
	for _, id := range ids {
		resp = append(resp, CredentialResponse{ID: id, MatchExpression: all[id]})
	}

	writeJSON(w, http.StatusOK, resp)
	return nil
}

// AddCredential stores a new credential record and returns its id.
func (h *Handler) AddCredential(w http.ResponseWriter, r *http.Request) *Error {
	var req AddCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return NewError(http.StatusBadRequest, "invalid request body")
	}
	if req.MatchExpression == "" {
		return NewError(http.StatusBadRequest, "matchExpression is required")
	}

	cred := model.Credential{Username: req.Username, Password: req.Password}
	id, err := h.creds.Add(r.Context(), req.MatchExpression, cred)
	if errors.Is(err, driven.ErrInvalidExpression) {
		return &Error{Status: http.StatusBadRequest, Message: err.Error(), Cause: err}
	}
	if err != nil {
		return classify(err)
	}

	writeJSON(w, http.StatusCreated, AddCredentialResponse{ID: id})
	return nil
}

// GetCredential returns a single record's match expression together with the
// targets that expression currently matches.
func (h *Handler) GetCredential(w http.ResponseWriter, r *http.Request) *Error {
	id, herr := pathID(r)
	if herr != nil {
		return herr
	}

	matchExpression, err := h.creds.Get(r.Context(), id)
	if errors.Is(err, application.ErrRecordNotFound) {
		return NewError(http.StatusNotFound, "credential not found")
	}
	if err != nil {
		return classify(err)
	}

	matched, err := h.resolver.ResolveMatchingTargets(r.Context(), id)
	if err != nil {
		return classify(err)
	}

	targets := make([]TargetResponse, 0, len(matched))
	for _, t := range matched {
		targets = append(targets, toTargetResponse(t))
	}

	writeJSON(w, http.StatusOK, CredentialDetailResponse{
		ID:              id,
		MatchExpression: matchExpression,
		Targets:         targets,
	})
	return nil
}

// DeleteCredential removes a record by id.
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) *Error {
	id, herr := pathID(r)
	if herr != nil {
		return herr
	}

	err := h.creds.Delete(r.Context(), id)
	if errors.Is(err, application.ErrRecordNotFound) {
		return NewError(http.StatusNotFound, "credential not found")
	}
	if err != nil {
		return classify(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// RemoveCredentialByExpression deletes the first record whose match
// expression exactly equals the matchExpression query parameter.
func (h *Handler) RemoveCredentialByExpression(w http.ResponseWriter, r *http.Request) *Error {
	matchExpression := r.URL.Query().Get("matchExpression")
	if matchExpression == "" {
		return NewError(http.StatusBadRequest, "matchExpression query parameter is required")
	}

	id, err := h.creds.RemoveByExpression(r.Context(), matchExpression)
	if errors.Is(err, driven.ErrInvalidExpression) {
		return &Error{Status: http.StatusBadRequest, Message: err.Error(), Cause: err}
	}
	if errors.Is(err, application.ErrRecordNotFound) {
		return NewError(http.StatusNotFound, "no credential with that match expression")
	}
	if err != nil {
		return classify(err)
	}

	writeJSON(w, http.StatusOK, RemovedCredentialResponse{ID: id})
	return nil
}

// ListTargets returns every currently discoverable target with its
// credential-coverage flag.
func (h *Handler) ListTargets(w http.ResponseWriter, r *http.Request) *Error {
	overview, err := h.resolver.OverviewTargets(r.Context())
	if err != nil {
		return classify(err)
	}

	resp := make([]TargetResponse, 0, len(overview))
	for _, o := range overview {
		resp = append(resp, toOverviewResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
	return nil
}

// ProbeTarget attempts a connection-layer probe of a discovered target,
// authenticating with override credentials from the Proxy-Authorization
// header when present, else with whatever the resolver finds.
func (h *Handler) ProbeTarget(w http.ResponseWriter, r *http.Request) *Error {
	targetID := r.PathValue("targetId")

	desc, herr := ExtractOverrideCredentials(r, targetID)
	if herr != nil {
		return herr
	}

	target, err := h.resolver.FindTarget(r.Context(), targetID)
	if err != nil {
		return classify(err)
	}
	if target == nil {
		return NewError(http.StatusNotFound, "target not found")
	}

	cred := desc.Credential
	used := "override"
	if cred == nil {
		cred, err = h.resolver.ResolveForTarget(r.Context(), *target)
		if err != nil {
			return classify(err)
		}
		used = "stored"
		if cred == nil {
			used = "none"
		}
	}

	if err := h.prober.Probe(r.Context(), *target, cred); err != nil {
		return classify(err)
	}

	writeJSON(w, http.StatusOK, ProbeResponse{
		ConnectURL:      target.ConnectURL,
		Reachable:       true,
		UsedCredentials: used,
	})
	return nil
}

// Health reports service liveness. Deliberately outside the gate so container
// orchestrators can probe without credentials.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// pathID parses the {id} path segment as a record id.
func pathID(r *http.Request) (int, *Error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 {
		return 0, NewError(http.StatusBadRequest, "invalid credential id")
	}
	return id, nil
}
