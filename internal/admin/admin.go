// Package admin exposes the server's administrative surface over a
// local HTTP JSON API: inspecting and mutating DHCP options, server
// parameters, and the lease table.
package admin

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/veesix-networks/osdhcpd/internal/server"
	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
)

type API struct {
	server *server.Server
}

func NewAPI(srv *server.Server) *API {
	return &API{server: srv}
}

// OptionPayload is the wire form of one DHCP option: its code and the
// raw value hex-encoded.
type OptionPayload struct {
	Code  uint8  `json:"code"`
	Value string `json:"value"`
}

func optionPayload(opt dhcp.Option) OptionPayload {
	return OptionPayload{Code: uint8(opt.Code), Value: hex.EncodeToString(opt.Value)}
}

// Routes constructs the chi router containing all admin endpoints.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]bool{"serving": a.server.IsServing()})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/leases", a.handleLeases)
		r.Get("/stats", a.handleStats)
		r.Get("/options", a.handleListOptions)
		r.Get("/options/{code}", a.handleGetOption)
		r.Put("/options", a.handleSetOption)
		r.Get("/parameters", a.handleGetParameters)
		r.Put("/parameters/lease-times", a.handleSetLeaseTimes)
		r.Post("/sweep", a.handleSweep)
	})

	return r
}

func (a *API) handleLeases(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, a.server.Leases())
}

func (a *API) handleStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, a.server.Stats())
}

func (a *API) handleListOptions(w http.ResponseWriter, _ *http.Request) {
	opts := a.server.ListOptions()
	payloads := make([]OptionPayload, 0, len(opts))
	for _, opt := range opts {
		payloads = append(payloads, optionPayload(opt))
	}
	respondJSON(w, http.StatusOK, payloads)
}

func (a *API) handleGetOption(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.ParseUint(chi.URLParam(r, "code"), 10, 8)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("bad option code: %w", err))
		return
	}
	opt, err := a.server.GetOption(dhcp.OptionCode(code))
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	respondJSON(w, http.StatusOK, optionPayload(opt))
}

func (a *API) handleSetOption(w http.ResponseWriter, r *http.Request) {
	var payload OptionPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	value, err := hex.DecodeString(payload.Value)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("bad option value: %w", err))
		return
	}
	opt := dhcp.Option{Code: dhcp.OptionCode(payload.Code), Value: value}
	if err := a.server.SetOption(opt); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusOK, optionPayload(opt))
}

func (a *API) handleGetParameters(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, a.server.GetParameters())
}

func (a *API) handleSetLeaseTimes(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Default uint32 `json:"default"`
		Max     uint32 `json:"max"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.server.SetLeaseTimes(payload.Default, payload.Max); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusOK, a.server.GetParameters())
}

func (a *API) handleSweep(w http.ResponseWriter, _ *http.Request) {
	reclaimed := a.server.ReleaseExpiredLeases()
	respondJSON(w, http.StatusOK, map[string]int{"reclaimed": reclaimed})
}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}
