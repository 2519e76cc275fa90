package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/retools/internal/console"
	"github.com/muurk/retools/internal/logging"
	"github.com/muurk/retools/internal/retools"
)

const surface = "http"

// Handler serves the control API for one engine
type Handler struct {
	engine   console.Engine
	keys     console.KeyStore
	gatherer prometheus.Gatherer
}

// NewHandler creates a handler. keys and gatherer may be nil; the key save
// and metrics endpoints then answer 501 Not Implemented.
func NewHandler(engine console.Engine, keys console.KeyStore, gatherer prometheus.Gatherer) *Handler {
	return &Handler{engine: engine, keys: keys, gatherer: gatherer}
}

// Router returns the routes served by h
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/start", h.command("start", h.engine.Start)).Methods(http.MethodPost)
	v1.HandleFunc("/stop", h.command("stop", h.engine.Stop)).Methods(http.MethodPost)
	v1.HandleFunc("/clear", h.command("clear", h.engine.Clear)).Methods(http.MethodPost)
	v1.HandleFunc("/records", h.listRecords).Methods(http.MethodGet)
	v1.HandleFunc("/keys", h.listKeys).Methods(http.MethodGet)
	v1.HandleFunc("/keys/save", h.saveKeys).Methods(http.MethodPost)
	v1.HandleFunc("/keys/{id}", h.setKey).Methods(http.MethodPut)
	v1.HandleFunc("/keys/{id}", h.clearKey).Methods(http.MethodDelete)

	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	} else {
		r.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotImplemented, errors.New("metrics disabled"))
		})
	}
	return r
}

// command wraps an engine state change
func (h *Handler) command(name string, run func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := run()
		logging.LogCommand(surface, name, err)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Command: name})
	}
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	report, err := h.engine.List(filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewRecordsResponse(report))
}

func (h *Handler) listKeys(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.Keys()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := KeysResponse{Keys: make([]KeyJSON, 0, len(entries))}
	for _, e := range entries {
		resp.Keys = append(resp.Keys, NewKeyJSON(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) setKey(w http.ResponseWriter, r *http.Request) {
	id := console.ParseHex(mux.Vars(r)["id"])

	var req SetKeyRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("failed to decode request: "+err.Error()))
		return
	}
	if len(req.Bytes) == 0 || len(req.Bytes) > console.MaxPositions {
		writeError(w, http.StatusBadRequest, errors.New("bytes must list 1 to 8 positions"))
		return
	}

	mask, err := h.engine.SetKey(id, req.Bytes)
	logging.LogCommand(surface, "key set", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewKeyJSON(retools.MaskEntry{ID: id, Mask: mask}))
}

func (h *Handler) clearKey(w http.ResponseWriter, r *http.Request) {
	id := console.ParseHex(mux.Vars(r)["id"])
	err := h.engine.ClearKey(id)
	logging.LogCommand(surface, "key clear", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Command: "key clear"})
}

func (h *Handler) saveKeys(w http.ResponseWriter, r *http.Request) {
	if h.keys == nil {
		writeError(w, http.StatusNotImplemented, console.ErrNoKeyStore)
		return
	}
	entries, err := h.engine.Keys()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	err = h.keys.SaveKeys(entries)
	logging.LogCommand(surface, "key save", err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Command: "key save"})
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	typ, ok := retools.ErrorTypeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch typ {
	case retools.ErrTypeLifecycle:
		return http.StatusConflict
	case retools.ErrTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to write response", zap.Error(err))
	}
}
