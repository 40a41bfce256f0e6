package server

import (
	"encoding/json"
	"evroaming/internal"
	"evroaming/metrics/counters"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/julienschmidt/httprouter"
)

const (
	apiCounters = "/api/counters"
	apiPeers    = "/api/peers"
	apiLog      = "/api/log"

	defaultLogLimit = 100
)

// Api serves read-only administrative views next to the OICP routes.
type Api struct {
	logger   internal.LogHandler
	database internal.Database

	mu       sync.RWMutex
	counters map[string]*counters.Set
	peers    map[string]func() []string
}

func NewServerApi(logger internal.LogHandler) *Api {
	return &Api{
		logger:   logger,
		counters: make(map[string]*counters.Set),
		peers:    make(map[string]func() []string),
	}
}

func (a *Api) SetDatabase(database internal.Database) {
	a.database = database
}

// AddCounters publishes set under component, e.g. "hub" or "client".
func (a *Api) AddCounters(component string, set *counters.Set) {
	a.mu.Lock()
	a.counters[component] = set
	a.mu.Unlock()
}

// AddPeers publishes the keys returned by list under role.
func (a *Api) AddPeers(role string, list func() []string) {
	a.mu.Lock()
	a.peers[role] = list
	a.mu.Unlock()
}

func (a *Api) Register(router *httprouter.Router) {
	router.GET(apiCounters, a.handleCounters)
	router.GET(apiPeers, a.handlePeers)
	router.GET(apiLog, a.handleLog)
}

func (a *Api) handleCounters(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	a.mu.RLock()
	out := make(map[string]map[string]counters.Snapshot, len(a.counters))
	for component, set := range a.counters {
		out[component] = set.Snapshot()
	}
	a.mu.RUnlock()
	a.write(w, r, out)
}

func (a *Api) handlePeers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	a.mu.RLock()
	out := make(map[string][]string, len(a.peers))
	for role, list := range a.peers {
		keys := list()
		sort.Strings(keys)
		out[role] = keys
	}
	a.mu.RUnlock()
	a.write(w, r, out)
}

func (a *Api) handleLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if a.database == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	limit := int64(defaultLogLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		limit = n
	}
	data, err := a.database.ReadLog(limit)
	if err != nil {
		if a.logger != nil {
			a.logger.Error("read log error", err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	a.write(w, r, data)
}

func (a *Api) write(w http.ResponseWriter, r *http.Request, v any) {
	if a.logger != nil {
		a.logger.Debug(fmt.Sprintf("api call %s from remote %s", r.URL.Path, r.RemoteAddr))
	}
	data, err := json.Marshal(v)
	if err != nil {
		if a.logger != nil {
			a.logger.Error("encoding api data failed", err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
