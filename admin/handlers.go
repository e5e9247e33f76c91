// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/repmine/repmine/log"
	"github.com/repmine/repmine/mining/cycle"
	"github.com/repmine/repmine/rep"
)

type logLevelRequest struct {
	Level string `json:"level"`
}

type logLevelResponse struct {
	CurrentLevel string `json:"currentLevel"`
}

type errorResponse struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func writeError(w http.ResponseWriter, errCode int, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errCode)
	json.NewEncoder(w).Encode(errorResponse{
		ErrorCode:    errCode,
		ErrorMessage: errMsg,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func parseLevel(s string) (slog.Level, bool) {
	switch s {
	case "trace":
		return log.LevelTrace, true
	case "debug":
		return log.LevelDebug, true
	case "info":
		return log.LevelInfo, true
	case "warn":
		return log.LevelWarn, true
	case "error":
		return log.LevelError, true
	case "crit":
		return log.LevelCrit, true
	}
	return 0, false
}

func logLevelHandler(logLevel *slog.LevelVar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			var req logLevelRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			level, ok := parseLevel(req.Level)
			if !ok {
				writeError(w, http.StatusBadRequest, "Invalid verbosity level")
				return
			}
			logLevel.Set(level)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, logLevelResponse{CurrentLevel: logLevel.Level().String()})
	}
}

// StatusReader is the read side of the mining network.
type StatusReader interface {
	GetCurrentMiningCycle() (uint64, error)
	GetCycle(id uint64) (*cycle.Cycle, cycle.Status, error)
	GetReputationRootHash() (rep.Bytes32, uint64, error)
	GetReputationUpdateLogLength() (uint64, error)
}

type healthResponse struct {
	Healthy     bool        `json:"healthy"`
	Cycle       uint64      `json:"cycle"`
	Status      string      `json:"status"`
	WindowEnd   uint64      `json:"windowEnd"`
	Submissions uint64      `json:"submissions"`
	Survivors   uint64      `json:"survivors"`
	Stalled     bool        `json:"stalled"`
	Root        rep.Bytes32 `json:"root"`
	RootNodes   uint64      `json:"rootNodes"`
	LogLength   uint64      `json:"logLength"`
}

func healthHandler(status StatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp healthResponse
		id, err := status.GetCurrentMiningCycle()
		if err == nil {
			var c *cycle.Cycle
			var st cycle.Status
			if c, st, err = status.GetCycle(id); err == nil && c != nil {
				resp.Cycle = c.ID
				resp.Status = st.String()
				resp.WindowEnd = c.WindowEnd
				resp.Submissions = c.NSubmissions
				resp.Survivors = c.Survivors()
				resp.Stalled = c.Stalled
			}
		}
		if err == nil {
			resp.Root, resp.RootNodes, err = status.GetReputationRootHash()
		}
		if err == nil {
			resp.LogLength, err = status.GetReputationUpdateLogLength()
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Healthy = !resp.Stalled
		code := http.StatusOK
		if !resp.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
