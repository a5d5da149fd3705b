package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
)

// maxBackupBytes bounds import payloads.
const maxBackupBytes = 32 << 20

// ExportBackup serializes the complete state into the portable backup
// document, url references denormalized back to inline lists.
func ExportBackup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		backup, err := d.Migrator.Export(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="tabbin-backup.json"`)
		_ = json.NewEncoder(w).Encode(backup)
	}
}

type importResponse struct {
	Mode string `json:"mode"`
}

// ImportBackup applies an uploaded backup. mode=merge (default) unions
// with live state, mode=replace overwrites it. A backup that fails
// validation is rejected before anything is written.
func ImportBackup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := domain.ImportMode(r.URL.Query().Get("mode"))
		switch mode {
		case "":
			mode = domain.ImportMerge
		case domain.ImportMerge, domain.ImportReplace:
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mode must be merge or replace"})
			return
		}

		data, err := io.ReadAll(io.LimitReader(r.Body, maxBackupBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read body"})
			return
		}

		if err := d.Migrator.Import(r.Context(), data, mode); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, importResponse{Mode: string(mode)})
	}
}
