package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sown0205/Anubis/internal/core/model"
)

// exportEnvelope is the JSON blob served by the export endpoint.
type exportEnvelope struct {
	ScanSession *model.ScanSession  `json:"scan_session,omitempty"`
	Results     []model.ScanResult  `json:"results,omitempty"`
	Sessions    []model.HistoryItem `json:"sessions,omitempty"`
	ExportedAt  time.Time           `json:"exported_at"`
}

// Export builds the downloadable JSON payload for one scan, or for the
// whole history when id is empty. It returns the payload and the
// attachment filename.
func Export(ctx context.Context, store Store, id string) ([]byte, string, error) {
	now := time.Now().UTC()
	envelope := exportEnvelope{ExportedAt: now}

	if id != "" {
		detail, err := store.Get(ctx, id)
		if err != nil {
			return nil, "", err
		}
		if detail == nil {
			return nil, "", fmt.Errorf("history: scan %s not found", id)
		}
		envelope.ScanSession = &detail.Session
		envelope.Results = detail.Results
	} else {
		items, err := store.List(ctx)
		if err != nil {
			return nil, "", err
		}
		envelope.Sessions = items
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("history: marshal export: %w", err)
	}

	filename := fmt.Sprintf("anubis_scan_export_%s.json", now.Format("20060102_150405"))
	return data, filename, nil
}
