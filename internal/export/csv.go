package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"brokerportal/api/internal/store"
)

// exportCSV writes the account's audit trail as CSV rows.
func exportCSV(account store.CustomerAccount) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"at", "event", "detail"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, entry := range account.Audit {
		row := []string{
			entry.At.Format(time.RFC3339),
			entry.Event,
			entry.Detail,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(account.Name+" activity") + ".csv",
		MimeType: "text/csv",
	}, nil
}
