package export

import (
	"context"
	"fmt"

	"brokerportal/api/internal/store"
)

// DataStore is the account lookup the exporter needs.
type DataStore interface {
	GetAccount(ctx context.Context, id string) (store.CustomerAccount, error)
}

type Service struct {
	store DataStore
}

func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an account activity report in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		html, err := renderReportHTML(account)
		if err != nil {
			return nil, err
		}
		return exportPDF(html, account.Name+" activity")
	case FormatCSV:
		return exportCSV(account)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}
}
