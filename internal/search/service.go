package search

import (
	"context"
	"log"

	"brokerportal/api/internal/store"
)

// AccountFinder is the store-backed fallback path.
type AccountFinder interface {
	SearchAccounts(ctx context.Context, query string) ([]store.CustomerAccount, error)
	GetAccount(ctx context.Context, id string) (store.CustomerAccount, error)
	ListAccounts(ctx context.Context) ([]store.CustomerAccount, error)
}

// Service is the facade that tries Meilisearch first and falls back to
// scanning the account store. meili may be nil when Meilisearch is not
// configured.
type Service struct {
	meili *Meili
	store AccountFinder
}

func NewService(meili *Meili, finder AccountFinder) *Service {
	return &Service{meili: meili, store: finder}
}

func (s *Service) SearchAccounts(ctx context.Context, query string) ([]store.CustomerAccount, error) {
	if s.meili != nil && s.meili.Healthy() && query != "" {
		ids, err := s.meili.Search(query, 50)
		if err == nil {
			accounts := make([]store.CustomerAccount, 0, len(ids))
			for _, id := range ids {
				account, err := s.store.GetAccount(ctx, id)
				if err != nil {
					continue
				}
				accounts = append(accounts, account)
			}
			return accounts, nil
		}
		log.Printf("search: meilisearch error, falling back to store scan: %v", err)
	}
	return s.store.SearchAccounts(ctx, query)
}

// ReindexAll pushes every account into Meilisearch. Called during
// bootstrap when Meilisearch is reachable.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	records := make([]AccountRecord, 0, len(accounts))
	for _, a := range accounts {
		records = append(records, RecordFromAccount(a))
	}
	if err := s.meili.IndexAccounts(records); err != nil {
		log.Printf("search: reindex accounts: %v", err)
	}
}

// IndexAccount updates one account in the index, fire and forget.
func (s *Service) IndexAccount(a store.CustomerAccount) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	record := RecordFromAccount(a)
	go func() {
		if err := s.meili.IndexAccounts([]AccountRecord{record}); err != nil {
			log.Printf("search: index account %s: %v", record.ID, err)
		}
	}()
}
