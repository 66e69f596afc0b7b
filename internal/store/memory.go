package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps all portal state in process memory. It is the
// default backend when no DATABASE_URL is configured, and the backend
// the tests run against. Every read hands out deep copies so callers
// never alias stored state, and every write happens under one lock so
// partial updates are never observable.
type MemoryStore struct {
	mu       sync.RWMutex
	configs  map[Environment]PortalConfig
	sets     map[Environment][]QuestionSet
	accounts []CustomerAccount
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[Environment]PortalConfig),
		sets: map[Environment][]QuestionSet{
			EnvStaging:    {},
			EnvProduction: {},
		},
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) GetPortalConfig(ctx context.Context, env Environment) (PortalConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[env]
	if !ok {
		return PortalConfig{}, ErrNotFound
	}
	return cfg.Clone(), nil
}

func (m *MemoryStore) ReplacePortalConfig(ctx context.Context, env Environment, cfg PortalConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[env] = cfg.Clone()
	return nil
}

func (m *MemoryStore) ListQuestionSets(ctx context.Context, env Environment) ([]QuestionSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sets := m.sets[env]
	out := make([]QuestionSet, len(sets))
	for i, s := range sets {
		out[i] = s.Clone()
	}
	return out, nil
}

func (m *MemoryStore) GetQuestionSet(ctx context.Context, env Environment, id string) (QuestionSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sets[env] {
		if s.ID == id {
			return s.Clone(), nil
		}
	}
	return QuestionSet{}, ErrNotFound
}

// InsertQuestionSet prepends so newly created sets list first.
func (m *MemoryStore) InsertQuestionSet(ctx context.Context, env Environment, set QuestionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[env] = append([]QuestionSet{set.Clone()}, m.sets[env]...)
	return nil
}

func (m *MemoryStore) ReplaceQuestionSet(ctx context.Context, env Environment, set QuestionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sets[env] {
		if s.ID == set.ID {
			m.sets[env][i] = set.Clone()
			return nil
		}
	}
	return ErrNotFound
}

// UpsertQuestionSet replaces an existing set in place, keeping its
// list position, or prepends when the id is new to the environment.
func (m *MemoryStore) UpsertQuestionSet(ctx context.Context, env Environment, set QuestionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sets[env] {
		if s.ID == set.ID {
			m.sets[env][i] = set.Clone()
			return nil
		}
	}
	m.sets[env] = append([]QuestionSet{set.Clone()}, m.sets[env]...)
	return nil
}

func (m *MemoryStore) ListAccounts(ctx context.Context) ([]CustomerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CustomerAccount, len(m.accounts))
	for i, a := range m.accounts {
		out[i] = a.Clone()
	}
	return out, nil
}

func (m *MemoryStore) SearchAccounts(ctx context.Context, query string) ([]CustomerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(query))
	var out []CustomerAccount
	for _, a := range m.accounts {
		if needle == "" || accountMatches(a, needle) {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func accountMatches(a CustomerAccount, needle string) bool {
	if strings.Contains(strings.ToLower(a.Name), needle) ||
		strings.Contains(strings.ToLower(a.Email), needle) {
		return true
	}
	for _, p := range a.Policies {
		if strings.Contains(strings.ToLower(p.PolicyNumber), needle) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) GetAccount(ctx context.Context, id string) (CustomerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.ID == id {
			return a.Clone(), nil
		}
	}
	return CustomerAccount{}, ErrNotFound
}

func (m *MemoryStore) InsertAccount(ctx context.Context, account CustomerAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = append(m.accounts, account.Clone())
	return nil
}

// DeleteAccountDocument removes the document and prepends the audit
// entry in one step, under one lock, so no reader ever sees the
// document gone without its audit trail or the other way round.
func (m *MemoryStore) DeleteAccountDocument(ctx context.Context, accountID, documentID, reason string) (Document, AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ai := range m.accounts {
		if m.accounts[ai].ID != accountID {
			continue
		}
		account := &m.accounts[ai]
		for di, doc := range account.Documents {
			if doc.ID != documentID {
				continue
			}
			entry := AuditEntry{
				At:     time.Now().UTC(),
				Event:  "Document deleted",
				Detail: doc.Name + " • Reason: " + reason,
			}
			account.Documents = append(account.Documents[:di], account.Documents[di+1:]...)
			account.Audit = append([]AuditEntry{entry}, account.Audit...)
			return doc, entry, nil
		}
		return Document{}, AuditEntry{}, ErrNotFound
	}
	return Document{}, AuditEntry{}, ErrNotFound
}
