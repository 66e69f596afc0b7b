package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"brokerportal/api/internal/auth"
	"brokerportal/api/internal/config"
	"brokerportal/api/internal/export"
	"brokerportal/api/internal/rbac"
	"brokerportal/api/internal/session"
	"brokerportal/api/internal/store"
	"brokerportal/api/internal/util"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	Role      string
	ExpiresAt time.Time
}

// UpdatePortalConfigInput carries branding fields verbatim and the
// list sections as structured text, matching how the editor submits
// them. The text fields must parse into their expected shapes before
// anything is written.
type UpdatePortalConfigInput struct {
	Branding    store.Branding `json:"branding"`
	NavLinks    string         `json:"navLinks"`
	FooterLinks string         `json:"footerLinks"`
	FAQs        string         `json:"faqs"`
	Recommended string         `json:"recommended"`
}

// QuestionPatch is a field-level edit for one question in a set. Nil
// pointers leave the field untouched.
type QuestionPatch struct {
	ID       string    `json:"id"`
	Title    *string   `json:"title"`
	Helper   *string   `json:"helper"`
	Logic    *string   `json:"logic"`
	Required *bool     `json:"required"`
	Kind     *string   `json:"kind"`
	Choices  *[]string `json:"choices"`
}

type UpdateQuestionSetInput struct {
	Name      string          `json:"name"`
	Journey   string          `json:"journey"`
	Questions []QuestionPatch `json:"questions"`
}

type DataStore interface {
	GetPortalConfig(context.Context, store.Environment) (store.PortalConfig, error)
	ReplacePortalConfig(context.Context, store.Environment, store.PortalConfig) error
	ListQuestionSets(context.Context, store.Environment) ([]store.QuestionSet, error)
	GetQuestionSet(context.Context, store.Environment, string) (store.QuestionSet, error)
	InsertQuestionSet(context.Context, store.Environment, store.QuestionSet) error
	ReplaceQuestionSet(context.Context, store.Environment, store.QuestionSet) error
	UpsertQuestionSet(context.Context, store.Environment, store.QuestionSet) error
	ListAccounts(context.Context) ([]store.CustomerAccount, error)
	SearchAccounts(context.Context, string) ([]store.CustomerAccount, error)
	GetAccount(context.Context, string) (store.CustomerAccount, error)
	InsertAccount(context.Context, store.CustomerAccount) error
	DeleteAccountDocument(context.Context, string, string, string) (store.Document, store.AuditEntry, error)
	Ping(ctx context.Context) error
}

type publishLog interface {
	RecordPublish(stream string, snapshot any, actor, message string) (store.CommitInfo, error)
	History(stream string, limit int) ([]store.CommitInfo, error)
}

type accountSearcher interface {
	SearchAccounts(ctx context.Context, query string) ([]store.CustomerAccount, error)
	IndexAccount(a store.CustomerAccount)
	ReindexAll(ctx context.Context)
}

type reportExporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type Service struct {
	cfg      config.Config
	store    DataStore
	sessions session.Store
	publog   publishLog
	search   accountSearcher
	exporter reportExporter
}

func New(cfg config.Config, dataStore DataStore, sessions session.Store, publog publishLog, search accountSearcher, exporter reportExporter) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		publog:   publog,
		search:   search,
		exporter: exporter,
	}
}

// Bootstrap seeds demo content on an empty store. Production config is
// seeded exactly once as a deep copy of staging; after that, only
// explicit publishes move content across.
func (s *Service) Bootstrap(ctx context.Context) error {
	_, err := s.store.GetPortalConfig(ctx, store.EnvStaging)
	if errors.Is(err, store.ErrNotFound) {
		if err := s.store.ReplacePortalConfig(ctx, store.EnvStaging, store.SeedConfig()); err != nil {
			return err
		}
		seeds := store.SeedQuestionSets()
		for i := len(seeds) - 1; i >= 0; i-- {
			if err := s.store.InsertQuestionSet(ctx, store.EnvStaging, seeds[i]); err != nil {
				return err
			}
		}
		for _, account := range store.SeedAccounts() {
			if err := s.store.InsertAccount(ctx, account); err != nil {
				return err
			}
		}
	} else if err != nil {
		return err
	}

	if _, err := s.store.GetPortalConfig(ctx, store.EnvProduction); errors.Is(err, store.ErrNotFound) {
		staging, err := s.store.GetPortalConfig(ctx, store.EnvStaging)
		if err != nil {
			return err
		}
		if err := s.store.ReplacePortalConfig(ctx, store.EnvProduction, staging.Clone()); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if s.search != nil {
		s.search.ReindexAll(ctx)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ---- Sessions ----

func (s *Service) Login(ctx context.Context, name, role string) (Session, error) {
	userName := strings.TrimSpace(name)
	if userName == "" {
		userName = "User"
	}
	normalized := string(rbac.Normalize(role))

	now := time.Now()
	expiresAt := now.Add(s.cfg.SessionTTL)
	userID := util.NewID("u")

	token, err := auth.IssueToken([]byte(s.cfg.SessionSecret), auth.Claims{
		Sub:  userID,
		Name: userName,
		Role: normalized,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	if err := s.sessions.Save(ctx, auth.HashToken(token), session.Record{
		UserID:    userID,
		Name:      userName,
		Role:      normalized,
		CreatedAt: now,
	}, s.cfg.SessionTTL); err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    userID,
		UserName:  userName,
		Role:      normalized,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.SessionSecret), token)
	if err != nil {
		return Session{}, err
	}
	rec, err := s.sessions.Lookup(ctx, auth.HashToken(token))
	if errors.Is(err, session.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    rec.UserID,
		UserName:  rec.Name,
		Role:      rec.Role,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, auth.HashToken(token))
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) requirePermission(role string, action rbac.Action) error {
	if s.Can(role, action) {
		return nil
	}
	return domainError(http.StatusForbidden, "PERMISSION_DENIED",
		fmt.Sprintf("Role %q cannot %s", role, action), nil)
}

// ---- Portal configuration ----

func (s *Service) GetPortalConfig(ctx context.Context, env store.Environment) (map[string]any, error) {
	cfg, err := s.store.GetPortalConfig(ctx, env)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"environment": env,
		"config":      cfg,
	}, nil
}

func (s *Service) UpdatePortalConfig(ctx context.Context, env store.Environment, role string, input UpdatePortalConfigInput) (map[string]any, error) {
	if err := s.requirePermission(role, rbac.ActionEditConfig); err != nil {
		return nil, err
	}

	// All structured-text sections must parse before anything is
	// written, so a malformed section never causes a partial update.
	navLinks, err := parseJSONText[[]store.NavLink](input.NavLinks, "[]")
	if err != nil {
		return nil, malformedContent("navLinks")
	}
	footerLinks, err := parseJSONText[[]store.FooterLink](input.FooterLinks, "[]")
	if err != nil {
		return nil, malformedContent("footerLinks")
	}
	faqs, err := parseJSONText[[]store.FAQEntry](input.FAQs, "[]")
	if err != nil {
		return nil, malformedContent("faqs")
	}
	recommended, err := parseJSONText[store.Recommended](input.Recommended, "{}")
	if err != nil {
		return nil, malformedContent("recommended")
	}

	current, err := s.store.GetPortalConfig(ctx, env)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	next.Branding = store.Branding{
		DisplayName:  strings.TrimSpace(input.Branding.DisplayName),
		AccentColor:  strings.TrimSpace(input.Branding.AccentColor),
		SupportHours: strings.TrimSpace(input.Branding.SupportHours),
		Phone:        strings.TrimSpace(input.Branding.Phone),
		Email:        strings.TrimSpace(input.Branding.Email),
	}
	next.NavLinks = navLinks
	next.FooterLinks = footerLinks
	next.FAQs = faqs
	next.Recommended = recommended

	if err := s.store.ReplacePortalConfig(ctx, env, next); err != nil {
		return nil, err
	}
	return map[string]any{
		"environment": env,
		"config":      next,
	}, nil
}

// PublishPortalConfig copies the staging configuration into production
// in full. Last writer wins; there is no merge.
func (s *Service) PublishPortalConfig(ctx context.Context, role, actor string) (map[string]any, error) {
	if err := s.requirePermission(role, rbac.ActionPublishConfig); err != nil {
		return nil, err
	}

	staging, err := s.store.GetPortalConfig(ctx, store.EnvStaging)
	if err != nil {
		return nil, err
	}
	published := staging.Clone()
	if err := s.store.ReplacePortalConfig(ctx, store.EnvProduction, published); err != nil {
		return nil, err
	}

	commit := s.recordPublish("portal-config", published, actor, "Publish portal configuration to production")

	payload := map[string]any{
		"environment": store.EnvProduction,
		"config":      published,
	}
	if commit != nil {
		payload["commit"] = commit
	}
	return payload, nil
}

// ---- Question sets ----

func (s *Service) ListQuestionSets(ctx context.Context, env store.Environment) (map[string]any, error) {
	sets, err := s.store.ListQuestionSets(ctx, env)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"environment":  env,
		"questionSets": sets,
	}, nil
}

func (s *Service) GetQuestionSet(ctx context.Context, env store.Environment, id string) (map[string]any, error) {
	set, err := s.store.GetQuestionSet(ctx, env, id)
	if err != nil {
		return nil, err
	}
	return questionSetPayload(env, set), nil
}

func (s *Service) CreateQuestionSet(ctx context.Context, env store.Environment, role string) (map[string]any, error) {
	if err := s.requirePermission(role, rbac.ActionEditQuestionSets); err != nil {
		return nil, err
	}

	set := store.QuestionSet{
		ID:        util.NewShortID("qs"),
		Name:      "New question set",
		Journey:   store.JourneyMTA,
		Status:    store.StatusDraft,
		UpdatedAt: time.Now().UTC(),
		Questions: []store.Question{
			{
				ID:    util.NewShortID("q"),
				Kind:  store.QuestionText,
				Title: "Click to write the question text",
			},
		},
	}
	if err := s.store.InsertQuestionSet(ctx, env, set); err != nil {
		return nil, err
	}
	return questionSetPayload(env, set), nil
}

func (s *Service) DuplicateQuestionSet(ctx context.Context, env store.Environment, role, id string) (map[string]any, error) {
	if err := s.requirePermission(role, rbac.ActionEditQuestionSets); err != nil {
		return nil, err
	}

	src, err := s.store.GetQuestionSet(ctx, env, id)
	if err != nil {
		return nil, err
	}
	copySet := src.Clone()
	copySet.ID = util.NewShortID("qs")
	copySet.Name = src.Name + " (Copy)"
	copySet.Status = store.StatusDraft
	copySet.UpdatedAt = time.Now().UTC()

	if err := s.store.InsertQuestionSet(ctx, env, copySet); err != nil {
		return nil, err
	}
	return questionSetPayload(env, copySet), nil
}

func (s *Service) UpdateQuestionSet(ctx context.Context, env store.Environment, role, id string, input UpdateQuestionSetInput) (map[string]any, error) {
	if err := s.requirePermission(role, rbac.ActionEditQuestionSets); err != nil {
		return nil, err
	}

	set, err := s.store.GetQuestionSet(ctx, env, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		set.Name = name
	}
	if input.Journey != "" {
		if !store.ValidJourney(input.Journey) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				fmt.Sprintf("Unknown journey %q", input.Journey), nil)
		}
		set.Journey = input.Journey
	}

	for _, patch := range input.Questions {
		idx := questionIndex(set.Questions, patch.ID)
		if idx < 0 {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND",
				fmt.Sprintf("Question %q not found in set %q", patch.ID, id), nil)
		}
		q := &set.Questions[idx]
		if patch.Title != nil {
			q.Title = *patch.Title
		}
		if patch.Helper != nil {
			q.Helper = *patch.Helper
		}
		if patch.Logic != nil {
			q.Logic = *patch.Logic
		}
		if patch.Required != nil {
			q.Required = *patch.Required
		}
		if patch.Kind != nil {
			if !store.ValidQuestionKind(*patch.Kind) {
				return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
					fmt.Sprintf("Unknown question kind %q", *patch.Kind), nil)
			}
			q.Kind = *patch.Kind
		}
		// Choices exist exactly when the question is a choice
		// question. An emptied list recovers to a placeholder
		// rather than failing.
		if q.Kind != store.QuestionChoice {
			q.Choices = nil
		} else {
			if patch.Choices != nil {
				q.Choices = trimChoices(*patch.Choices)
			}
			if len(q.Choices) == 0 {
				if patch.Choices != nil {
					q.Choices = []string{"Choice 1"}
				} else {
					q.Choices = []string{"Choice 1", "Choice 2"}
				}
			}
		}
	}

	if set.Status != store.StatusPublishedPreview && set.Status != store.StatusPublishedLive {
		set.Status = store.StatusDraft
	}
	set.UpdatedAt = time.Now().UTC()

	if err := s.store.ReplaceQuestionSet(ctx, env, set); err != nil {
		return nil, err
	}
	return questionSetPayload(env, set), nil
}

func (s *Service) AddQuestion(ctx context.Context, env store.Environment, role, id string) (map[string]any, error) {
	if err := s.requirePermission(role, rbac.ActionEditQuestionSets); err != nil {
		return nil, err
	}

	set, err := s.store.GetQuestionSet(ctx, env, id)
	if err != nil {
		return nil, err
	}
	set.Questions = append(set.Questions, store.Question{
		ID:   util.NewShortID("q"),
		Kind: store.QuestionText,
	})
	set.UpdatedAt = time.Now().UTC()

	if err := s.store.ReplaceQuestionSet(ctx, env, set); err != nil {
		return nil, err
	}
	return questionSetPayload(env, set), nil
}

// DeleteQuestion removes the question if present. Removing a question
// that is already gone is not an error.
func (s *Service) DeleteQuestion(ctx context.Context, env store.Environment, role, id, questionID string) (map[string]any, error) {
	if err := s.requirePermission(role, rbac.ActionEditQuestionSets); err != nil {
		return nil, err
	}

	set, err := s.store.GetQuestionSet(ctx, env, id)
	if err != nil {
		return nil, err
	}
	if idx := questionIndex(set.Questions, questionID); idx >= 0 {
		set.Questions = append(set.Questions[:idx], set.Questions[idx+1:]...)
		set.UpdatedAt = time.Now().UTC()
		if err := s.store.ReplaceQuestionSet(ctx, env, set); err != nil {
			return nil, err
		}
	}
	return questionSetPayload(env, set), nil
}

// PublishQuestionSet promotes the staging set into production,
// upserting by its stable identifier so repeated publishes replace the
// same production entry rather than duplicating it.
func (s *Service) PublishQuestionSet(ctx context.Context, role, id, actor string) (map[string]any, error) {
	if err := s.requirePermission(role, rbac.ActionPublishQuestionSets); err != nil {
		return nil, err
	}

	src, err := s.store.GetQuestionSet(ctx, store.EnvStaging, id)
	if err != nil {
		return nil, err
	}
	published := src.Clone()
	published.Status = store.StatusPublishedLive
	published.UpdatedAt = time.Now().UTC()

	if err := s.store.UpsertQuestionSet(ctx, store.EnvProduction, published); err != nil {
		return nil, err
	}

	commit := s.recordPublish("question-set-"+id, published, actor,
		fmt.Sprintf("Publish question set %q to production", published.Name))

	payload := questionSetPayload(store.EnvProduction, published)
	if commit != nil {
		payload["commit"] = commit
	}
	return payload, nil
}

// PublishHistory lists past publishes for a target, either
// "portal-config" or a question set id.
func (s *Service) PublishHistory(ctx context.Context, target string, limit int) (map[string]any, error) {
	stream := "portal-config"
	if target != "portal-config" {
		stream = "question-set-" + target
	}
	if limit <= 0 {
		limit = 20
	}
	history, err := s.publog.History(stream, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"target":  target,
		"history": history,
	}, nil
}

// ---- Accounts and documents ----

func (s *Service) ListAccounts(ctx context.Context, query string) (map[string]any, error) {
	var (
		accounts []store.CustomerAccount
		err      error
	)
	if s.search != nil {
		accounts, err = s.search.SearchAccounts(ctx, query)
	} else {
		accounts, err = s.store.SearchAccounts(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, map[string]any{
			"id":           a.ID,
			"name":         a.Name,
			"email":        a.Email,
			"status":       a.Status,
			"registeredAt": a.RegisteredAt,
			"lastLoginAt":  a.LastLoginAt,
			"policyCount":  len(a.Policies),
			"docCount":     len(a.Documents),
		})
	}
	return map[string]any{
		"accounts": items,
		"query":    query,
	}, nil
}

func (s *Service) GetAccount(ctx context.Context, id string) (map[string]any, error) {
	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"account": account}, nil
}

func (s *Service) AuditLog(ctx context.Context, accountID string) (map[string]any, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"accountId": account.ID,
		"audit":     account.Audit,
	}, nil
}

// DeleteDocument removes a customer document and writes the paired
// audit entry. The two effects are atomic in the store; a reason is
// never required but its absence is recorded as a fixed placeholder.
func (s *Service) DeleteDocument(ctx context.Context, role, accountID, documentID, reason string) (map[string]any, error) {
	if err := s.requirePermission(role, rbac.ActionDeleteDocuments); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		trimmed = "No reason provided"
	}

	doc, entry, err := s.store.DeleteAccountDocument(ctx, accountID, documentID, trimmed)
	if err != nil {
		return nil, err
	}

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexAccount(account)
	}

	return map[string]any{
		"deleted": doc,
		"audit":   entry,
		"account": account,
	}, nil
}

func (s *Service) ExportAccountReport(ctx context.Context, role, accountID string, format string) (*export.Result, error) {
	if err := s.requirePermission(role, rbac.ActionDeleteDocuments); err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export service not configured", nil)
	}
	result, err := s.exporter.Export(ctx, export.Request{
		AccountID: accountID,
		Format:    export.Format(format),
	})
	if errors.Is(err, export.ErrUnsupportedFormat) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			fmt.Sprintf("Unsupported export format %q", format), nil)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ---- Analytics and internal onboarding ----

func (s *Service) AnalyticsOverview(ctx context.Context, role string) (map[string]any, error) {
	if err := s.requirePermission(role, rbac.ActionViewAnalytics); err != nil {
		return nil, err
	}
	return map[string]any{
		"overview": map[string]any{
			"avgRegistrationMins":    7.4,
			"inviteToRegPct":         62,
			"regToDocAccessPct":      71,
			"docRequestToUploadPct":  54,
			"mtaStartPct":            38,
			"mtaQuoteIssuedPct":      29,
			"quoteToPaymentPct":      19,
		},
		"segments": []map[string]any{
			{"label": "Last 7 days", "inviteToRegPct": 60, "regToDocAccessPct": 68, "quoteToPaymentPct": 17},
			{"label": "Last 30 days", "inviteToRegPct": 62, "regToDocAccessPct": 71, "quoteToPaymentPct": 19},
			{"label": "Last 90 days", "inviteToRegPct": 58, "regToDocAccessPct": 69, "quoteToPaymentPct": 16},
		},
	}, nil
}

func (s *Service) OnboardingStatus(ctx context.Context, role string) (map[string]any, error) {
	if err := s.requirePermission(role, rbac.ActionViewInternal); err != nil {
		return nil, err
	}
	return map[string]any{
		"brokers": []map[string]any{
			{"broker": "Acme Brokers", "stage": "In build", "owner": "Implementation", "readiness": 64, "blockers": "Awaiting sign-off on FAQs"},
			{"broker": "NorthStar Insurance", "stage": "UAT", "owner": "Implementation", "readiness": 82, "blockers": "None"},
			{"broker": "Harbour & Co", "stage": "Live", "owner": "Implementation", "readiness": 100, "blockers": ""},
		},
		"checklist": []map[string]any{
			{"item": "Branding + contact details confirmed", "done": true},
			{"item": "FAQs loaded + reviewed", "done": false},
			{"item": "Question sets validated (Quotes / MTAs)", "done": false},
			{"item": "Analytics tags verified", "done": true},
			{"item": "Broker admin access provisioned", "done": true},
		},
	}, nil
}

// ---- helpers ----

func (s *Service) recordPublish(stream string, snapshot any, actor, message string) *store.CommitInfo {
	if s.publog == nil {
		return nil
	}
	commit, err := s.publog.RecordPublish(stream, snapshot, actor, message)
	if err != nil {
		// History is advisory; the publish itself already landed.
		log.Printf("publog: record publish %s: %v", stream, err)
		return nil
	}
	return &commit
}

func questionSetPayload(env store.Environment, set store.QuestionSet) map[string]any {
	return map[string]any{
		"environment": env,
		"questionSet": set,
	}
}

func questionIndex(questions []store.Question, id string) int {
	for i, q := range questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func trimChoices(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, choice := range raw {
		if trimmed := strings.TrimSpace(choice); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func malformedContent(field string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "MALFORMED_CONTENT",
		fmt.Sprintf("Field %q is not valid structured text", field),
		map[string]any{"field": field})
}

func parseJSONText[T any](raw, fallback string) (T, error) {
	var out T
	text := strings.TrimSpace(raw)
	if text == "" {
		text = fallback
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, err
	}
	return out, nil
}
