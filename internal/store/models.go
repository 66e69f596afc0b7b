package store

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by store lookups for missing entities.
var ErrNotFound = errors.New("not found")

type Environment string

const (
	EnvStaging    Environment = "staging"
	EnvProduction Environment = "production"
)

func ParseEnvironment(value string) (Environment, error) {
	switch value {
	case "", string(EnvStaging):
		return EnvStaging, nil
	case string(EnvProduction):
		return EnvProduction, nil
	default:
		return "", fmt.Errorf("unknown environment %q", value)
	}
}

type Branding struct {
	DisplayName  string `json:"displayName"`
	AccentColor  string `json:"accentColor"`
	SupportHours string `json:"supportHours"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
}

type FooterLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type NavLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type RecommendedItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Recommended struct {
	Enabled bool              `json:"enabled"`
	Title   string            `json:"title"`
	Items   []RecommendedItem `json:"items"`
}

type PortalConfig struct {
	Branding    Branding     `json:"branding"`
	FooterLinks []FooterLink `json:"footerLinks"`
	NavLinks    []NavLink    `json:"navLinks"`
	FAQs        []FAQEntry   `json:"faqs"`
	Recommended Recommended  `json:"recommended"`
}

// Clone returns a deep copy so callers can mutate freely without
// touching the stored value.
func (c PortalConfig) Clone() PortalConfig {
	out := c
	out.FooterLinks = append([]FooterLink(nil), c.FooterLinks...)
	out.NavLinks = append([]NavLink(nil), c.NavLinks...)
	out.FAQs = append([]FAQEntry(nil), c.FAQs...)
	out.Recommended.Items = append([]RecommendedItem(nil), c.Recommended.Items...)
	return out
}

const (
	StatusDraft            = "DRAFT"
	StatusPublishedPreview = "PUBLISHED_PREVIEW"
	StatusPublishedLive    = "PUBLISHED_LIVE"
)

const (
	JourneyRegistration = "REGISTRATION"
	JourneyMTA          = "MTA"
	JourneyQuote        = "QUOTE"
)

const (
	QuestionText   = "text"
	QuestionChoice = "choice"
	QuestionDate   = "date"
	QuestionEmail  = "email"
	QuestionCode   = "code"
)

func ValidJourney(value string) bool {
	switch value {
	case JourneyRegistration, JourneyMTA, JourneyQuote:
		return true
	}
	return false
}

func ValidQuestionKind(value string) bool {
	switch value {
	case QuestionText, QuestionChoice, QuestionDate, QuestionEmail, QuestionCode:
		return true
	}
	return false
}

type Question struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Helper   string `json:"helper"`
	Required bool   `json:"required"`
	Logic    string `json:"logic"`
	// Present only for choice questions.
	Choices []string `json:"choices,omitempty"`
}

type QuestionSet struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Journey   string     `json:"journey"`
	Status    string     `json:"status"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Questions []Question `json:"questions"`
}

func (s QuestionSet) Clone() QuestionSet {
	out := s
	out.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Choices = append([]string(nil), q.Choices...)
		out.Questions[i] = q
	}
	return out
}

const (
	AccountNotRegistered = "Not registered"
	AccountRegistered    = "Registered"
	AccountLocked        = "Locked"
)

type Policy struct {
	PolicyNumber string `json:"policyNumber"`
	Line         string `json:"line"`
	Status       string `json:"status"`
}

type Document struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	UploadedBy string     `json:"uploadedBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	Accessed   bool       `json:"accessed"`
	AccessedAt *time.Time `json:"accessedAt,omitempty"`
}

type AuditEntry struct {
	At     time.Time `json:"at"`
	Event  string    `json:"event"`
	Detail string    `json:"detail"`
}

type CustomerAccount struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Status       string       `json:"status"`
	RegisteredAt *time.Time   `json:"registeredAt,omitempty"`
	LastLoginAt  *time.Time   `json:"lastLoginAt,omitempty"`
	Policies     []Policy     `json:"policies"`
	Documents    []Document   `json:"documents"`
	Audit        []AuditEntry `json:"audit"`
}

func (a CustomerAccount) Clone() CustomerAccount {
	out := a
	if a.RegisteredAt != nil {
		at := *a.RegisteredAt
		out.RegisteredAt = &at
	}
	if a.LastLoginAt != nil {
		at := *a.LastLoginAt
		out.LastLoginAt = &at
	}
	out.Policies = append([]Policy(nil), a.Policies...)
	out.Documents = make([]Document, len(a.Documents))
	for i, d := range a.Documents {
		if d.AccessedAt != nil {
			at := *d.AccessedAt
			d.AccessedAt = &at
		}
		out.Documents[i] = d
	}
	out.Audit = append([]AuditEntry(nil), a.Audit...)
	return out
}

type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}
