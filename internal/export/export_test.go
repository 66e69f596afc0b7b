package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"brokerportal/api/internal/store"
)

type fakeStore struct {
	getAccountFn func(ctx context.Context, id string) (store.CustomerAccount, error)
}

func (f *fakeStore) GetAccount(ctx context.Context, id string) (store.CustomerAccount, error) {
	return f.getAccountFn(ctx, id)
}

func sampleAccount() store.CustomerAccount {
	registered := time.Date(2026, time.January, 12, 11, 22, 0, 0, time.UTC)
	return store.CustomerAccount{
		ID:           "c_1001",
		Name:         "Katerina Novak",
		Email:        "katerina.novak@email.com",
		Status:       store.AccountRegistered,
		RegisteredAt: &registered,
		Policies: []store.Policy{
			{PolicyNumber: "ACM-MTR-001928", Line: "Motor", Status: "In force"},
		},
		Documents: []store.Document{
			{ID: "d_1", Name: "Policy Schedule.pdf", Type: "Schedule", UploadedBy: "System", CreatedAt: registered},
		},
		Audit: []store.AuditEntry{
			{At: registered, Event: "Login successful", Detail: "Customer logged in"},
		},
	}
}

func TestRenderReportHTML(t *testing.T) {
	html, err := renderReportHTML(sampleAccount())
	if err != nil {
		t.Fatalf("renderReportHTML() error = %v", err)
	}
	for _, want := range []string{
		"Katerina Novak",
		"ACM-MTR-001928",
		"Policy Schedule.pdf",
		"Login successful",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report HTML missing %q", want)
		}
	}
}

func TestRenderReportHTMLEscapes(t *testing.T) {
	account := sampleAccount()
	account.Name = `<script>alert("x")</script>`
	html, err := renderReportHTML(account)
	if err != nil {
		t.Fatalf("renderReportHTML() error = %v", err)
	}
	if strings.Contains(html, "<script>alert") {
		t.Fatal("report HTML did not escape account name")
	}
}

func TestExportCSV(t *testing.T) {
	svc := NewService(&fakeStore{
		getAccountFn: func(ctx context.Context, id string) (store.CustomerAccount, error) {
			return sampleAccount(), nil
		},
	})

	result, err := svc.Export(context.Background(), Request{AccountID: "c_1001", Format: FormatCSV})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.MimeType != "text/csv" {
		t.Errorf("MimeType = %q", result.MimeType)
	}
	if !strings.HasSuffix(result.Filename, ".csv") {
		t.Errorf("Filename = %q", result.Filename)
	}
	body := string(result.Data)
	if !strings.Contains(body, "at,event,detail") {
		t.Errorf("missing header: %q", body)
	}
	if !strings.Contains(body, "Login successful") {
		t.Errorf("missing audit row: %q", body)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	svc := NewService(&fakeStore{
		getAccountFn: func(ctx context.Context, id string) (store.CustomerAccount, error) {
			return sampleAccount(), nil
		},
	})
	_, err := svc.Export(context.Background(), Request{AccountID: "c_1001", Format: "docx"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Export() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExportAccountLookupError(t *testing.T) {
	svc := NewService(&fakeStore{
		getAccountFn: func(ctx context.Context, id string) (store.CustomerAccount, error) {
			return store.CustomerAccount{}, store.ErrNotFound
		},
	})
	_, err := svc.Export(context.Background(), Request{AccountID: "c_missing", Format: FormatCSV})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Export() error = %v, want wrapped ErrNotFound", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("Katerina Novak activity"); got != "Katerina-Novak-activity" {
		t.Errorf("sanitizeFilename() = %q", got)
	}
	if got := sanitizeFilename("///"); got != "report" {
		t.Errorf("sanitizeFilename() = %q", got)
	}
}
