package store

import "time"

// Demo fixtures loaded on first boot. The service copies the staging
// config into production exactly once, so production starts identical
// and only changes through publishes.

func SeedConfig() PortalConfig {
	return PortalConfig{
		Branding: Branding{
			DisplayName:  "Acme Brokers",
			AccentColor:  "#111827",
			SupportHours: "Mon-Fri 9:00-17:30",
			Phone:        "01234 567890",
			Email:        "support@acmebrokers.co.uk",
		},
		FooterLinks: []FooterLink{
			{Label: "Privacy policy", URL: "https://example.com/privacy"},
			{Label: "Terms of use", URL: "https://example.com/terms"},
		},
		NavLinks: []NavLink{
			{Label: "Make a claim", URL: "https://example.com/claims"},
			{Label: "Contact us", URL: "https://example.com/contact"},
		},
		FAQs: []FAQEntry{
			{
				Question: "I didn't receive my verification email. What should I do?",
				Answer:   "Ask the customer to check junk/spam. Confirm the registered email address. If still missing, trigger a resend.",
			},
			{
				Question: "A customer can't see their policy after registering.",
				Answer:   "Confirm the policy is linked to the registered email. Check audit log for linking events.",
			},
		},
		Recommended: Recommended{
			Enabled: true,
			Title:   "Recommended",
			Items: []RecommendedItem{
				{Title: "How to help with registration", URL: "#help-support"},
				{Title: "Troubleshooting document access", URL: "#help-support"},
			},
		},
	}
}

func SeedQuestionSets() []QuestionSet {
	return []QuestionSet{
		{
			ID:        "qs_mta_v1",
			Name:      "MTA - Core Questions",
			Journey:   JourneyMTA,
			Status:    StatusDraft,
			UpdatedAt: time.Date(2026, time.February, 8, 10, 20, 0, 0, time.UTC),
			Questions: []Question{
				{
					ID:       "q1",
					Kind:     QuestionText,
					Title:    "What change do you need to make?",
					Helper:   "E.g. address change, vehicle change",
					Required: true,
				},
				{
					ID:       "q2",
					Kind:     QuestionChoice,
					Title:    "When should the change take effect?",
					Helper:   "Select one",
					Required: true,
					Logic:    "If 'Backdated' then show date reason",
					Choices:  []string{"Today", "Future date", "Backdated"},
				},
				{
					ID:     "q3",
					Kind:   QuestionDate,
					Title:  "Effective date",
					Helper: "Choose a date",
					Logic:  "Show if q2 = Future date or Backdated",
				},
			},
		},
		{
			ID:        "qs_reg_v1",
			Name:      "Registration - Verification Prompts",
			Journey:   JourneyRegistration,
			Status:    StatusPublishedPreview,
			UpdatedAt: time.Date(2026, time.February, 6, 15, 5, 0, 0, time.UTC),
			Questions: []Question{
				{
					ID:       "r1",
					Kind:     QuestionEmail,
					Title:    "Confirm your email address",
					Required: true,
				},
				{
					ID:       "r2",
					Kind:     QuestionCode,
					Title:    "Enter your verification code",
					Helper:   "We'll send a 6-digit code",
					Required: true,
				},
			},
		},
	}
}

func SeedAccounts() []CustomerAccount {
	return []CustomerAccount{
		{
			ID:           "c_1001",
			Name:         "Katerina Novak",
			Email:        "katerina.novak@email.com",
			Status:       AccountRegistered,
			RegisteredAt: timePtr(time.Date(2026, time.January, 12, 11, 22, 0, 0, time.UTC)),
			LastLoginAt:  timePtr(time.Date(2026, time.February, 11, 19, 10, 0, 0, time.UTC)),
			Policies: []Policy{
				{PolicyNumber: "ACM-MTR-001928", Line: "Motor", Status: "In force"},
				{PolicyNumber: "ACM-HOM-000442", Line: "Home", Status: "Renewal due"},
			},
			Documents: []Document{
				{
					ID:         "d_1",
					Name:       "Policy Schedule.pdf",
					Type:       "Schedule",
					UploadedBy: "System",
					CreatedAt:  time.Date(2026, time.January, 12, 11, 30, 0, 0, time.UTC),
					Accessed:   true,
					AccessedAt: timePtr(time.Date(2026, time.February, 10, 8, 10, 0, 0, time.UTC)),
				},
				{
					ID:         "d_2",
					Name:       "Proof of NCD.jpg",
					Type:       "Customer upload",
					UploadedBy: "Customer",
					CreatedAt:  time.Date(2026, time.February, 9, 12, 41, 0, 0, time.UTC),
				},
			},
			Audit: []AuditEntry{
				{At: time.Date(2026, time.February, 11, 19, 10, 0, 0, time.UTC), Event: "Login successful", Detail: "Customer logged in"},
				{At: time.Date(2026, time.February, 10, 8, 10, 0, 0, time.UTC), Event: "Document viewed", Detail: "Policy Schedule.pdf"},
				{At: time.Date(2026, time.February, 9, 12, 41, 0, 0, time.UTC), Event: "Document uploaded", Detail: "Proof of NCD.jpg"},
			},
		},
		{
			ID:           "c_1002",
			Name:         "Shane Mitchell",
			Email:        "shane.mitchell@email.com",
			Status:       AccountLocked,
			RegisteredAt: timePtr(time.Date(2026, time.January, 2, 9, 0, 0, 0, time.UTC)),
			LastLoginAt:  timePtr(time.Date(2026, time.February, 11, 8, 20, 0, 0, time.UTC)),
			Policies: []Policy{
				{PolicyNumber: "ACM-MTR-001112", Line: "Motor", Status: "In force"},
			},
			Documents: []Document{
				{
					ID:         "d_3",
					Name:       "Renewal Invite.pdf",
					Type:       "Invite",
					UploadedBy: "System",
					CreatedAt:  time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC),
					Accessed:   true,
					AccessedAt: timePtr(time.Date(2026, time.February, 1, 9, 4, 0, 0, time.UTC)),
				},
			},
			Audit: []AuditEntry{
				{At: time.Date(2026, time.February, 11, 8, 20, 0, 0, time.UTC), Event: "Account locked", Detail: "Too many failed password attempts"},
				{At: time.Date(2026, time.February, 11, 8, 19, 0, 0, time.UTC), Event: "Login failed", Detail: "Incorrect password attempt"},
				{At: time.Date(2026, time.February, 11, 8, 18, 0, 0, time.UTC), Event: "Login failed", Detail: "Incorrect password attempt"},
			},
		},
		{
			ID:     "c_1003",
			Name:   "Michelle Robichaud",
			Email:  "michelle.robichaud@email.com",
			Status: AccountNotRegistered,
			Policies: []Policy{
				{PolicyNumber: "ACM-HOM-000008", Line: "Home", Status: "In force"},
			},
			Documents: []Document{},
			Audit: []AuditEntry{
				{At: time.Date(2026, time.February, 3, 10, 2, 0, 0, time.UTC), Event: "Portal invite sent", Detail: "Invite email queued"},
			},
		},
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
