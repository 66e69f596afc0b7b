package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "admin edits config", role: RoleBrokerAdmin, action: ActionEditConfig, allow: true},
		{name: "admin publishes config", role: RoleBrokerAdmin, action: ActionPublishConfig, allow: true},
		{name: "admin cannot view internal", role: RoleBrokerAdmin, action: ActionViewInternal, allow: false},
		{name: "support deletes documents", role: RoleBrokerSupport, action: ActionDeleteDocuments, allow: true},
		{name: "support cannot edit config", role: RoleBrokerSupport, action: ActionEditConfig, allow: false},
		{name: "support cannot publish question sets", role: RoleBrokerSupport, action: ActionPublishQuestionSets, allow: false},
		{name: "specialist edits question sets", role: RoleSpecialist, action: ActionEditQuestionSets, allow: true},
		{name: "specialist cannot publish question sets", role: RoleSpecialist, action: ActionPublishQuestionSets, allow: false},
		{name: "specialist cannot delete documents", role: RoleSpecialist, action: ActionDeleteDocuments, allow: false},
		{name: "internal views internal area", role: RoleOGIInternal, action: ActionViewInternal, allow: true},
		{name: "internal publishes question sets", role: RoleOGIInternal, action: ActionPublishQuestionSets, allow: true},
		{name: "everyone views analytics", role: RoleSpecialist, action: ActionViewAnalytics, allow: true},
		{name: "unknown role denied", role: Role("intruder"), action: ActionViewAnalytics, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalizeFallsBackToSupport(t *testing.T) {
	if got := Normalize("broker_admin"); got != RoleBrokerAdmin {
		t.Fatalf("Normalize(broker_admin) = %q", got)
	}
	if got := Normalize("superuser"); got != RoleBrokerSupport {
		t.Fatalf("expected unknown role to normalize to broker_support, got %q", got)
	}
}
