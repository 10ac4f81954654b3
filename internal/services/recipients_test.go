package services

import (
	"testing"

	"site-monitor/internal/models"

	"github.com/google/go-cmp/cmp"
)

func TestResolveRecipients(t *testing.T) {
	t.Parallel()

	owner := models.User{Email: "Owner@Example.com", Role: models.RoleOwner, IsActive: true}
	member := models.User{Email: "member@example.com", Role: models.RoleMember, IsActive: true}
	blocked := models.User{Email: "blocked@example.com", Role: models.RoleMember, IsActive: true, Blocked: true}
	inactive := models.User{Email: "inactive@example.com", Role: models.RoleMember, IsActive: false}

	tests := []struct {
		name    string
		org     models.Organization
		members []models.User
		want    []string
	}{
		{
			"owner policy resolves to owner only",
			models.Organization{NotifyPolicy: models.NotifyOwner},
			[]models.User{owner, member},
			[]string{"owner@example.com"},
		},
		{
			"all policy includes every active member",
			models.Organization{NotifyPolicy: models.NotifyAll},
			[]models.User{owner, member},
			[]string{"owner@example.com", "member@example.com"},
		},
		{
			"blocked and inactive members excluded",
			models.Organization{NotifyPolicy: models.NotifyAll},
			[]models.User{owner, blocked, inactive},
			[]string{"owner@example.com"},
		},
		{
			"extra addresses appended",
			models.Organization{NotifyPolicy: models.NotifyOwner, ExtraEmails: "ops@example.com, boss@example.com"},
			[]models.User{owner},
			[]string{"owner@example.com", "ops@example.com", "boss@example.com"},
		},
		{
			"case and whitespace duplicates collapse",
			models.Organization{NotifyPolicy: models.NotifyAll, ExtraEmails: " OWNER@example.com ,member@EXAMPLE.com"},
			[]models.User{owner, member},
			[]string{"owner@example.com", "member@example.com"},
		},
		{
			"no members and no extras resolves empty",
			models.Organization{NotifyPolicy: models.NotifyAll},
			nil,
			[]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRecipients(&tt.org, tt.members)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResolveRecipients mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
