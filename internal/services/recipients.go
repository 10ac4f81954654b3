package services

import (
	"strings"

	"site-monitor/internal/models"
)

// ResolveRecipients computes the notification audience for an organization:
// member addresses per the notify policy (owner-only or all members), plus
// the organization's extra addresses. Addresses are trimmed, lowercased and
// deduplicated, first occurrence wins. Blocked and inactive members never
// receive notifications. An empty result means the organization is skipped
// for that cycle.
func ResolveRecipients(org *models.Organization, members []models.User) []string {
	seen := make(map[string]bool)
	recipients := []string{}

	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		recipients = append(recipients, addr)
	}

	for _, member := range members {
		if member.Blocked || !member.IsActive {
			continue
		}
		if org.NotifyPolicy == models.NotifyOwner && member.Role != models.RoleOwner {
			continue
		}
		add(member.Email)
	}

	for _, extra := range strings.Split(org.ExtraEmails, ",") {
		add(extra)
	}

	return recipients
}
