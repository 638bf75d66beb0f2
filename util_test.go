package gavel

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestTimeSince(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		want  string
	}{
		{
			name:  "days",
			start: now.Add(-49 * time.Hour),
			want:  "2 days ago",
		},
		{
			name:  "single day",
			start: now.Add(-24 * time.Hour),
			want:  "1 days ago",
		},
		{
			name:  "hours",
			start: now.Add(-5 * time.Hour),
			want:  "5 hours ago",
		},
		{
			name:  "fractional hours",
			start: now.Add(-90 * time.Minute),
			want:  "1.5 hours ago",
		},
		{
			name:  "minutes",
			start: now.Add(-30 * time.Minute),
			want:  "30 minutes ago",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := timeSince(tt.start, now); got != tt.want {
				t.Errorf("timeSince() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidURL(t *testing.T) {
	tests := []struct {
		name string
		args string
		want bool
	}{
		{
			name: "plain https",
			args: "https://example.com",
			want: true,
		},
		{
			name: "www with path and query",
			args: "http://www.example.com/path?x=1&y=2",
			want: true,
		},
		{
			name: "message link",
			args: "https://discord.com/channels/1234/5678/9012",
			want: true,
		},
		{
			name: "no scheme",
			args: "example.com",
			want: false,
		},
		{
			name: "wrong scheme",
			args: "ftp://example.com",
			want: false,
		},
		{
			name: "no host",
			args: "https://",
			want: false,
		},
		{
			name: "not a url",
			args: "just some words",
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidURL(tt.args); got != tt.want {
				t.Errorf("ValidURL(%q) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseSnowflake(t *testing.T) {
	got, err := ParseSnowflake("163454407999094786")
	assert.NoError(t, err)
	assert.Equal(t, time.Unix(1459040967, 0), got)

	_, err = ParseSnowflake("asdf")
	assert.Error(t, err)
}

func TestTrimChannelString(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
	}{
		{
			name: "mention",
			args: "<#1234>",
			want: "1234",
		},
		{
			name: "plain id",
			args: "1234",
			want: "1234",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimChannelString(tt.args); got != tt.want {
				t.Errorf("TrimChannelString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStaleInvites(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	oldest := &discordgo.Invite{Code: "oldest", Uses: 0, MaxUses: 1, CreatedAt: now.Add(-72 * time.Hour)}
	older := &discordgo.Invite{Code: "older", Uses: 0, MaxUses: 1, CreatedAt: now.Add(-48 * time.Hour)}
	fresh := &discordgo.Invite{Code: "fresh", Uses: 0, MaxUses: 1, CreatedAt: now.Add(-time.Hour)}
	used := &discordgo.Invite{Code: "used", Uses: 1, MaxUses: 1, CreatedAt: now.Add(-48 * time.Hour)}
	unlimited := &discordgo.Invite{Code: "unlimited", Uses: 0, MaxUses: 0, CreatedAt: now.Add(-48 * time.Hour)}

	stale := StaleInvites([]*discordgo.Invite{fresh, older, used, unlimited, oldest}, now)

	assert.Len(t, stale, 2)
	assert.Equal(t, "oldest", stale[0].Code)
	assert.Equal(t, "older", stale[1].Code)
}

func TestTopRole(t *testing.T) {
	g := &discordgo.Guild{
		Roles: []*discordgo.Role{
			{ID: "1", Position: 0},
			{ID: "2", Position: 5},
			{ID: "3", Position: 3},
		},
	}
	mem := &discordgo.Member{Roles: []string{"1", "3"}}

	top := topRole(g, mem)
	assert.NotNil(t, top)
	assert.Equal(t, "3", top.ID)

	assert.Nil(t, topRole(g, &discordgo.Member{}))
}
