package gavel

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestNoteLine(t *testing.T) {
	n := &Note{
		Link: "https://example.com/evidence",
		Text: url.QueryEscape("screenshot of the appeal"),
	}
	assert.Equal(t, "1) [screenshot of the appeal](https://example.com/evidence)", noteLine(0, n))

	// text that was never escaped is shown as-is
	raw := &Note{Link: "https://example.com", Text: "plain"}
	assert.Equal(t, "3) [plain](https://example.com)", noteLine(2, raw))
}

func TestAppealLine(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mem := &discordgo.Member{
		User:     &discordgo.User{Username: "jeff", Discriminator: "0"},
		JoinedAt: now.Add(-49 * time.Hour),
	}
	assert.Equal(t, "1) `jeff` - Joined 2 days ago", appealLine(0, mem, now))
}

func TestInviteLine(t *testing.T) {
	inv := &discordgo.Invite{
		Code:    "abc123",
		Uses:    0,
		MaxUses: 1,
		Inviter: &discordgo.User{ID: "456", Username: "jeff"},
	}
	assert.Equal(t, "https://discord.gg/abc123 - <@456> - Used 0/1 times", inviteLine(inv))

	noInviter := &discordgo.Invite{Code: "abc123", Uses: 3}
	assert.Equal(t, "https://discord.gg/abc123 - unknown - Used 3/Infinite times", inviteLine(noInviter))
}

func TestJoinLimited(t *testing.T) {
	lines := []string{"one", "two", "three"}
	assert.Equal(t, "one\ntwo\nthree", joinLimited(lines, 3900))

	got := joinLimited(lines, 9)
	assert.True(t, strings.HasPrefix(got, "one\ntwo"))
	assert.Contains(t, got, "and 1 more")
}

func TestChannelString(t *testing.T) {
	assert.Equal(t, "None", channelString(""))
	assert.Equal(t, "<#1234>", channelString("1234"))
}

func TestGenerateSettingsEmbed(t *testing.T) {
	gc := &Guild{
		ID:              "123",
		InviteChannel:   "1",
		InviteCreateLog: "2",
	}

	embed := generateSettingsEmbed(gc, []string{"10", "20"})
	assert.Equal(t, "Settings", embed.Title)
	assert.Len(t, embed.Fields, 4)
	assert.Equal(t, "<#1>", embed.Fields[0].Value)
	assert.Equal(t, "<#2>", embed.Fields[1].Value)
	assert.Equal(t, "None", embed.Fields[2].Value)
	assert.Equal(t, "<@&10>, <@&20>", embed.Fields[3].Value)

	empty := generateSettingsEmbed(&Guild{ID: "123"}, nil)
	assert.Equal(t, "None", empty.Fields[3].Value)
}
