package gavel

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

func TrimChannelString(chStr string) string {
	chStr = strings.TrimPrefix(chStr, "<#")
	chStr = strings.TrimSuffix(chStr, ">")
	return chStr
}

func ParseSnowflake(id string) (time.Time, error) {
	n, err := strconv.ParseInt(id, 0, 63)
	if err != nil {
		return time.Now(), err
	}
	return time.Unix(((n>>22)+1420070400000)/1000, 0), nil
}

var urlPattern = regexp.MustCompile(`^https?://(www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_+.~#?&/=]*)`)

func ValidURL(s string) bool {
	return urlPattern.MatchString(s)
}

func InviteURL(code string) string {
	return "https://discord.gg/" + code
}

// TimeSince formats the elapsed time since start as days, hours or minutes.
func TimeSince(start time.Time) string {
	return timeSince(start, time.Now().UTC())
}

func timeSince(start, now time.Time) string {
	elapsed := now.Sub(start)
	if days := int(elapsed.Hours() / 24); days > 0 {
		return fmt.Sprintf("%v days ago", days)
	}

	hours := math.Round(elapsed.Hours()*100) / 100
	if hours > 1 {
		return fmt.Sprintf("%v hours ago", hours)
	}
	return fmt.Sprintf("%v minutes ago", math.Round(hours*60*100)/100)
}

// StaleInvites returns the single-use invites that have sat unused for over
// 24 hours, oldest first.
func StaleInvites(invites []*discordgo.Invite, now time.Time) []*discordgo.Invite {
	var stale []*discordgo.Invite
	for _, inv := range invites {
		if inv.Uses == 0 && inv.MaxUses == 1 && now.Sub(inv.CreatedAt) >= time.Hour*24 {
			stale = append(stale, inv)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].CreatedAt.Before(stale[j].CreatedAt)
	})
	return stale
}

func hasRole(m *discordgo.Member, rid string) bool {
	for _, r := range m.Roles {
		if r == rid {
			return true
		}
	}
	return false
}

func topRole(g *discordgo.Guild, m *discordgo.Member) *discordgo.Role {
	var top *discordgo.Role
	for _, r := range g.Roles {
		if !hasRole(m, r.ID) {
			continue
		}
		if top == nil || r.Position > top.Position {
			top = r
		}
	}
	return top
}
