package gavel

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/utils/builders"
	"go.uber.org/zap"
)

type Color int

const (
	ColorRed    Color = 0xff0000
	ColorGreen  Color = 0x00ff00
	ColorBlue   Color = 0x61d1ed
	ColorWhite  Color = 0xffffff
	ColorOrange Color = 0xf57f54
)

func disconnectHandler(b *Bot) func(*discordgo.Session, *discordgo.Disconnect) {
	return func(s *discordgo.Session, d *discordgo.Disconnect) {
		b.logger.Info("disconnected")
	}
}

func guildCreateHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildCreate) {
	return func(s *discordgo.Session, d *discordgo.GuildCreate) {
		if _, err := b.db.GetGuild(d.ID); err != nil {
			err = b.db.CreateGuild(d.ID)
			if err != nil {
				b.logger.Error("failed to create new guild", zap.Error(err))
			}
		}

		// snapshot the active invites; requires Manage Guild
		invites, err := s.GuildInvites(d.ID)
		if err != nil {
			b.logger.Warn("failed to fetch guild invites", zap.Error(err))
		}
		for _, inv := range invites {
			if inv.Guild == nil {
				inv.Guild = &discordgo.Guild{ID: d.ID}
			}
			if err := b.store.SetInvite(inv); err != nil {
				b.logger.Error("failed to set invite", zap.Error(err))
			}
		}

		if len(d.Members) != d.MemberCount {
			_ = s.RequestGuildMembers(d.ID, "", 0, "", false)
			return
		}

		for _, mem := range d.Members {
			err := b.store.SetMember(mem)
			if err != nil {
				b.logger.Error("failed to set member", zap.Error(err))
				continue
			}
		}
	}
}

func guildMemberAddHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildMemberAdd) {
	return func(s *discordgo.Session, d *discordgo.GuildMemberAdd) {
		err := b.store.SetMember(d.Member)
		if err != nil {
			b.logger.Error("failed to set member", zap.Error(err))
		}
	}
}

func guildMemberRemoveHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildMemberRemove) {
	return func(s *discordgo.Session, d *discordgo.GuildMemberRemove) {
		err := b.store.DeleteMember(d.GuildID, d.User.ID)
		if err != nil {
			b.logger.Error("failed to delete member", zap.Error(err))
		}
	}
}

func guildMemberUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildMemberUpdate) {
	return func(s *discordgo.Session, d *discordgo.GuildMemberUpdate) {
		err := b.store.SetMember(d.Member)
		if err != nil {
			b.logger.Error("failed to update member", zap.Error(err))
			return
		}
	}
}

func guildMembersChunkHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildMembersChunk) {
	return func(s *discordgo.Session, d *discordgo.GuildMembersChunk) {
		for _, mem := range d.Members {
			err := b.store.SetMember(mem)
			if err != nil {
				b.logger.Error("failed to set member", zap.Error(err))
				continue
			}
		}
	}
}

func inviteCreateHandler(b *Bot) func(*discordgo.Session, *discordgo.InviteCreate) {
	return func(s *discordgo.Session, d *discordgo.InviteCreate) {
		// DM invites carry no guild
		if d.Invite == nil || d.GuildID == "" {
			return
		}

		inv := *d.Invite
		inv.Guild = &discordgo.Guild{ID: d.GuildID}
		inv.Channel = &discordgo.Channel{ID: d.ChannelID}
		if err := b.store.SetInvite(&inv); err != nil {
			b.logger.Error("failed to set invite", zap.Error(err))
		}

		gc, err := b.db.GetGuild(d.GuildID)
		if err != nil || gc.InviteCreateLog == "" {
			return
		}

		embed := builders.NewEmbedBuilder().
			WithTitle("Invite Created").
			WithColor(int(ColorBlue)).
			AddField("Temporary membership?", yesNo(d.Temporary), true).
			AddField("Expires?", expiryString(d.MaxAge), true).
			AddField("Max uses", maxUsesString(d.MaxUses), true).
			AddField("URL", InviteURL(d.Code), false)

		if d.Inviter != nil {
			embed.WithDescription(fmt.Sprintf("Invite for channel <#%v> created by %v", d.ChannelID, d.Inviter.Mention())).
				WithFooter(fmt.Sprintf("Inviter ID: %v", d.Inviter.ID), "")
		} else {
			embed.WithDescription(fmt.Sprintf("Invite for channel <#%v> created", d.ChannelID))
		}

		_, _ = s.ChannelMessageSendEmbed(gc.InviteCreateLog, embed.Build())
	}
}

func inviteDeleteHandler(b *Bot) func(*discordgo.Session, *discordgo.InviteDelete) {
	return func(s *discordgo.Session, d *discordgo.InviteDelete) {
		if d.GuildID == "" {
			return
		}

		inv, err := b.store.GetInvite(d.GuildID, d.Code)
		if err == nil {
			if err := b.store.DeleteInvite(d.GuildID, d.Code); err != nil {
				b.logger.Error("failed to delete invite", zap.Error(err))
			}
		}

		gc, dbErr := b.db.GetGuild(d.GuildID)
		if dbErr != nil || gc.InviteDeleteLog == "" {
			return
		}

		embed := builders.NewEmbedBuilder().
			WithTitle("Invite Deleted").
			WithDescription(fmt.Sprintf("Invite for channel <#%v> deleted", d.ChannelID)).
			WithColor(int(ColorOrange))

		// the gateway only sends the code, so details come from the cache
		if err == nil {
			embed.AddField("Temporary membership?", yesNo(inv.Temporary), true).
				AddField("Expires?", expiryString(inv.MaxAge), true).
				AddField("Max uses", maxUsesString(inv.MaxUses), true)
			if inv.Inviter != nil {
				embed.WithFooter(fmt.Sprintf("Inviter ID: %v", inv.Inviter.ID), "")
			}
		}
		embed.AddField("URL", InviteURL(d.Code), false)

		_, _ = s.ChannelMessageSendEmbed(gc.InviteDeleteLog, embed.Build())
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func expiryString(maxAge int) string {
	if maxAge > 0 {
		return fmt.Sprintf("Yes (%v minutes)", maxAge/60)
	}
	return "No"
}

func maxUsesString(maxUses int) string {
	if maxUses > 0 {
		return fmt.Sprint(maxUses)
	}
	return "Infinite"
}
