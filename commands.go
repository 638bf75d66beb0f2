package gavel

import (
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/mio"
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"github.com/intrntsrfr/meido/pkg/mio/discord"
	"github.com/intrntsrfr/meido/pkg/utils/builders"
)

type module struct {
	*bot.ModuleBase
	startTime time.Time
	db        DB
	store     *Store
}

func NewModule(b *bot.Bot, db DB, store *Store, logger mio.Logger) *module {
	logger = logger.Named("commands")
	return &module{
		ModuleBase: bot.NewModule(b, "commands", logger),
		db:         db,
		store:      store,
		startTime:  time.Now(),
	}
}

func (m *module) Hook() error {
	if err := m.RegisterCommands(); err != nil {
		return err
	}
	if err := m.RegisterApplicationCommands(
		newPingSlash(m),
		newPineappleSlash(m),
		newInfoSlash(m),
		newHelpSlash(m),
		newInvitesSlash(m),
		newInviteSlash(m),
		newNotesSlash(m),
		newAppealsSlash(m),
		newSettingsSlash(m),
	); err != nil {
		return err
	}

	return nil
}

func newPingSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "ping").
		Type(discordgo.ChatApplicationCommand).
		Description("Pings the bot's websocket")

	run := func(d *discord.DiscordApplicationCommand) {
		latency := d.Sess.Real().HeartbeatLatency()
		d.Respond(fmt.Sprintf("Pong! %vms", latency.Milliseconds()))
	}

	return cmd.Execute(run).Build()
}

func newPineappleSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "pineapple").
		Type(discordgo.ChatApplicationCommand).
		Description("\U0001F34D")

	run := func(d *discord.DiscordApplicationCommand) {
		d.Respond("\U0001F34D")
	}

	return cmd.Execute(run).Build()
}

func newInfoSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "info").
		Type(discordgo.ChatApplicationCommand).
		Description("Get information about the bot")

	run := func(d *discord.DiscordApplicationCommand) {
		embed := builders.NewEmbedBuilder().
			WithTitle("Info").
			WithOkColor().
			AddField("Golang version", runtime.Version(), false).
			AddField("Running since", fmt.Sprintf("<t:%v:R>", m.startTime.Unix()), false).
			AddField("Total guilds", fmt.Sprintf("%v", d.Discord.GuildCount()), false)
		d.RespondEmbed(embed.Build())
	}

	return cmd.Execute(run).Build()
}

func newHelpSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "help").
		Type(discordgo.ChatApplicationCommand).
		Description("Get help on how to use the bot")

	run := func(d *discord.DiscordApplicationCommand) {
		text := strings.Builder{}
		text.WriteString("Commands for managing ban appeals:\n\n")
		text.WriteString("`/invite get` - reuse a stale single-use invite, or make a new one\n")
		text.WriteString("`/invite new` - always make a new single-use invite\n")
		text.WriteString("`/invites` - list the server's active invites\n")
		text.WriteString("`/notes get` - show the appeal notes for a user\n")
		text.WriteString("`/notes add` - attach a new note to a user\n")
		text.WriteString("`/appeals list` - list users with an appeal role\n")
		text.WriteString("`/appeals info` - show details for a single appeal\n")
		text.WriteString("\n")
		text.WriteString("To view the current settings, use the `/settings view` command\n")
		text.WriteString("To set the invite channel or modlog channels, use the `/settings set` command\n")
		text.WriteString("To manage appeal roles, use `/settings addrole` and `/settings removerole`\n")

		embed := builders.NewEmbedBuilder().
			WithTitle("Help").
			WithOkColor().
			WithDescription(text.String())
		d.RespondEmbed(embed.Build())
	}

	return cmd.Execute(run).Build()
}

func newInvitesSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "invites").
		Type(discordgo.ChatApplicationCommand).
		Description("List the server's active invites").
		NoDM().
		Permissions(discordgo.PermissionManageChannels)

	run := func(d *discord.DiscordApplicationCommand) {
		invites, err := d.Sess.Real().GuildInvites(d.GuildID())
		if err != nil {
			d.Respond("Failed to fetch invites")
			return
		}

		sort.Slice(invites, func(i, j int) bool {
			return invites[i].CreatedAt.Before(invites[j].CreatedAt)
		})

		lines := make([]string, 0, len(invites))
		for _, inv := range invites {
			lines = append(lines, inviteLine(inv))
		}

		embed := builders.NewEmbedBuilder().
			WithTitle("Active Invites").
			WithOkColor().
			WithDescription(joinLimited(lines, 3900))
		if len(lines) == 0 {
			embed.WithDescription("No active invites")
		}
		d.RespondEmbed(embed.Build())
	}

	return cmd.Execute(run).Build()
}

func newInviteSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "invite").
		Type(discordgo.ChatApplicationCommand).
		Description("Create a single-use, never-expiring invite for the appeals channel").
		NoDM().
		Permissions(discordgo.PermissionManageChannels | discordgo.PermissionCreateInstantInvite).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "get",
			Description: "Reuse the oldest stale invite if one exists, otherwise create a new one",
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "new",
			Description: "Force a new invite; avoid using this regularly so stale invites do not stack up",
		})

	run := func(d *discord.DiscordApplicationCommand) {
		s := d.Sess.Real()
		_, forceNew := d.Options("new")

		var invite *discordgo.Invite
		usingStale := false

		if !forceNew {
			if invites, err := s.GuildInvites(d.GuildID()); err == nil {
				if stale := StaleInvites(invites, time.Now().UTC()); len(stale) > 0 {
					invite = stale[0]
					usingStale = true
				}
			}
		}

		if invite == nil {
			var err error
			invite, err = m.createAppealInvite(s, d.GuildID())
			if err != nil {
				d.Respond("No invite channel is set, use `/settings set` first")
				return
			}
		}

		title := "Ban Appeals Invite"
		if usingStale {
			title += " (using \"stale\" invite)"
		}

		embed := builders.NewEmbedBuilder().
			WithTitle(title).
			WithOkColor().
			WithDescription("This invite link will expire after one use\n\n" + InviteURL(invite.Code))

		if usingStale {
			embed.AddField("NOTE", "This invite was created from the oldest \"stale\" invite (a single-use invite that has not been used in over 24 hours)", false)
		}

		d.RespondEmbed(embed.Build())
	}

	return cmd.Execute(run).Build()
}

func (m *module) createAppealInvite(s *discordgo.Session, gid string) (*discordgo.Invite, error) {
	gc, err := m.db.GetGuild(gid)
	if err != nil {
		return nil, err
	}
	if gc.InviteChannel == "" {
		return nil, errors.New("no invite channel set")
	}

	return s.ChannelInviteCreate(gc.InviteChannel, discordgo.Invite{
		MaxAge:  0,
		MaxUses: 1,
		Unique:  true,
	}, discordgo.WithAuditLogReason("ban appeal invite"))
}

func newNotesSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "notes").
		Type(discordgo.ChatApplicationCommand).
		Description("Manage appeal notes for a user").
		NoDM().
		Permissions(discordgo.PermissionManageRoles).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "get",
			Description: "Show the appeal notes for a user",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to show notes for",
					Required:    true,
				},
			},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "add",
			Description: "Attach a new note to a user",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to attach the note to",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "A message link, image link, or a link to a website",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "A label for the note; defaults to 'Link n'",
					Required:    false,
				},
			},
		})

	run := func(d *discord.DiscordApplicationCommand) {
		if _, ok := d.Options("get"); ok {
			m.notesGet(d)
		} else if _, ok := d.Options("add"); ok {
			m.notesAdd(d)
		}
	}

	return cmd.Execute(run).Build()
}

func (m *module) notesGet(d *discord.DiscordApplicationCommand) {
	userOpt, ok := d.Options("get:user")
	if !ok {
		d.Respond("User not found")
		return
	}
	user := userOpt.UserValue(d.Sess.Real())

	notes, err := m.db.GetNotes(d.GuildID(), user.ID)
	if err != nil {
		d.Respond("Failed to get notes")
		return
	}
	if len(notes) == 0 {
		d.Respond(fmt.Sprintf("%v has no appeal notes", user.String()))
		return
	}

	lines := make([]string, 0, len(notes))
	for i, n := range notes {
		lines = append(lines, noteLine(i, n))
	}

	embed := builders.NewEmbedBuilder().
		WithTitle("Ban Appeal Notes").
		WithOkColor().
		WithDescription(joinLimited(lines, 3900)).
		WithFooter(fmt.Sprintf("%v | User ID: %v", user.String(), user.ID), user.AvatarURL("256"))
	d.RespondEmbed(embed.Build())
}

func (m *module) notesAdd(d *discord.DiscordApplicationCommand) {
	userOpt, ok := d.Options("add:user")
	if !ok {
		d.Respond("User not found")
		return
	}
	user := userOpt.UserValue(d.Sess.Real())

	urlOpt, ok := d.Options("add:url")
	if !ok {
		d.Respond("URL not found")
		return
	}
	link := urlOpt.StringValue()
	if !ValidURL(link) {
		d.Respond(fmt.Sprintf("Invalid URL: %q", link))
		return
	}

	text := ""
	if textOpt, ok := d.Options("add:text"); ok {
		text = textOpt.StringValue()
	}
	if text == "" {
		// default to "Link n", where n is the new note count
		notes, err := m.db.GetNotes(d.GuildID(), user.ID)
		if err != nil {
			d.Respond("Failed to get notes")
			return
		}
		text = fmt.Sprintf("Link %v", len(notes)+1)
	}

	note := &Note{
		GuildID:     d.GuildID(),
		UserID:      user.ID,
		ModeratorID: d.AuthorID(),
		Link:        link,
		Text:        url.QueryEscape(text),
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.db.CreateNote(note); err != nil {
		d.Respond("Failed to create note")
		return
	}

	embed := builders.NewEmbedBuilder().
		WithTitle("Appeal Note Created").
		WithOkColor().
		WithDescription(fmt.Sprintf("[%v](%v)", text, link)).
		WithFooter(fmt.Sprintf("%v | User ID: %v", user.String(), user.ID), user.AvatarURL("256"))
	d.RespondEmbed(embed.Build())
}

func newAppealsSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "appeals").
		Type(discordgo.ChatApplicationCommand).
		Description("Show users that currently hold an appeal role").
		NoDM().
		Permissions(discordgo.PermissionManageRoles).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "list",
			Description: "List the pending appeals, oldest join first",
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "info",
			Description: "Show details for a single appeal",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "number",
					Description: "The appeal number from `/appeals list`",
					Required:    true,
				},
			},
		})

	run := func(d *discord.DiscordApplicationCommand) {
		pending, err := m.pendingAppeals(d.GuildID())
		if err != nil {
			if errors.Is(err, errNoAppealRoles) {
				d.Respond("No appeal roles set, use `/settings addrole` first")
				return
			}
			d.Respond("Failed to get appeals")
			return
		}

		if _, ok := d.Options("list"); ok {
			m.appealsList(d, pending)
		} else if _, ok := d.Options("info"); ok {
			m.appealsInfo(d, pending)
		}
	}

	return cmd.Execute(run).Build()
}

var errNoAppealRoles = errors.New("no appeal roles set")

// pendingAppeals returns the cached members holding at least one appeal
// role, sorted by join date ascending.
func (m *module) pendingAppeals(gid string) ([]*discordgo.Member, error) {
	roles, err := m.db.GetAppealRoles(gid)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, errNoAppealRoles
	}

	members, err := m.store.GetGuildMembers(gid)
	if err != nil {
		return nil, err
	}

	var pending []*discordgo.Member
	for _, mem := range members {
		for _, rid := range roles {
			if hasRole(mem, rid) {
				pending = append(pending, mem)
				break
			}
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].JoinedAt.Before(pending[j].JoinedAt)
	})
	return pending, nil
}

func (m *module) appealsList(d *discord.DiscordApplicationCommand, pending []*discordgo.Member) {
	if len(pending) == 0 {
		embed := builders.NewEmbedBuilder().
			WithTitle("No Appeals Found").
			WithDescription("There are no appeals! \U0001F9F9✨").
			WithColor(int(ColorGreen))
		d.RespondEmbed(embed.Build())
		return
	}

	now := time.Now().UTC()
	lines := make([]string, 0, len(pending))
	for i, mem := range pending {
		lines = append(lines, appealLine(i, mem, now))
	}

	embed := builders.NewEmbedBuilder().
		WithTitle("Pending Appeals").
		WithOkColor().
		WithDescription(joinLimited(lines, 3900)).
		WithFooter(fmt.Sprintf("%v members", len(pending)), "")
	d.RespondEmbed(embed.Build())
}

func (m *module) appealsInfo(d *discord.DiscordApplicationCommand, pending []*discordgo.Member) {
	numOpt, ok := d.Options("info:number")
	if !ok {
		d.Respond("Appeal number not found")
		return
	}

	num := int(numOpt.IntValue())
	if num < 1 || num > len(pending) {
		d.Respond(fmt.Sprintf("That appeal number is out of range, try a number between `1` and `%v` instead", len(pending)))
		return
	}
	mem := pending[num-1]

	embed := builders.NewEmbedBuilder().
		WithTitle("Appeal Info").
		WithOkColor().
		WithThumbnail(mem.User.AvatarURL("256")).
		AddField("User", mem.User.String(), true).
		AddField("Joined", TimeSince(mem.JoinedAt), true).
		WithFooter(fmt.Sprintf("User ID: %v", mem.User.ID), "")

	if ts, err := ParseSnowflake(mem.User.ID); err == nil {
		embed.AddField("Account created", fmt.Sprintf("<t:%v:R>", ts.Unix()), true)
	}

	if g, err := d.Discord.Guild(d.GuildID()); err == nil {
		if top := topRole(g, mem); top != nil {
			embed.AddField("Top role", top.Mention(), true).
				WithColor(top.Color)
		}
	}

	if notes, err := m.db.GetNotes(d.GuildID(), mem.User.ID); err == nil && len(notes) > 0 {
		embed.AddField("Note count", fmt.Sprint(len(notes)), true)
	}

	d.RespondEmbed(embed.Build())
}

func newSettingsSlash(m *module) *bot.ModuleApplicationCommand {
	logTypes := map[string]string{
		"invitechannel": "Invite Channel",
		"invitecreate":  "Invite Create Log",
		"invitedelete":  "Invite Delete Log",
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(logTypes))
	for k, v := range logTypes {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  v,
			Value: k,
		})
	}

	cmd := bot.NewModuleApplicationCommandBuilder(m, "settings").
		Type(discordgo.ChatApplicationCommand).
		Description("View or set the current settings").
		NoDM().
		Permissions(discordgo.PermissionAdministrator).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "view",
			Description: "View the current settings",
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set",
			Description: "Set a channel setting",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "type",
					Description: "The setting to change",
					Required:    true,
					Choices:     choices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "The channel to use",
					Required:    true,
				},
			},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "addrole",
			Description: "Add an appeal role",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "The role appealing users hold",
					Required:    true,
				},
			},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "removerole",
			Description: "Remove an appeal role",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "The role to remove",
					Required:    true,
				},
			},
		})

	run := func(d *discord.DiscordApplicationCommand) {
		gc, err := m.db.GetGuild(d.GuildID())
		if err != nil {
			d.Respond("Failed to get guild config")
			return
		}

		if _, ok := d.Options("view"); ok {
			roles, err := m.db.GetAppealRoles(d.GuildID())
			if err != nil {
				d.Respond("Failed to get appeal roles")
				return
			}
			d.RespondEmbed(generateSettingsEmbed(gc, roles))
			return
		} else if _, ok := d.Options("set"); ok {
			m.settingsSet(d, gc)
			return
		} else if _, ok := d.Options("addrole"); ok {
			roleOpt, ok := d.Options("addrole:role")
			if !ok {
				d.Respond("Role not found")
				return
			}
			role := roleOpt.RoleValue(d.Sess.Real(), d.GuildID())
			if err := m.db.AddAppealRole(d.GuildID(), role.ID); err != nil {
				d.Respond("Failed to add appeal role, perhaps it is already added")
				return
			}
			d.Respond(fmt.Sprintf("Added appeal role %v", role.Mention()))
			return
		} else if _, ok := d.Options("removerole"); ok {
			roleOpt, ok := d.Options("removerole:role")
			if !ok {
				d.Respond("Role not found")
				return
			}
			role := roleOpt.RoleValue(d.Sess.Real(), d.GuildID())
			if err := m.db.RemoveAppealRole(d.GuildID(), role.ID); err != nil {
				d.Respond("Failed to remove appeal role, perhaps it was never added")
				return
			}
			d.Respond(fmt.Sprintf("Removed appeal role %v", role.Mention()))
			return
		}
	}

	return cmd.Execute(run).Build()
}

func (m *module) settingsSet(d *discord.DiscordApplicationCommand, gc *Guild) {
	setting, ok := d.Options("set:type")
	if !ok {
		d.Respond("Setting type not found")
		return
	}

	chOpt, ok := d.Options("set:channel")
	if !ok {
		d.Respond("Channel not found")
		return
	}
	ch := chOpt.ChannelValue(d.Sess.Real())
	if ch == nil {
		d.Respond("Channel not found")
		return
	}

	switch setting.StringValue() {
	case "invitechannel":
		gc.InviteChannel = ch.ID
	case "invitecreate":
		gc.InviteCreateLog = ch.ID
	case "invitedelete":
		gc.InviteDeleteLog = ch.ID
	}

	if err := m.db.UpdateGuild(d.GuildID(), gc); err != nil {
		d.Respond("Failed to update server config")
		return
	}

	roles, _ := m.db.GetAppealRoles(d.GuildID())
	embed := generateSettingsEmbed(gc, roles)
	embed.Title = "Updated settings"

	resp := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	}

	d.RespondComplex(resp, discordgo.InteractionResponseChannelMessageWithSource)
}

func generateSettingsEmbed(gc *Guild, appealRoles []string) *discordgo.MessageEmbed {
	roleStr := "None"
	if len(appealRoles) > 0 {
		var mentions []string
		for _, rid := range appealRoles {
			mentions = append(mentions, fmt.Sprintf("<@&%v>", rid))
		}
		roleStr = strings.Join(mentions, ", ")
	}

	embed := builders.NewEmbedBuilder().
		WithTitle("Settings").
		WithOkColor().
		AddField("Invite channel", channelString(gc.InviteChannel), true).
		AddField("Invite create log", channelString(gc.InviteCreateLog), true).
		AddField("Invite delete log", channelString(gc.InviteDeleteLog), true).
		AddField("Appeal roles", roleStr, false)

	return embed.Build()
}

func channelString(cid string) string {
	if cid == "" {
		return "None"
	}
	return fmt.Sprintf("<#%v>", cid)
}

func inviteLine(inv *discordgo.Invite) string {
	inviter := "unknown"
	if inv.Inviter != nil {
		inviter = inv.Inviter.Mention()
	}
	uses := maxUsesString(inv.MaxUses)
	return fmt.Sprintf("%v - %v - Used %v/%v times", InviteURL(inv.Code), inviter, inv.Uses, uses)
}

func noteLine(i int, n *Note) string {
	text, err := url.QueryUnescape(n.Text)
	if err != nil {
		text = n.Text
	}
	return fmt.Sprintf("%v) [%v](%v)", i+1, text, n.Link)
}

func appealLine(i int, mem *discordgo.Member, now time.Time) string {
	return fmt.Sprintf("%v) `%v` - Joined %v", i+1, mem.User.String(), timeSince(mem.JoinedAt, now))
}

// joinLimited joins lines with newlines but stops before the total passes
// maxLen, noting how many lines were dropped.
func joinLimited(lines []string, maxLen int) string {
	text := strings.Builder{}
	for i, line := range lines {
		if text.Len()+len(line)+1 > maxLen {
			text.WriteString(fmt.Sprintf("\n... and %v more", len(lines)-i))
			break
		}
		if i > 0 {
			text.WriteString("\n")
		}
		text.WriteString(line)
	}
	return text.String()
}
