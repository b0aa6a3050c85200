package bot

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

func command(userID, name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
			User: &discordgo.User{ID: userID, Username: "TestUser"},
		},
	}
}

func userIDOption(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "user_id",
		Type:  discordgo.ApplicationCommandOptionString,
		Value: id,
	}
}

func TestSlashCommands_Registered(t *testing.T) {
	for _, cmd := range SlashCommands {
		_, ok := SlashCommandHandlers[cmd.Name]
		assert.True(t, ok, "no handler for /%s", cmd.Name)
	}
}

func TestStartCommand_ClearsHistoryOnly(t *testing.T) {
	h, e := newTestHandler(t)
	s := &MockSession{}
	ctx := context.Background()

	e.Handle(ctx, "u1", "Привет")
	e.Handle(ctx, "u1", "секс")

	h.HandleInteraction(s, command("u1", "start"))

	require.Len(t, s.Responses, 1)
	assert.Equal(t, StartReply, s.Responses[0].Data.Content)

	sess, _ := e.sessions.Get(ctx, "u1")
	assert.Empty(t, sess.History)
	assert.Equal(t, 1, sess.WarningCount)
}

func TestHelpCommand(t *testing.T) {
	h, _ := newTestHandler(t)
	s := &MockSession{}

	h.HandleInteraction(s, command("u1", "help"))

	require.Len(t, s.Responses, 1)
	assert.Contains(t, s.Responses[0].Data.Content, "/start")
	assert.Contains(t, s.Responses[0].Data.Content, "Ты ведь монстр?")
}

func TestBanCommand(t *testing.T) {
	h, e := newTestHandler(t)
	s := &MockSession{}

	h.HandleInteraction(s, command("u1", "ban", userIDOption("victim")))
	assert.False(t, e.bans.IsBanned("victim"), "only the admin may ban")
	assert.Equal(t, NotAdminReply, s.Responses[0].Data.Content)

	h.HandleInteraction(s, command("admin", "ban", userIDOption(" ")))
	assert.Equal(t, BanUsageReply, s.Responses[1].Data.Content)

	h.HandleInteraction(s, command("admin", "ban", userIDOption("victim")))
	assert.True(t, e.bans.IsBanned("victim"))
	assert.Equal(t, "Пользователь victim забанен", s.Responses[2].Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, s.Responses[2].Data.Flags)

	assert.Equal(t, OutcomeIgnored, e.Handle(context.Background(), "victim", "Привет").Outcome)
}

func TestHandleInteraction_IgnoresOtherTypes(t *testing.T) {
	h, _ := newTestHandler(t)
	s := &MockSession{}

	i := command("u1", "help")
	i.Type = discordgo.InteractionPing
	h.HandleInteraction(s, i)

	h.HandleInteraction(s, command("u1", "unknown"))
	assert.Empty(t, s.Responses)
}

func TestInvoker(t *testing.T) {
	guild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "1", Username: "pilot", GlobalName: "Hiro"}},
	}}
	u, err := invoker(guild)
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)
	assert.Equal(t, "Hiro", displayName(u))

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "2", Username: "ichigo"},
	}}
	u, err = invoker(dm)
	require.NoError(t, err)
	assert.Equal(t, "ichigo", displayName(u))

	_, err = invoker(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}})
	assert.ErrorIs(t, err, errNoInvoker)
}
