package bot

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

var errNoInvoker = errors.New("interaction has no invoking user")

// invoker returns whoever ran a slash command. Guild interactions carry the
// user on Member, DM interactions on User.
func invoker(i *discordgo.InteractionCreate) (*discordgo.User, error) {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User, nil
	case i.User != nil:
		return i.User, nil
	}
	return nil, errNoInvoker
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
