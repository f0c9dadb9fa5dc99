package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Discord adapts a discordgo session to Messenger and History.
type Discord struct {
	session *discordgo.Session
}

// NewDiscord creates a bot session for token. The session is not opened.
func NewDiscord(token string) (*Discord, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent
	return &Discord{session: s}, nil
}

// Open connects to the gateway.
func (d *Discord) Open() error {
	return d.session.Open()
}

// Close disconnects from the gateway.
func (d *Discord) Close() error {
	return d.session.Close()
}

// OnMessage registers fn for every guild message not sent by a bot.
func (d *Discord) OnMessage(fn func(*Message)) {
	d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.GuildID == "" {
			return
		}
		msg, err := d.convert(m.Message)
		if err != nil {
			return
		}
		fn(msg)
	})
}

// OnGuildJoin registers fn for every guild the bot joins or becomes
// available in.
func (d *Discord) OnGuildJoin(fn func(guildID int64)) {
	d.session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		id, err := parseID(g.ID)
		if err != nil {
			return
		}
		fn(id)
	})
}

// Channel resolves a channel from the session state cache.
func (d *Discord) Channel(id int64) (*Channel, bool) {
	cid := formatID(id)
	c, err := d.session.State.Channel(cid)
	if err != nil || c == nil {
		return nil, false
	}
	gid, _ := parseID(c.GuildID)
	ch := &Channel{
		ID:      id,
		GuildID: gid,
		Name:    c.Name,
		Text:    c.Type == discordgo.ChannelTypeGuildText,
	}
	if d.session.State.User != nil {
		perms, err := d.session.State.UserChannelPermissions(d.session.State.User.ID, cid)
		ch.CanSend = err == nil && perms&discordgo.PermissionSendMessages != 0
	}
	return ch, true
}

func (d *Discord) Send(ctx context.Context, channelID int64, text string) error {
	_, err := d.session.ChannelMessageSend(formatID(channelID), text, discordgo.WithContext(ctx))
	return classify(err)
}

func (d *Discord) Reply(ctx context.Context, msg *Message, text string) error {
	ref := &discordgo.MessageReference{
		MessageID: formatID(msg.ID),
		ChannelID: formatID(msg.ChannelID),
		GuildID:   formatID(msg.GuildID),
	}
	_, err := d.session.ChannelMessageSendReply(formatID(msg.ChannelID), text, ref, discordgo.WithContext(ctx))
	return classify(err)
}

func (d *Discord) Delete(ctx context.Context, msg *Message) error {
	err := d.session.ChannelMessageDelete(formatID(msg.ChannelID), formatID(msg.ID), discordgo.WithContext(ctx))
	return classify(err)
}

// Previous fetches the single message before msg.
func (d *Discord) Previous(ctx context.Context, msg *Message) (*Message, error) {
	msgs, err := d.session.ChannelMessages(formatID(msg.ChannelID), 1, formatID(msg.ID), "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	if msgs[0].GuildID == "" {
		msgs[0].GuildID = formatID(msg.GuildID)
	}
	return d.convert(msgs[0])
}

func (d *Discord) convert(m *discordgo.Message) (*Message, error) {
	id, err := parseID(m.ID)
	if err != nil {
		return nil, err
	}
	cid, err := parseID(m.ChannelID)
	if err != nil {
		return nil, err
	}
	msg := &Message{ID: id, ChannelID: cid, Content: m.Content}
	if m.GuildID != "" {
		if msg.GuildID, err = parseID(m.GuildID); err != nil {
			return nil, err
		}
		if g, err := d.session.State.Guild(m.GuildID); err == nil {
			msg.GuildName = g.Name
		}
	}
	if c, err := d.session.State.Channel(m.ChannelID); err == nil {
		msg.ChannelName = c.Name
	}
	if m.Author != nil {
		aid, err := parseID(m.Author.ID)
		if err != nil {
			return nil, err
		}
		msg.Author = User{
			ID:            aid,
			Name:          m.Author.Username,
			Discriminator: m.Author.Discriminator,
			Bot:           m.Author.Bot,
		}
	}
	return msg, nil
}

// classify maps REST failures onto the package's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil {
			switch rest.Message.Code {
			case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
				return fmt.Errorf("%w: %v", ErrPermission, err)
			case discordgo.ErrCodeUnknownMessage:
				return fmt.Errorf("%w: %v", ErrUnknownMessage, err)
			}
		}
		if rest.Response != nil && rest.Response.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %v", ErrPermission, err)
		}
	}
	return err
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
