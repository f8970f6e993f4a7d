package notifier

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) Notify(_ context.Context, change Change) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	message := FormatMessage(change)
	if message == "" {
		return nil
	}

	_, err := n.session.ChannelMessageSend(n.channelID, message)
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}

	return nil
}

func FormatMessage(change Change) string {
	reg := change.Registration
	eventName := reg.Event.Name
	if eventName == "" {
		eventName = reg.EventID
	}

	switch change.Kind {
	case KindEventCreated:
		return fmt.Sprintf("📅 **New Event**\n**Name:** %s\n**Date:** %s",
			change.Event.Name,
			change.Event.Date.Format("2006-01-02 15:04 MST"),
		)
	case KindRegistered:
		return fmt.Sprintf("📝 **New Registration**\n**Name:** %s\n**Event:** %s\n**Registration ID:** %s",
			reg.Name,
			eventName,
			reg.RegistrationID,
		)
	case KindAttended:
		return fmt.Sprintf("✅ **Checked In**\n**Name:** %s\n**Event:** %s\n**Registration ID:** %s\n**At:** %s",
			reg.Name,
			eventName,
			reg.RegistrationID,
			change.AttendedAt.Format("2006-01-02 15:04:05 MST"),
		)
	}
	return ""
}
