// Package webhook receives gateway callbacks, deduplicates them, and hands
// normalized inbound messages to the orchestrator.
package webhook

import (
	"solar_sdr_backend/internal/agent"
	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/internal/media"
	"solar_sdr_backend/platform/phone"
)

// Event is the gateway's webhook envelope.
type Event struct {
	Event    string    `json:"event"`
	Instance string    `json:"instance"`
	Data     EventData `json:"data"`
}

// EventData is the payload of a messages.upsert event. Other event kinds
// reuse the same shape with most fields empty.
type EventData struct {
	Key         MessageKey      `json:"key"`
	PushName    string          `json:"pushName"`
	MessageType string          `json:"messageType"`
	Message     *MessageContent `json:"message"`
	Base64      string          `json:"base64"`
	State       string          `json:"state"`
}

// MessageKey identifies a message within the gateway.
type MessageKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

// MessageContent mirrors the WhatsApp message union. Exactly one branch is
// set per message.
type MessageContent struct {
	Conversation        string           `json:"conversation"`
	ExtendedTextMessage *ExtendedText    `json:"extendedTextMessage"`
	ImageMessage        *MediaMessage    `json:"imageMessage"`
	AudioMessage        *MediaMessage    `json:"audioMessage"`
	DocumentMessage     *DocumentMessage `json:"documentMessage"`
	ReactionMessage     *Reaction        `json:"reactionMessage"`
}

// ExtendedText is a text message with metadata (links, quotes).
type ExtendedText struct {
	Text string `json:"text"`
}

// MediaMessage covers image and audio branches.
type MediaMessage struct {
	URL      string `json:"url"`
	MimeType string `json:"mimetype"`
	Caption  string `json:"caption"`
	Seconds  int    `json:"seconds"`
}

// DocumentMessage is an attached file.
type DocumentMessage struct {
	URL      string `json:"url"`
	MimeType string `json:"mimetype"`
	FileName string `json:"fileName"`
	Caption  string `json:"caption"`
}

// Reaction is an emoji reaction to an earlier message.
type Reaction struct {
	Text string `json:"text"`
}

// normalize converts a messages.upsert payload into the orchestrator's
// inbound shape. It returns nil for payloads that carry nothing actionable
// (echoes, reactions, unsupported branches).
func normalize(data *EventData) *agent.Inbound {
	if data.Key.FromMe {
		return nil
	}
	normalized := phone.FromJID(data.Key.RemoteJID)
	if normalized == "" {
		return nil
	}
	if data.Message == nil {
		return nil
	}

	in := &agent.Inbound{
		Phone:            normalized,
		PushName:         data.PushName,
		GatewayMessageID: data.Key.ID,
		ContentType:      domain.ContentText,
	}

	msg := data.Message
	switch {
	case msg.Conversation != "":
		in.Text = msg.Conversation

	case msg.ExtendedTextMessage != nil:
		in.Text = msg.ExtendedTextMessage.Text

	case msg.ImageMessage != nil:
		in.ContentType = domain.ContentImage
		in.Text = msg.ImageMessage.Caption
		in.Media = mediaRef(data, msg.ImageMessage.URL, "")

	case msg.AudioMessage != nil:
		in.ContentType = domain.ContentAudio
		in.Media = mediaRef(data, msg.AudioMessage.URL, "")

	case msg.DocumentMessage != nil:
		in.ContentType = domain.ContentDocument
		in.Text = msg.DocumentMessage.Caption
		in.Media = mediaRef(data, msg.DocumentMessage.URL, msg.DocumentMessage.FileName)

	case msg.ReactionMessage != nil:
		// Reactions carry no qualification signal.
		return nil

	default:
		return nil
	}

	if in.Text == "" && in.Media == nil {
		return nil
	}
	return in
}

func mediaRef(data *EventData, url, fileName string) *media.Ref {
	return &media.Ref{
		Base64:    data.Base64,
		URL:       url,
		MessageID: data.Key.ID,
		FileName:  fileName,
	}
}
