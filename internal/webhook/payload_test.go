package webhook

import (
	"testing"

	"solar_sdr_backend/internal/leads/domain"
)

const testJID = "5581999887766@s.whatsapp.net"

func TestNormalizeConversationText(t *testing.T) {
	data := &EventData{
		Key:      MessageKey{RemoteJID: testJID, ID: "MSG-1"},
		PushName: "Ana",
		Message:  &MessageContent{Conversation: "oi, quero saber mais"},
	}

	in := normalize(data)
	if in == nil {
		t.Fatal("expected inbound message")
	}
	if in.Phone != "+5581999887766" {
		t.Fatalf("unexpected phone: %q", in.Phone)
	}
	if in.Text != "oi, quero saber mais" {
		t.Fatalf("unexpected text: %q", in.Text)
	}
	if in.ContentType != domain.ContentText {
		t.Fatalf("unexpected content type: %q", in.ContentType)
	}
	if in.GatewayMessageID != "MSG-1" {
		t.Fatalf("unexpected gateway id: %q", in.GatewayMessageID)
	}
	if in.Media != nil {
		t.Fatal("text message must carry no media ref")
	}
}

func TestNormalizeExtendedText(t *testing.T) {
	data := &EventData{
		Key:     MessageKey{RemoteJID: testJID, ID: "MSG-2"},
		Message: &MessageContent{ExtendedTextMessage: &ExtendedText{Text: "segue o link"}},
	}
	in := normalize(data)
	if in == nil || in.Text != "segue o link" {
		t.Fatalf("unexpected result: %+v", in)
	}
}

func TestNormalizeImageWithCaption(t *testing.T) {
	data := &EventData{
		Key:    MessageKey{RemoteJID: testJID, ID: "MSG-3"},
		Base64: "aGVsbG8=",
		Message: &MessageContent{
			ImageMessage: &MediaMessage{URL: "https://cdn.example/img", Caption: "minha conta"},
		},
	}

	in := normalize(data)
	if in == nil {
		t.Fatal("expected inbound message")
	}
	if in.ContentType != domain.ContentImage {
		t.Fatalf("unexpected content type: %q", in.ContentType)
	}
	if in.Text != "minha conta" {
		t.Fatalf("caption lost: %q", in.Text)
	}
	if in.Media == nil || in.Media.Base64 != "aGVsbG8=" || in.Media.URL != "https://cdn.example/img" {
		t.Fatalf("unexpected media ref: %+v", in.Media)
	}
	if in.Media.MessageID != "MSG-3" {
		t.Fatalf("media ref missing message id: %+v", in.Media)
	}
}

func TestNormalizeDocumentKeepsFileName(t *testing.T) {
	data := &EventData{
		Key: MessageKey{RemoteJID: testJID, ID: "MSG-4"},
		Message: &MessageContent{
			DocumentMessage: &DocumentMessage{URL: "https://cdn.example/doc", FileName: "fatura.pdf"},
		},
	}
	in := normalize(data)
	if in == nil || in.ContentType != domain.ContentDocument {
		t.Fatalf("unexpected result: %+v", in)
	}
	if in.Media == nil || in.Media.FileName != "fatura.pdf" {
		t.Fatalf("file name lost: %+v", in.Media)
	}
}

func TestNormalizeSkips(t *testing.T) {
	// Our own echoes.
	if in := normalize(&EventData{
		Key:     MessageKey{RemoteJID: testJID, FromMe: true},
		Message: &MessageContent{Conversation: "resposta da Sol"},
	}); in != nil {
		t.Fatalf("echo not skipped: %+v", in)
	}

	// Reactions.
	if in := normalize(&EventData{
		Key:     MessageKey{RemoteJID: testJID, ID: "MSG-5"},
		Message: &MessageContent{ReactionMessage: &Reaction{Text: "👍"}},
	}); in != nil {
		t.Fatalf("reaction not skipped: %+v", in)
	}

	// Missing message body.
	if in := normalize(&EventData{Key: MessageKey{RemoteJID: testJID}}); in != nil {
		t.Fatalf("empty payload not skipped: %+v", in)
	}

	// Unusable JID.
	if in := normalize(&EventData{
		Key:     MessageKey{RemoteJID: "@broadcast"},
		Message: &MessageContent{Conversation: "oi"},
	}); in != nil {
		t.Fatalf("broadcast not skipped: %+v", in)
	}
}
