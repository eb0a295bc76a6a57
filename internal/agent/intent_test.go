package agent

import (
	"strings"
	"testing"

	"solar_sdr_backend/internal/media"
)

func TestClassifyIntentMediaRoutesToBill(t *testing.T) {
	art := &media.Artifact{Kind: media.KindImage}
	if got := ClassifyIntent("segue a foto", art); got != IntentBill {
		t.Fatalf("image did not route to bill: %q", got)
	}

	art = &media.Artifact{Kind: media.KindDocument}
	if got := ClassifyIntent("", art); got != IntentBill {
		t.Fatalf("document did not route to bill: %q", got)
	}

	// Audio carries no bill signal by itself.
	art = &media.Artifact{Kind: media.KindAudio}
	if got := ClassifyIntent("quero agendar uma reunião", art); got != IntentCalendar {
		t.Fatalf("audio turn misrouted: %q", got)
	}
}

func TestClassifyIntentKeywords(t *testing.T) {
	cases := []struct {
		text string
		want Intent
	}{
		{"quero agendar uma reunião na quinta", IntentCalendar},
		{"me chama semana que vem, agora não consigo", IntentFollowUp},
		{"minha conta de luz veio alta, 450 kwh", IntentBill},
		{"já tenho desconto com outra empresa", IntentCompetitor},
		{"como funciona a instalação? tem fidelidade?", IntentKnowledge},
		{"oi, tudo bem?", IntentDirect},
	}
	for _, tc := range cases {
		if got := ClassifyIntent(tc.text, nil); got != tc.want {
			t.Fatalf("ClassifyIntent(%q):\nwant: %q\ngot:  %q", tc.text, tc.want, got)
		}
	}
}

func TestClassifyIntentLongQuestionLeansKnowledge(t *testing.T) {
	text := strings.Repeat("tenho uma dúvida sobre o modelo de assinatura e queria entender melhor. ", 3) +
		"isso muda alguma coisa na minha distribuidora? e se eu mudar de casa?"
	if got := ClassifyIntent(text, nil); got != IntentKnowledge {
		t.Fatalf("long question-dense message misrouted: %q", got)
	}
}
