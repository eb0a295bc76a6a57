package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"+55 81 99988-7766", "+5581999887766"},
		{"(81) 99988-7766", "+5581999887766"},
		{"", ""},
		// Unparseable input passes through so operator lookups can still
		// echo what was typed.
		{"not a phone", "not a phone"},
	}
	for _, tc := range cases {
		if got := NormalizeE164(tc.input); got != tc.want {
			t.Fatalf("NormalizeE164(%q):\nwant: %q\ngot:  %q", tc.input, tc.want, got)
		}
	}
}

func TestFromJID(t *testing.T) {
	cases := []struct {
		jid  string
		want string
	}{
		{"5581999887766@s.whatsapp.net", "+5581999887766"},
		{"5581999887766", "+5581999887766"},
		{"status@broadcast", ""},
		{"@broadcast", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := FromJID(tc.jid); got != tc.want {
			t.Fatalf("FromJID(%q):\nwant: %q\ngot:  %q", tc.jid, tc.want, got)
		}
	}
}
