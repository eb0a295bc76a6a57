package agent

import "testing"

func TestCheckGuardrailsMatches(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"qual o seu CPF?", "cpf"},
		{"me passa o rg", "rg"},
		{"preciso do RG.", "rg"},
		{"qual sua senha do app?", "senha"},
		{"manda o número do cartão de crédito", "cartão de crédito"},
		{"seus dados bancários por favor", "dados bancários"},
	}
	for _, tc := range cases {
		if got := CheckGuardrails(tc.text); got != tc.want {
			t.Fatalf("CheckGuardrails(%q):\nwant: %q\ngot:  %q", tc.text, tc.want, got)
		}
	}
}

func TestCheckGuardrailsSafeText(t *testing.T) {
	// Substrings of safe words must not trigger: "rg" inside "energia" and
	// inside accented words like "órgão".
	cases := []string{
		"quero economizar na conta de energia",
		"qual órgão regula o setor elétrico?",
		"a energia solar compensa?",
		"pago R$ 850 por mês",
		"senhora, bom dia",
	}
	for _, text := range cases {
		if got := CheckGuardrails(text); got != "" {
			t.Fatalf("CheckGuardrails(%q) fired on safe text: %q", text, got)
		}
	}
}
