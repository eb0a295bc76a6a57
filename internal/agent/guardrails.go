package agent

import (
	"regexp"
)

// forbiddenTerms are information requests the agent must refuse before any
// model call: documents, credentials, and banking data.
var forbiddenTerms = []string{
	"cpf",
	"rg",
	"cnh",
	"senha",
	"cartão de crédito",
	"cartao de credito",
	"conta bancária",
	"conta bancaria",
	"código de segurança",
	"codigo de seguranca",
	"dados bancários",
	"dados bancarios",
}

// refusalReply is the canned safe response when a guardrail fires.
const refusalReply = "Por segurança, não trato de documentos pessoais ou dados bancários por aqui. Posso te ajudar com tudo sobre economia na sua conta de energia!"

var forbiddenRes = compileForbidden()

// compileForbidden builds one boundary-enforced pattern per term. Go's \b
// is ASCII-only, so the boundary class excludes all Unicode letters and
// digits explicitly: "energia" must not trigger the "rg" rule, and neither
// must accented words like "órgão".
func compileForbidden() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(forbiddenTerms))
	for _, term := range forbiddenTerms {
		pattern := `(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(term) + `(?:$|[^\p{L}\p{N}_])`
		res = append(res, regexp.MustCompile(pattern))
	}
	return res
}

// CheckGuardrails returns the matched forbidden term, or empty when the
// text is safe.
func CheckGuardrails(text string) string {
	for i, re := range forbiddenRes {
		if re.MatchString(text) {
			return forbiddenTerms[i]
		}
	}
	return ""
}
