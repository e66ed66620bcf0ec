package game

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"trivia-arena/internal/domain"
)

// Verdict is the outcome of evaluating one player's submission for one question.
// The canonical answer is included so the reveal can reference it.
type Verdict struct {
	Correct       bool
	Answered      bool
	CorrectIndex  *int
	CorrectAnswer string
}

// Evaluate resolves correctness per round-type rules. A nil submission is
// always incorrect; it never matches any index or canonical text.
func Evaluate(q domain.Question, sub *domain.AnswerSubmission) Verdict {
	switch p := q.Payload.(type) {
	case domain.ChoicePayload:
		idx := p.CorrectIndex
		v := Verdict{CorrectIndex: &idx}
		if sub != nil {
			v.Answered = true
			v.Correct = sub.Response.Index != nil && *sub.Response.Index == p.CorrectIndex
		}
		return v
	case domain.PicturePayload:
		v := Verdict{CorrectAnswer: p.Answer}
		if sub != nil {
			v.Answered = true
			got := NormalizeText(sub.Response.Text)
			v.Correct = got != "" && got == NormalizeText(p.Answer)
		}
		return v
	case domain.CodePayload:
		v := Verdict{CorrectAnswer: p.Answer}
		if sub != nil {
			v.Answered = true
			got := NormalizeCode(sub.Response.Text)
			v.Correct = got != "" && got == NormalizeCode(p.Answer)
		}
		return v
	}
	return Verdict{}
}

// stripMarks removes diacritics by decomposing and dropping combining marks.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeText is the round 2 comparison form: Unicode-normalize, strip
// diacritics, keep only [A-Za-z0-9 ], collapse whitespace, trim, uppercase.
// It is idempotent.
func NormalizeText(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	pendingSpace := false
	for _, r := range stripped {
		switch {
		case r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return strings.ToUpper(b.String())
}

// NormalizeCode is the round 3 comparison form: uppercase with all whitespace
// removed. Symbols survive because code answers may hinge on punctuation that
// the round 2 filter would destroy.
func NormalizeCode(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
