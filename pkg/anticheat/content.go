package anticheat

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tryfairplay/arbiter/pkg/game"
)

// prematureMentionLead is how far ahead of an elimination a chat mention
// of the victim counts as foreknowledge, in seconds.
const prematureMentionLead = 60.0

// normalizeText lowercases and strips diacritics so phrase patterns and
// name mentions survive accented or stylized spelling.
func normalizeText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// detectKnowledgeLeakage scans the subject's chat for two tells: phrases
// incompatible with their assigned role, and naming a victim well before
// that victim is eliminated.
func detectKnowledgeLeakage(_ context.Context, dc *Context) Indicator {
	ind := Indicator{Type: IndicatorKnowledgeLeakage}

	groups := incompatibleGroups(dc.Role)
	reg := leakPhrases()

	var (
		best     float64
		evidence []string
	)

	for i, a := range dc.Log {
		if a.ActorID != dc.PlayerID || a.Type != game.ActionChat || a.Payload.Text == "" {
			continue
		}
		text := normalizeText(a.Payload.Text)

		for _, hit := range reg.match(text, groups) {
			if hit.Severity > best {
				best = hit.Severity
			}
			evidence = append(evidence, "phrase:"+hit.Name)
		}

		if victim := prematureMention(dc.Log, i, text); victim != "" {
			if best < 0.8 {
				best = 0.8
			}
			evidence = append(evidence, "premature_mention:"+victim)
		}
	}

	if len(evidence) == 0 {
		return ind
	}
	ind.Detected = true
	ind.Confidence = clamp01(best)
	ind.Evidence = map[string]any{"hits": evidence}
	return ind
}

// prematureMention reports a player named in chat who is then eliminated
// by a kill more than a minute later. Naming someone moments before they
// go down is table talk; naming the victim long in advance is not.
func prematureMention(log []game.Action, chatIdx int, text string) string {
	chat := log[chatIdx]
	for _, later := range log[chatIdx+1:] {
		if later.Type != game.ActionKill || later.Payload.TargetID == "" {
			continue
		}
		lead := later.Timestamp.Sub(chat.Timestamp).Seconds()
		if lead <= prematureMentionLead {
			continue
		}
		if containsName(text, later.Payload.TargetID) {
			return later.Payload.TargetID
		}
	}
	return ""
}

func containsName(text, name string) bool {
	name = normalizeText(name)
	if name == "" {
		return false
	}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if tok == name {
			return true
		}
	}
	return false
}
