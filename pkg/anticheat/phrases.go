package anticheat

import (
	"regexp"
	"sync"

	"github.com/tryfairplay/arbiter/pkg/game"
)

// Leak phrases are role-incompatible statements: things only an insider
// would say. All patterns are compiled once at first use and matched
// against normalized (lowercased, accent-stripped) chat text.

// PhraseGroup names which hidden faction a phrase betrays knowledge of.
type PhraseGroup string

const (
	GroupMafia    PhraseGroup = "mafia"
	GroupImpostor PhraseGroup = "impostor"
)

// LeakPhrase holds a compiled pattern with metadata.
type LeakPhrase struct {
	Name     string
	Regex    *regexp.Regexp
	Group    PhraseGroup
	Severity float64 // confidence contribution, 0 to 1
}

type phraseRegistry struct {
	byGroup map[PhraseGroup][]*LeakPhrase
}

var (
	phrases     *phraseRegistry
	phrasesOnce sync.Once
)

func leakPhrases() *phraseRegistry {
	phrasesOnce.Do(func() {
		phrases = newPhraseRegistry()
	})
	return phrases
}

func newPhraseRegistry() *phraseRegistry {
	r := &phraseRegistry{byGroup: make(map[PhraseGroup][]*LeakPhrase)}

	r.register("team_kill_plan", `\b(our|the)\s+team\s+(should|must|will)\s+(kill|eliminate|take\s+out)\b`, GroupMafia, 0.9)
	r.register("fellow_mafia", `\b(fellow|us|we)\s+(mafia|wolves)\b`, GroupMafia, 0.95)
	r.register("mafia_tonight", `\b(kill|hit|take\s+out)\s+\w+\s+tonight\b`, GroupMafia, 0.8)
	r.register("dont_vote_partner", `\bdon'?t\s+vote\s+(for\s+)?(my|our)\s+(partner|teammate)\b`, GroupMafia, 0.85)
	r.register("protect_our_leader", `\bprotect\s+our\s+leader\b`, GroupMafia, 0.7)

	r.register("fellow_impostor", `\b(fellow|us|we)\s+impostors?\b`, GroupImpostor, 0.95)
	r.register("fake_tasks_plan", `\b(fake|faking)\s+(my|the|your)\s+tasks?\b`, GroupImpostor, 0.8)
	r.register("sabotage_plan", `\b(let'?s|we\s+should)\s+sabotage\b`, GroupImpostor, 0.7)
	r.register("vent_reference", `\b(meet|wait)\s+(me\s+)?in\s+the\s+vent\b`, GroupImpostor, 0.8)
	return r
}

func (r *phraseRegistry) register(name, pattern string, g PhraseGroup, severity float64) {
	p := &LeakPhrase{
		Name:     name,
		Regex:    regexp.MustCompile(pattern),
		Group:    g,
		Severity: severity,
	}
	r.byGroup[g] = append(r.byGroup[g], p)
}

// incompatible returns the phrase groups a player of the given role has
// no business echoing. Insiders quoting their own faction's language is
// suspicious to humans, but not a knowledge leak.
func incompatibleGroups(role game.Role) []PhraseGroup {
	switch {
	case role.IsMafia():
		return []PhraseGroup{GroupImpostor}
	case role == game.RoleImpostor:
		return []PhraseGroup{GroupMafia}
	default:
		return []PhraseGroup{GroupMafia, GroupImpostor}
	}
}

// match scans normalized text against every phrase in the given groups
// and returns the hits.
func (r *phraseRegistry) match(text string, groups []PhraseGroup) []*LeakPhrase {
	var hits []*LeakPhrase
	for _, g := range groups {
		for _, p := range r.byGroup[g] {
			if p.Regex.MatchString(text) {
				hits = append(hits, p)
			}
		}
	}
	return hits
}
