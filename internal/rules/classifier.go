// Package rules turns free-text player actions into resolved outcomes.
package rules

import (
	"strings"
	"unicode"

	"github.com/tatianab/dungeon-master/internal/models"
)

type keywordRule struct {
	intent models.Intent
	words  []string
}

// Rules are tried in order; the first rule with a matching word wins.
var keywordRules = []keywordRule{
	{models.IntentAttack, []string{"attack", "hit", "strike", "swing", "stab", "slash", "punch", "shoot", "fight", "kill"}},
	{models.IntentCastSpell, []string{"cast", "spell", "magic", "fireball", "conjure", "enchant", "incant"}},
	{models.IntentDialogue, []string{"talk", "say", "ask", "negotiate", "speak", "persuade", "convince", "greet", "chat", "bargain"}},
	{models.IntentInvestigate, []string{"check", "search", "look", "examine", "investigate", "inspect", "study", "read"}},
	{models.IntentMove, []string{"move", "go", "goes", "walk", "run", "travel", "head", "enter", "leave", "approach"}},
	{models.IntentDefend, []string{"defend", "block", "shield", "parry", "brace", "guard"}},
	{models.IntentHelp, []string{"help", "heal", "aid", "assist", "bandage", "tend"}},
	{models.IntentDodge, []string{"dodge", "evade", "duck", "sidestep"}},
	{models.IntentCounter, []string{"counter", "riposte", "retaliate"}},
	{models.IntentInteract, []string{"take", "grab", "pick", "open", "use", "pull", "push", "touch", "loot", "drink", "equip"}},
	{models.IntentSkillCheck, []string{"climb", "jump", "swim", "sneak", "hide", "lockpick", "balance", "tumble", "track"}},
}

var suffixes = []string{"ing", "ed", "es", "s"}

// Classify maps an action description to an intent. It never fails:
// text with no known keyword is IntentUnknown.
func Classify(description string) models.Intent {
	words := Words(description)
	for _, rule := range keywordRules {
		for _, w := range words {
			if matchesAny(w, rule.words) {
				return rule.intent
			}
		}
	}
	return models.IntentUnknown
}

// Words lowercases text and splits it on anything that is not a letter.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func matchesAny(word string, keywords []string) bool {
	forms := stems(word)
	for _, k := range keywords {
		for _, f := range forms {
			if f == k {
				return true
			}
		}
	}
	return false
}

// stems returns word and the bases it may inflect: "running" gives "runn"
// and "run", "dodging" gives "dodg" and "dodge".
func stems(word string) []string {
	out := []string{word}
	for _, suf := range suffixes {
		base, ok := strings.CutSuffix(word, suf)
		if !ok || base == "" {
			continue
		}
		out = append(out, base)
		if suf != "ing" && suf != "ed" {
			continue
		}
		if n := len(base); n >= 2 && base[n-1] == base[n-2] && !isVowel(base[n-1]) {
			out = append(out, base[:n-1])
		}
		out = append(out, base+"e")
	}
	return out
}

func isVowel(b byte) bool {
	return strings.IndexByte("aeiou", b) >= 0
}
