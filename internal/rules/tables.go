package rules

import "github.com/tatianab/dungeon-master/internal/models"

// DefaultDC applies to intents missing from the difficulty table.
const DefaultDC = 10

var difficulty = map[models.Intent]int{
	models.IntentMove:        8,
	models.IntentInvestigate: 10,
	models.IntentDefend:      10,
	models.IntentDialogue:    11,
	models.IntentAttack:      12,
	models.IntentCastSpell:   13,
}

var abilities = map[models.Intent]models.Ability{
	models.IntentAttack:      models.Strength,
	models.IntentCastSpell:   models.Intelligence,
	models.IntentDialogue:    models.Charisma,
	models.IntentInvestigate: models.Wisdom,
	models.IntentMove:        models.Dexterity,
	models.IntentDefend:      models.Dexterity,
}

var baseDamage = map[models.Intent]int{
	models.IntentAttack:    6,
	models.IntentCastSpell: 12,
}

// DifficultyClass returns the DC a roll must meet for the intent.
func DifficultyClass(intent models.Intent) int {
	if dc, ok := difficulty[intent]; ok {
		return dc
	}
	return DefaultDC
}

// AbilityFor returns the ability that modifies rolls for the intent.
func AbilityFor(intent models.Intent, fallback models.Ability) models.Ability {
	if a, ok := abilities[intent]; ok {
		return a
	}
	return fallback
}

// DealsDamage reports whether a successful action of this intent hurts its target.
func DealsDamage(intent models.Intent) bool {
	_, ok := baseDamage[intent]
	return ok
}

// Damage returns the damage for a successful roll, or 0 when the intent
// cannot deal damage or the roll missed.
func Damage(intent models.Intent, total, dc int) int {
	base, ok := baseDamage[intent]
	if !ok || total < dc {
		return 0
	}
	return base + max(0, total-dc)
}
