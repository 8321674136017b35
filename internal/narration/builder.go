package narration

import (
	"context"
	"fmt"
	"strings"

	"github.com/tatianab/dungeon-master/internal/models"
)

// WorldBuilder runs the one-time setup stages of a session.
type WorldBuilder interface {
	PlanNarrative(ctx context.Context, setting models.Setting) (models.Narrative, error)
	BuildLore(ctx context.Context, setting models.Setting, narrative models.Narrative) ([]models.Region, error)
	InstantiateWorld(ctx context.Context, setting models.Setting, narrative models.Narrative, regions []models.Region) (models.World, error)
	CreatePlayer(ctx context.Context, setting models.Setting, world models.World, concept string, index int) (models.Player, error)
}

// PlanNarrative returns the stock adventure, flavoured by the setting hint.
func (p *Procedural) PlanNarrative(_ context.Context, setting models.Setting) (models.Narrative, error) {
	premise := "An ancient temple has surfaced from the marsh, and with it the whispers of a buried god."
	if hint := strings.TrimSpace(setting.Hint); hint != "" && !strings.EqualFold(hint, "random") {
		premise = fmt.Sprintf("%s Rumour ties it to %s.", premise, hint)
	}
	return models.Narrative{
		Title:   "The Lost Temple of Azurath",
		Premise: premise,
		Hook:    "The village elder begs for someone to find out what woke beneath the temple.",
		Themes:  []string{orDefault(setting.Theme, "Fantasy Exploration"), "forgotten faith"},
		Scenes:  []string{"The Hollow Village", "The Temple Gate", "The Sunken Nave", "The Crypt of Azurath"},
	}, nil
}

// BuildLore returns the regions of the Shadow Realm.
func (p *Procedural) BuildLore(_ context.Context, _ models.Setting, narrative models.Narrative) ([]models.Region, error) {
	return []models.Region{
		{
			Name:        "Ashen Vale",
			Description: "Grey fields where nothing grows taller than a child.",
			Factions:    []string{"Vale Wardens"},
			Landmarks:   []string{"Hollow Village"},
			Hook:        narrative.Hook,
		},
		{
			Name:        "Sunken Reach",
			Description: "A drowned lowland where the temple rose overnight.",
			Factions:    []string{"Cult of Azurath"},
			Landmarks:   []string{"Temple of Azurath"},
			Hook:        "Lights move in the temple after dusk.",
		},
	}, nil
}

// InstantiateWorld lays out four connected locations and their people.
func (p *Procedural) InstantiateWorld(_ context.Context, _ models.Setting, _ models.Narrative, regions []models.Region) (models.World, error) {
	vale, reach := "Ashen Vale", "Sunken Reach"
	if len(regions) > 0 {
		vale = regions[0].Name
		reach = regions[len(regions)-1].Name
	}
	return models.World{
		Name:        "The Shadow Realm",
		Description: "A borderland where old gods sleep lightly.",
		Regions:     regions,
		Locations: []models.Location{
			{
				ID: "loc_village", Name: "Hollow Village", RegionName: vale,
				Description:  "Shuttered cottages huddle around a dry well.",
				ConnectedIDs: []string{"loc_gate"}, NPCIDs: []string{"npc_elder"},
				Items: []string{"lantern"}, Clues: []string{"fresh mud from the marsh on every doorstep"},
			},
			{
				ID: "loc_gate", Name: "Temple Gate", RegionName: reach,
				Description:  "Two cracked statues flank a gate slick with marsh water.",
				ConnectedIDs: []string{"loc_village", "loc_nave"}, NPCIDs: []string{"npc_goblin"},
				Items: []string{"rusted key", "rope"}, Clues: []string{"claw marks leading inward", "a torn cult banner"},
			},
			{
				ID: "loc_nave", Name: "Sunken Nave", RegionName: reach,
				Description:  "Knee-deep water mirrors a ceiling painted with drowned stars.",
				ConnectedIDs: []string{"loc_gate", "loc_crypt"}, NPCIDs: []string{"npc_acolyte"},
				Items: []string{"silver chalice"}, Clues: []string{"a prayer scratched backwards into the altar"},
			},
			{
				ID: "loc_crypt", Name: "Crypt of Azurath", RegionName: reach,
				Description:  "A dry, silent vault around a sarcophagus of blue stone.",
				ConnectedIDs: []string{"loc_nave"}, NPCIDs: []string{"npc_spirit"},
				Items: []string{"azure gem"}, Clues: []string{"the sarcophagus was opened from inside"},
			},
		},
		NPCs: []models.NPC{
			{ID: "npc_elder", Name: "Elder Maren", Description: "Tired, sharp-eyed and out of patience.", LocationID: "loc_village", Attitude: models.Friendly, CurrentHP: 6, MaxHP: 6},
			{ID: "npc_goblin", Name: "Goblin Scout", Description: "A marsh goblin guarding its new shrine.", LocationID: "loc_gate", Attitude: models.Hostile, CurrentHP: 12, MaxHP: 12},
			{ID: "npc_acolyte", Name: "Hollow Acolyte", Description: "A villager who stopped sleeping.", LocationID: "loc_nave", Attitude: models.Hostile, CurrentHP: 16, MaxHP: 16},
			{ID: "npc_spirit", Name: "Spirit of Azurath", Description: "A cold light with a patient voice.", LocationID: "loc_crypt", Attitude: models.Wary, CurrentHP: 30, MaxHP: 30},
		},
	}, nil
}

var (
	standardArray = []int{15, 14, 13, 12, 10, 8}
	playerNames   = []string{"Vex", "Mira", "Brann", "Sable", "Oren", "Tamsin"}
	playerRaces   = []string{"Human", "Elf", "Dwarf", "Halfling", "Tiefling", "Gnome"}

	classPriority = map[string][]models.Ability{
		"fighter":   {models.Strength, models.Constitution, models.Dexterity, models.Wisdom, models.Charisma, models.Intelligence},
		"barbarian": {models.Strength, models.Constitution, models.Dexterity, models.Wisdom, models.Charisma, models.Intelligence},
		"paladin":   {models.Strength, models.Charisma, models.Constitution, models.Wisdom, models.Dexterity, models.Intelligence},
		"rogue":     {models.Dexterity, models.Constitution, models.Intelligence, models.Wisdom, models.Charisma, models.Strength},
		"ranger":    {models.Dexterity, models.Wisdom, models.Constitution, models.Strength, models.Intelligence, models.Charisma},
		"monk":      {models.Dexterity, models.Wisdom, models.Constitution, models.Strength, models.Intelligence, models.Charisma},
		"wizard":    {models.Intelligence, models.Constitution, models.Dexterity, models.Wisdom, models.Charisma, models.Strength},
		"cleric":    {models.Wisdom, models.Constitution, models.Strength, models.Dexterity, models.Charisma, models.Intelligence},
		"druid":     {models.Wisdom, models.Constitution, models.Dexterity, models.Intelligence, models.Charisma, models.Strength},
		"bard":      {models.Charisma, models.Dexterity, models.Constitution, models.Wisdom, models.Intelligence, models.Strength},
		"sorcerer":  {models.Charisma, models.Constitution, models.Dexterity, models.Wisdom, models.Intelligence, models.Strength},
		"warlock":   {models.Charisma, models.Constitution, models.Dexterity, models.Wisdom, models.Intelligence, models.Strength},
	}

	classKit = map[string][]string{
		"fighter": {"longsword", "shield"},
		"rogue":   {"dagger", "thieves' tools"},
		"wizard":  {"quarterstaff", "spellbook"},
		"cleric":  {"mace", "holy symbol"},
	}
)

// StatsFor assigns the standard array in the class's priority order.
func StatsFor(class string) models.Stats {
	order, ok := classPriority[strings.ToLower(class)]
	if !ok {
		order = models.Abilities
	}
	var s models.Stats
	for i, a := range order {
		switch a {
		case models.Strength:
			s.Strength = standardArray[i]
		case models.Dexterity:
			s.Dexterity = standardArray[i]
		case models.Constitution:
			s.Constitution = standardArray[i]
		case models.Intelligence:
			s.Intelligence = standardArray[i]
		case models.Wisdom:
			s.Wisdom = standardArray[i]
		case models.Charisma:
			s.Charisma = standardArray[i]
		}
	}
	return s
}

// BaseHP returns the level-one hit points of a class before CON.
func BaseHP(class string) int {
	switch strings.ToLower(class) {
	case "barbarian":
		return 12
	case "fighter", "paladin", "ranger":
		return 10
	}
	return 8
}

// CreatePlayer builds a level-one character sheet for concept.
func (p *Procedural) CreatePlayer(_ context.Context, _ models.Setting, world models.World, concept string, index int) (models.Player, error) {
	class := strings.TrimSpace(concept)
	if class == "" {
		class = "Fighter"
	}
	stats := StatsFor(class)
	hp := max(1, BaseHP(class)+models.Modifier(stats.Constitution))

	start := ""
	if len(world.Locations) > 0 {
		start = world.Locations[0].ID
	}
	kit := classKit[strings.ToLower(class)]
	if kit == nil {
		kit = []string{"walking staff"}
	}

	return models.Player{
		ID:         fmt.Sprintf("player_%d", index+1),
		Name:       playerNames[index%len(playerNames)],
		Class:      class,
		Race:       playerRaces[index%len(playerRaces)],
		Level:      1,
		Stats:      stats,
		CurrentHP:  hp,
		MaxHP:      hp,
		ArmorClass: 10 + models.Modifier(stats.Dexterity),
		Inventory:  append([]string{"rations"}, kit...),
		LocationID: start,
	}, nil
}
