package narration

import (
	"context"
	"fmt"
	"strings"

	"github.com/tatianab/dungeon-master/internal/models"
)

// Procedural narrates and builds worlds without any model. It is the
// default collaborator and the fallback for the model-backed ones.
type Procedural struct{}

// NewProcedural returns the procedural narrator.
func NewProcedural() *Procedural { return &Procedural{} }

// Narrate describes the request from its mechanical data.
func (p *Procedural) Narrate(_ context.Context, req Request) (Response, error) {
	var b strings.Builder
	loc := req.Summary.Location

	switch req.Kind {
	case KindOpening:
		if req.Summary.Title != "" {
			fmt.Fprintf(&b, "%s. ", req.Summary.Title)
		}
		if req.Summary.Premise != "" {
			fmt.Fprintf(&b, "%s ", req.Summary.Premise)
		}
		fmt.Fprintf(&b, "You stand in %s. %s", orDefault(loc.Name, "an unfamiliar place"), loc.Description)
	case KindQuestion:
		fmt.Fprintf(&b, "You pause to consider: %q. ", req.Input)
		fmt.Fprintf(&b, "You are in %s. %s", orDefault(loc.Name, "an unfamiliar place"), loc.Description)
		if len(loc.Exits) > 0 {
			fmt.Fprintf(&b, " Paths lead to %s.", strings.Join(loc.Exits, ", "))
		}
		if len(loc.NPCs) > 0 {
			fmt.Fprintf(&b, " Nearby: %s.", strings.Join(loc.NPCs, ", "))
		}
	case KindFarewell:
		b.WriteString("The tale pauses here. Your progress has been recorded for another day.")
		return Response{Narrative: b.String(), Suggestions: []string{"resume the adventure", "start a new tale"}}, nil
	default:
		for _, t := range req.Outcomes {
			b.WriteString(describeOutcome(t))
			b.WriteString(" ")
		}
		for _, c := range req.Changes {
			if line := describeChange(c); line != "" {
				b.WriteString(line)
				b.WriteString(" ")
			}
		}
		if len(req.Outcomes) == 0 {
			fmt.Fprintf(&b, "You %s.", strings.TrimSuffix(req.Input, "."))
		}
	}
	if req.Transition != "" {
		fmt.Fprintf(&b, " The scene shifts: %s.", req.Transition)
	}

	return Response{
		Narrative:   strings.TrimSpace(b.String()),
		Suggestions: suggestFor(req.Summary),
	}, nil
}

func describeOutcome(t models.OutcomeToken) string {
	action := strings.TrimSuffix(strings.TrimSpace(t.Description), ".")
	switch t.Status {
	case models.StatusCriticalHit:
		return fmt.Sprintf("Everything aligns as you %s, a flawless effort.", lowerFirst(action))
	case models.StatusCriticalFail:
		return fmt.Sprintf("You try to %s, but it goes badly wrong.", lowerFirst(action))
	}
	if t.MeetsDC {
		return fmt.Sprintf("You %s, and it works.", lowerFirst(action))
	}
	return fmt.Sprintf("You try to %s, but fall short.", lowerFirst(action))
}

func describeChange(c models.WorldStateChange) string {
	switch c.Type {
	case models.ChangeHealth:
		return fmt.Sprintf("Health of %s goes from %s to %s.", c.TargetID, c.OldValue, c.NewValue)
	case models.ChangeAttitude:
		return fmt.Sprintf("%s now seems %s.", c.TargetID, c.NewValue)
	case models.ChangeLocation:
		return "You arrive somewhere new."
	case models.ChangeInventory:
		return fmt.Sprintf("You now carry: %s.", c.NewValue)
	case models.ChangeFlag:
		switch c.TargetID {
		case models.FlagVictory:
			return "No foe remains standing."
		case models.FlagDefeat:
			return "Darkness closes in on the party."
		}
		if strings.HasPrefix(c.TargetID, "clue:") {
			return fmt.Sprintf("You notice %s.", c.NewValue)
		}
	}
	return ""
}

func suggestFor(s StateSummary) []string {
	var out []string
	for _, npc := range s.Location.NPCs {
		name, status, _ := strings.Cut(npc, " (")
		switch strings.TrimSuffix(status, ")") {
		case string(models.Hostile):
			out = append(out, "attack the "+name)
		case "fallen":
		default:
			out = append(out, "talk to "+name)
		}
	}
	for _, item := range s.Location.Items {
		out = append(out, "take the "+item)
	}
	for _, exit := range s.Location.Exits {
		out = append(out, "go to "+exit)
	}
	out = append(out, DefaultSuggestions...)
	return CleanSuggestions(out)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	s = strings.TrimPrefix(s, "I ")
	s = strings.TrimPrefix(s, "i ")
	return strings.ToLower(s[:1]) + s[1:]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
