package narration

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/tatianab/dungeon-master/internal/models"
)

//go:embed prompts/*.txt
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(promptFS, "prompts/*.txt"))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Completer sends one prompt to a text model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Model narrates and builds worlds with a text model. Character sheets
// stay procedural so that stats follow the rules tables.
type Model struct {
	completer  Completer
	procedural *Procedural
}

// NewModel returns a Gateway and WorldBuilder backed by c.
func NewModel(c Completer) *Model {
	return &Model{completer: c, procedural: NewProcedural()}
}

func (m *Model) ask(ctx context.Context, name string, data any) (string, error) {
	prompt, err := render(name, data)
	if err != nil {
		return "", err
	}
	text, err := m.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}
	return text, nil
}

// Narrate asks the model for the turn's prose and suggestions.
func (m *Model) Narrate(ctx context.Context, req Request) (Response, error) {
	text, err := m.ask(ctx, "narrate_turn.txt", req)
	if err != nil {
		return Response{}, err
	}
	return parseTurnReply(text), nil
}

func (m *Model) PlanNarrative(ctx context.Context, setting models.Setting) (models.Narrative, error) {
	var n models.Narrative
	text, err := m.ask(ctx, "plan_narrative.txt", setting)
	if err != nil {
		return n, err
	}
	err = decodeYAML(text, &n)
	return n, err
}

func (m *Model) BuildLore(ctx context.Context, _ models.Setting, narrative models.Narrative) ([]models.Region, error) {
	var regions []models.Region
	text, err := m.ask(ctx, "build_lore.txt", struct{ Narrative models.Narrative }{narrative})
	if err != nil {
		return nil, err
	}
	err = decodeYAML(text, &regions)
	return regions, err
}

func (m *Model) InstantiateWorld(ctx context.Context, _ models.Setting, narrative models.Narrative, regions []models.Region) (models.World, error) {
	var w models.World
	text, err := m.ask(ctx, "instantiate_world.txt", struct {
		Narrative models.Narrative
		Regions   []models.Region
	}{narrative, regions})
	if err != nil {
		return w, err
	}
	if err := decodeYAML(text, &w); err != nil {
		return w, err
	}
	w.Regions = regions
	return w, checkWorld(w)
}

func (m *Model) CreatePlayer(ctx context.Context, setting models.Setting, world models.World, concept string, index int) (models.Player, error) {
	return m.procedural.CreatePlayer(ctx, setting, world, concept, index)
}

// checkWorld rejects generated maps the rules cannot play on.
func checkWorld(w models.World) error {
	if len(w.Locations) == 0 {
		return fmt.Errorf("%w: no locations", ErrMalformedResponse)
	}
	ids := make(map[string]bool, len(w.Locations))
	for _, l := range w.Locations {
		if l.ID == "" {
			return fmt.Errorf("%w: location %q has no id", ErrMalformedResponse, l.Name)
		}
		ids[l.ID] = true
	}
	for _, l := range w.Locations {
		for _, c := range l.ConnectedIDs {
			if !ids[c] {
				return fmt.Errorf("%w: %s connects to unknown %s", ErrMalformedResponse, l.ID, c)
			}
		}
	}
	for _, n := range w.NPCs {
		if !ids[n.LocationID] {
			return fmt.Errorf("%w: %s placed in unknown %s", ErrMalformedResponse, n.ID, n.LocationID)
		}
	}
	return nil
}
