// Package dice rolls polyhedral dice for action resolution.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/tatianab/dungeon-master/internal/models"
)

// Source yields uniformly distributed integers in [0, n).
type Source interface {
	Intn(n int) int
}

// Dice lists the supported dice in ascending order.
var Dice = []models.Die{models.D4, models.D6, models.D8, models.D10, models.D12, models.D20, models.D100}

// ParseDie maps names such as "d20" or "D6" to a supported die.
func ParseDie(name string) (models.Die, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range Dice {
		if d.String() == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unsupported die %q", name)
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Roller is safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	src Source
}

// NewRoller wraps src. A nil src is replaced by a math/rand generator
// seeded from crypto/rand.
func NewRoller(src Source) *Roller {
	if src == nil {
		seed, err := NewSeed()
		if err != nil {
			seed = 1
		}
		src = rand.New(rand.NewSource(seed))
	}
	return &Roller{src: src}
}

// NewSeededRoller returns a roller whose sequence is reproducible from seed.
func NewSeededRoller(seed int64) *Roller {
	return NewRoller(rand.New(rand.NewSource(seed)))
}

func (r *Roller) face(die models.Die) int {
	return r.src.Intn(int(die)) + 1
}

// Roll rolls one die and adds modifier. With advantage (or disadvantage)
// two faces are rolled and the higher (or lower) is kept; both stay in the
// result. Advantage and disadvantage together cancel out. A non-positive
// die is rolled as a d20.
func (r *Roller) Roll(die models.Die, modifier int, advantage, disadvantage bool) models.RollResult {
	if die <= 0 {
		die = models.D20
	}
	if advantage && disadvantage {
		advantage, disadvantage = false, false
	}

	r.mu.Lock()
	rolls := []int{r.face(die)}
	if advantage || disadvantage {
		rolls = append(rolls, r.face(die))
	}
	r.mu.Unlock()

	natural := rolls[0]
	if len(rolls) == 2 {
		switch {
		case advantage && rolls[1] > natural:
			natural = rolls[1]
		case disadvantage && rolls[1] < natural:
			natural = rolls[1]
		}
	}

	return models.RollResult{
		Die:          die,
		Rolls:        rolls,
		Natural:      natural,
		Modifier:     modifier,
		Total:        natural + modifier,
		Advantage:    advantage,
		Disadvantage: disadvantage,
	}
}

// Script is a Source that replays fixed faces in order and then repeats.
// Faces are 1-based, as printed on the die.
type Script struct {
	mu    sync.Mutex
	faces []int
	next  int
}

// NewScript returns a Source replaying faces.
func NewScript(faces ...int) *Script {
	return &Script{faces: faces}
}

// Intn returns the next scripted face minus one, clamped to [0, n).
func (s *Script) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.faces) == 0 {
		return 0
	}
	v := s.faces[s.next%len(s.faces)] - 1
	s.next++
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
