package dice

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tatianab/dungeon-master/internal/models"
)

var (
	// ErrInvalidExpression is returned for text that is not NdM[+-K].
	ErrInvalidExpression = errors.New("invalid dice expression")

	expressionPattern = regexp.MustCompile(`^(\d*)d(\d+)\s*(?:([+-])\s*(\d+))?$`)
)

const maxDiceCount = 100

// ExpressionResult is the outcome of rolling a dice expression like 2d6+3.
type ExpressionResult struct {
	Expression string
	Die        models.Die
	Rolls      []int
	Modifier   int
	Total      int
}

func (r ExpressionResult) String() string {
	return fmt.Sprintf("%s = %v %+d = %d", r.Expression, r.Rolls, r.Modifier, r.Total)
}

// RollExpression parses and rolls NdM[+-K]. N defaults to 1.
func (r *Roller) RollExpression(expr string) (ExpressionResult, error) {
	clean := strings.ToLower(strings.TrimSpace(expr))
	m := expressionPattern.FindStringSubmatch(clean)
	if m == nil {
		return ExpressionResult{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}

	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	if count < 1 || count > maxDiceCount {
		return ExpressionResult{}, fmt.Errorf("%w: dice count %d out of range", ErrInvalidExpression, count)
	}
	die, err := ParseDie("d" + m[2])
	if err != nil {
		return ExpressionResult{}, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	modifier := 0
	if m[4] != "" {
		modifier, _ = strconv.Atoi(m[4])
		if m[3] == "-" {
			modifier = -modifier
		}
	}

	rolls := make([]int, count)
	total := modifier
	r.mu.Lock()
	for i := range rolls {
		rolls[i] = r.face(die)
		total += rolls[i]
	}
	r.mu.Unlock()

	return ExpressionResult{
		Expression: clean,
		Die:        die,
		Rolls:      rolls,
		Modifier:   modifier,
		Total:      total,
	}, nil
}
