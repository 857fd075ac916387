package router

import (
	"strings"

	"github.com/hb-chen/skillrt/internal/skill"
)

// input holds the original tokens next to their case-folded forms so slot
// values keep the user's casing.
type input struct {
	text   string
	raw    []string
	folded []string
}

func newInput(text string) input {
	raw := skill.Fields(text)
	folded := make([]string, len(raw))
	for i, tok := range raw {
		folded[i] = skill.Fold(tok)
	}
	return input{text: text, raw: raw, folded: folded}
}

func (in input) empty() bool {
	return len(in.raw) == 0
}

// matchPattern anchors p at both ends of the input. A slot takes at least
// one token and extends up to, not including, the next occurrence of the
// literal that follows it in the pattern; a trailing slot takes the rest.
// Of two adjacent slots the first takes exactly one token.
func matchPattern(p skill.Pattern, in input) (skill.Params, bool) {
	if !p.Templated() {
		if len(p.Tokens) != len(in.folded) {
			return nil, false
		}
		for i, tok := range p.Tokens {
			if in.folded[i] != tok.Text {
				return nil, false
			}
		}
		return skill.Params{}, true
	}

	params := make(skill.Params)
	pos := 0
	for pi, tok := range p.Tokens {
		if pos >= len(in.folded) {
			return nil, false
		}

		if !tok.Slot {
			if in.folded[pos] != tok.Text {
				return nil, false
			}
			pos++
			continue
		}

		end := slotEnd(p.Tokens, pi, in, pos)
		if end < 0 {
			return nil, false
		}
		params[tok.Text] = strings.Join(in.raw[pos:end], " ")
		pos = end
	}

	if pos != len(in.folded) {
		return nil, false
	}
	return params, true
}

// slotEnd returns the exclusive end index of the slot at pattern index pi
// starting at input index start, or -1 when the slot cannot be closed.
func slotEnd(tokens []skill.Token, pi int, in input, start int) int {
	if pi == len(tokens)-1 {
		return len(in.folded)
	}

	next := tokens[pi+1]
	if next.Slot {
		return start + 1
	}
	for j := start + 1; j < len(in.folded); j++ {
		if in.folded[j] == next.Text {
			return j
		}
	}
	return -1
}

// fitParams checks classifier values against the triggers of s. It picks the
// trigger with the most slots that the values fill completely, earlier
// triggers first on a tie, and keeps only the values for that trigger's
// slots. A literal trigger needs no values.
func fitParams(s *skill.Skill, values map[string]string) (skill.Params, string, bool) {
	given := make(map[string]string, len(values))
	for k, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			given[skill.Fold(k)] = v
		}
	}

	best := -1
	var params skill.Params
	var trigger string
	for _, p := range s.Patterns() {
		slots := p.Slots()
		if len(slots) <= best {
			continue
		}
		fit := make(skill.Params, len(slots))
		for _, name := range slots {
			v, ok := given[name]
			if !ok {
				break
			}
			fit[name] = v
		}
		if len(fit) < len(slots) {
			continue
		}
		best, params, trigger = len(slots), fit, p.Raw
	}
	return params, trigger, best >= 0
}
