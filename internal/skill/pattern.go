package skill

import (
	"fmt"
	"strings"
)

// Token is one whitespace-separated element of a trigger pattern.
type Token struct {
	// Text is the case-folded literal, or the slot name for slots.
	Text string
	Slot bool
}

// Pattern is a compiled trigger.
type Pattern struct {
	Raw      string
	Tokens   []Token
	Literals int
}

// Templated reports whether the pattern has at least one slot.
func (p Pattern) Templated() bool {
	return p.Literals < len(p.Tokens)
}

// Slots returns the slot names of the pattern in order.
func (p Pattern) Slots() []string {
	var names []string
	for _, tok := range p.Tokens {
		if tok.Slot {
			names = append(names, tok.Text)
		}
	}
	return names
}

// Fields splits text into whitespace separated tokens after trimming.
func Fields(text string) []string {
	return strings.Fields(strings.TrimSpace(text))
}

// Fold case-folds a single token.
func Fold(token string) string {
	return strings.ToLower(token)
}

// Normalize trims, case-folds and collapses whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// CompilePattern parses a trigger into tokens. Slots are whole tokens of the
// form {name} where name is made of letters, digits and underscores; slot
// names must be unique within one pattern.
func CompilePattern(raw string) (Pattern, error) {
	fields := Fields(raw)
	if len(fields) == 0 {
		return Pattern{}, fmt.Errorf("%w: empty trigger", ErrInvalidPattern)
	}

	p := Pattern{Raw: raw, Tokens: make([]Token, 0, len(fields))}
	seen := make(map[string]bool)
	for _, f := range fields {
		if strings.HasPrefix(f, "{") && strings.HasSuffix(f, "}") && len(f) > 2 {
			name := Fold(f[1 : len(f)-1])
			if !validSlotName(name) {
				return Pattern{}, fmt.Errorf("%w: bad slot %q in %q", ErrInvalidPattern, f, raw)
			}
			if seen[name] {
				return Pattern{}, fmt.Errorf("%w: slot %q repeated in %q", ErrInvalidPattern, name, raw)
			}
			seen[name] = true
			p.Tokens = append(p.Tokens, Token{Text: name, Slot: true})
			continue
		}
		if strings.ContainsAny(f, "{}") {
			return Pattern{}, fmt.Errorf("%w: stray brace in %q", ErrInvalidPattern, raw)
		}
		p.Tokens = append(p.Tokens, Token{Text: Fold(f)})
		p.Literals++
	}
	return p, nil
}

func validSlotName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// Expand substitutes {slot} references in a prompt template.
func Expand(template string, params Params) string {
	if template == "" || len(params) == 0 {
		return template
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
