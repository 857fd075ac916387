// Package builtin provides the skills that ship with the runtime.
package builtin

import (
	"time"

	"github.com/hb-chen/skillrt/internal/skill"
)

// Source marks skills defined in this package.
const Source = "builtin"

// Options tunes the built-in skills.
type Options struct {
	// Now is the clock used by the time skill. Defaults to time.Now.
	Now func() time.Time
	// HistoryDepth is how many past exchanges "what did i say" inspects.
	HistoryDepth int
}

// Skills returns the built-in skills in their registration order.
func Skills(opts Options) []*skill.Skill {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = 10
	}

	skills := []*skill.Skill{
		{
			Name:        "preference.set",
			Description: "Remember a preference",
			Triggers:    []string{"set my {key} to {value}", "remember my {key} is {value}"},
			Handler:     skill.HandlerFunc(setPreference),
		},
		{
			Name:        "preference.get",
			Description: "Recall a preference",
			Triggers:    []string{"what is my {key}", "what's my {key}"},
			Handler:     skill.HandlerFunc(getPreference),
		},
		{
			Name:                 "preference.forget",
			Description:          "Forget a preference",
			Triggers:             []string{"forget my {key}"},
			RequiresConfirmation: true,
			ConfirmPrompt:        "Forget your {key}?",
			Handler:              skill.HandlerFunc(forgetPreference),
		},
		{
			Name:        "clock",
			Description: "Tell the current time",
			Triggers:    []string{"what time is it", "what's the time", "tell me the time"},
			Handler:     clock{now: opts.Now},
		},
		{
			Name:        "history",
			Description: "Repeat the last thing the user asked",
			Triggers:    []string{"what did i say", "what did i just say"},
			Handler:     history{depth: opts.HistoryDepth},
		},
	}
	for _, s := range skills {
		s.Source = Source
	}
	return skills
}
