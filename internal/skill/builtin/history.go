package builtin

import (
	"context"
	"fmt"

	"github.com/hb-chen/skillrt/internal/skill"
)

type history struct {
	depth int
}

// Execute repeats the most recent command that was not itself a history
// request.
func (h history) Execute(ctx context.Context, _ skill.Params, sc skill.SessionContext) (skill.Reply, error) {
	past, err := sc.History(ctx, h.depth)
	if err != nil {
		return skill.Reply{}, err
	}
	for i := len(past) - 1; i >= 0; i-- {
		if past[i].Skill == "history" {
			continue
		}
		return skill.OK(fmt.Sprintf("You said %q.", past[i].Command)), nil
	}
	return skill.OK("You haven't said anything yet."), nil
}
