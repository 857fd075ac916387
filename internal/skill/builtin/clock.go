package builtin

import (
	"context"
	"strings"
	"time"

	"github.com/hb-chen/skillrt/internal/skill"
)

type clock struct {
	now func() time.Time
}

func (c clock) Execute(ctx context.Context, _ skill.Params, _ skill.SessionContext) (skill.Reply, error) {
	return skill.OK("It is " + c.now().Format("3:04 PM") + "."), nil
}

// MatchHint skips the clock for input that never mentions time.
func (c clock) MatchHint(text string) bool {
	return strings.Contains(strings.ToLower(text), "time")
}
