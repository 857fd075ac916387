package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/hb-chen/skillrt/internal/skill"
)

// Preference keys are folded so "Language" and "language" are one key.
func prefKey(params skill.Params) (string, error) {
	key := strings.ToLower(strings.TrimSpace(params["key"]))
	if key == "" {
		return "", fmt.Errorf("missing preference key")
	}
	return key, nil
}

func setPreference(ctx context.Context, params skill.Params, sc skill.SessionContext) (skill.Reply, error) {
	key, err := prefKey(params)
	if err != nil {
		return skill.Reply{}, err
	}
	value := strings.TrimSpace(params["value"])
	if err := sc.Preferences().Set(ctx, key, value); err != nil {
		return skill.Reply{}, err
	}
	return skill.OK(fmt.Sprintf("Okay, your %s is %s.", key, value)), nil
}

func getPreference(ctx context.Context, params skill.Params, sc skill.SessionContext) (skill.Reply, error) {
	key, err := prefKey(params)
	if err != nil {
		return skill.Reply{}, err
	}
	value, ok, err := sc.Preferences().Get(ctx, key)
	if err != nil {
		return skill.Reply{}, err
	}
	if !ok {
		return skill.OK(fmt.Sprintf("You haven't told me your %s.", key)), nil
	}
	return skill.OK(fmt.Sprintf("Your %s is %s.", key, value)), nil
}

func forgetPreference(ctx context.Context, params skill.Params, sc skill.SessionContext) (skill.Reply, error) {
	key, err := prefKey(params)
	if err != nil {
		return skill.Reply{}, err
	}
	if err := sc.Preferences().Unset(ctx, key); err != nil {
		return skill.Reply{}, err
	}
	return skill.OK(fmt.Sprintf("I've forgotten your %s.", key)), nil
}
