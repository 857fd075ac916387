package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hb-chen/skillrt/internal/config"
	"github.com/hb-chen/skillrt/internal/llm"
	"github.com/hb-chen/skillrt/internal/router"
	"github.com/hb-chen/skillrt/internal/session"
	"github.com/hb-chen/skillrt/internal/skill"
	"github.com/hb-chen/skillrt/internal/skill/builtin"
	"github.com/hb-chen/skillrt/internal/skill/direct"
	"github.com/hb-chen/skillrt/internal/storage"
	"github.com/hb-chen/skillrt/internal/tracer"
	"github.com/hb-chen/skillrt/pkg/logger"
)

// openStore opens the preference and log store
func openStore(ctx context.Context, cfg *config.Config) (*storage.SQLiteStore, error) {
	store, err := storage.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

// initRegistry registers built-in and scripted skills, applies overrides
// and seals the registry.
func initRegistry(cfg *config.Config) (*skill.Registry, error) {
	var skills []*skill.Skill
	if cfg.Skills.Builtin {
		skills = append(skills, builtin.Skills(builtin.Options{HistoryDepth: cfg.Skills.HistoryDepth})...)
	}

	if _, err := os.Stat(cfg.Skills.Dir); err == nil {
		scripted, err := direct.LoadSkills(cfg.Skills.Dir, direct.NewScriptRunner())
		if err != nil {
			return nil, fmt.Errorf("failed to load skills: %w", err)
		}
		skills = append(skills, scripted...)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat skills directory: %w", err)
	} else {
		logger.Warnf("Skills directory %s not found, only built-in skills are available", cfg.Skills.Dir)
	}

	overrides := skill.GetDefaultConfig()
	if cfg.Skills.Config != "" {
		var err error
		if overrides, err = skill.LoadConfig(cfg.Skills.Config); err != nil {
			return nil, err
		}
	}

	registry := skill.NewRegistry()
	for _, s := range skills {
		if !overrides.Apply(s) {
			logger.Infof("Skill %s disabled by configuration", s.Name)
			continue
		}
		if err := registry.Register(s); err != nil {
			return nil, err
		}
	}
	registry.Seal()

	if registry.Count() == 0 {
		return nil, fmt.Errorf("no skills registered")
	}
	logger.Infof("Registered %d skill(s)", registry.Count())
	return registry, nil
}

// initRouter creates the router, with the LLM classifier when enabled
func initRouter(cfg *config.Config, registry *skill.Registry) (*router.Router, error) {
	opts := []router.Option{router.WithThreshold(cfg.Dispatch.Threshold)}

	if cfg.LLM.Enabled {
		client, err := llm.NewClient(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.URL, cfg.LLM.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		classifier := llm.NewClassifier(client,
			llm.WithTools(cfg.LLM.UseTools),
			llm.WithToolConfidence(cfg.LLM.ToolConfidence))
		opts = append(opts, router.WithClassifier(classifier))
		logger.Infof("LLM classifier enabled: provider=%s model=%s", cfg.LLM.Provider, cfg.LLM.Model)
	}

	return router.New(registry, opts...), nil
}

// initTracer builds the turn tracer
func initTracer(cfg *config.Config) tracer.TurnTracer {
	if !cfg.Tracing.Enabled {
		return tracer.NopTracer{}
	}
	return tracer.NewMultiTracer(tracer.NewLogTracer(tracer.Level(cfg.Tracing.Level)))
}

func sessionConfig(cfg *config.Config) session.Config {
	d := cfg.Dispatch
	return session.Config{
		Affirmative:  d.Affirmative,
		Negative:     d.Negative,
		Exit:         d.Exit,
		SkillTimeout: d.SkillTimeoutDuration(),
		SerialSpeech: d.SerialSpeech,
		Messages: session.Messages{
			Fallback:  d.Messages.Fallback,
			Cancelled: d.Messages.Cancelled,
			Apology:   d.Messages.Apology,
			Confirm:   d.Messages.Confirm,
			Farewell:  d.Messages.Farewell,
			Done:      d.Messages.Done,
		},
	}
}
