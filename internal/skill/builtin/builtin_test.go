package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hb-chen/skillrt/internal/router"
	"github.com/hb-chen/skillrt/internal/session"
	"github.com/hb-chen/skillrt/internal/skill"
	"github.com/hb-chen/skillrt/internal/storage"
)

func newSession(t *testing.T) (*session.Session, *storage.SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	reg := skill.NewRegistry()
	noon := time.Date(2026, 10, 18, 12, 5, 0, 0, time.UTC)
	require.NoError(t, reg.RegisterAll(Skills(Options{Now: func() time.Time { return noon }})...))
	reg.Seal()

	store, err := storage.Open(ctx, storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return session.New(router.New(reg), store, nil), store
}

func TestSkills_Registered(t *testing.T) {
	reg := skill.NewRegistry()
	require.NoError(t, reg.RegisterAll(Skills(Options{})...))
	for s := range reg.All() {
		assert.Equal(t, Source, s.Source)
	}
	assert.Equal(t, []string{"preference.set", "preference.get", "preference.forget", "clock", "history"}, reg.Names())
}

func TestPreferenceSkills(t *testing.T) {
	ctx := context.Background()
	s, store := newSession(t)

	r := s.Handle(ctx, "what is my language")
	assert.Equal(t, "You haven't told me your language.", r.Response)

	r = s.Handle(ctx, "Set my Language to English")
	require.Equal(t, session.KindOK, r.Kind)
	assert.Equal(t, "Okay, your language is English.", r.Response)

	v, ok, err := store.GetPreference(ctx, "language")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "English", v)

	r = s.Handle(ctx, "what's my language")
	assert.Equal(t, "Your language is English.", r.Response)

	r = s.Handle(ctx, "forget my language")
	assert.Equal(t, session.KindPrompted, r.Kind)
	assert.Equal(t, "Forget your language?", r.Response)
	r = s.Handle(ctx, "yes")
	assert.Equal(t, "I've forgotten your language.", r.Response)

	_, ok, err = store.GetPreference(ctx, "language")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClockSkill(t *testing.T) {
	s, _ := newSession(t)
	r := s.Handle(context.Background(), "What time is it?")
	// punctuation stays part of the token
	assert.Equal(t, session.KindNoMatch, r.Kind)

	r = s.Handle(context.Background(), "what time is it")
	assert.Equal(t, "It is 12:05 PM.", r.Response)
}

func TestClockSkill_MatchHint(t *testing.T) {
	c := clock{now: time.Now}
	assert.True(t, c.MatchHint("What TIME is it"))
	assert.False(t, c.MatchHint("play music"))
}

func TestHistorySkill(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	r := s.Handle(ctx, "what did i say")
	assert.Equal(t, "You haven't said anything yet.", r.Response)

	s.Handle(ctx, "play something")
	r = s.Handle(ctx, "what did i say")
	assert.Equal(t, `You said "play something".`, r.Response)

	r = s.Handle(ctx, "what did i just say")
	assert.Equal(t, `You said "play something".`, r.Response)
}
