package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hb-chen/skillrt/internal/skill"
)

var nop = skill.HandlerFunc(func(context.Context, skill.Params, skill.SessionContext) (skill.Reply, error) {
	return skill.OK(""), nil
})

func newRegistry(t *testing.T, skills ...*skill.Skill) *skill.Registry {
	t.Helper()
	r := skill.NewRegistry()
	require.NoError(t, r.RegisterAll(skills...))
	r.Seal()
	return r
}

func sk(name string, triggers ...string) *skill.Skill {
	return &skill.Skill{Name: name, Triggers: triggers, Handler: nop}
}

func TestRoute_ExactLiteral(t *testing.T) {
	reg := newRegistry(t,
		sk("screenshot", "take a screenshot"),
		sk("stats", "system stats", "how is my computer"),
		sk("alarm", "set an alarm for {time}"),
	)
	r := New(reg)

	for _, tc := range []struct{ text, skill string }{
		{"take a screenshot", "screenshot"},
		{"  Take A   Screenshot ", "screenshot"},
		{"HOW IS MY COMPUTER", "stats"},
	} {
		m, ok := r.Route(tc.text)
		require.True(t, ok, tc.text)
		assert.Equal(t, tc.skill, m.Skill.Name)
		assert.Equal(t, 1.0, m.Confidence)
		assert.Empty(t, m.Params)
	}
}

func TestRoute_LiteralRequiresFullEquality(t *testing.T) {
	r := New(newRegistry(t, sk("screenshot", "take a screenshot")))

	_, ok := r.Route("take a screenshot now")
	assert.False(t, ok)
	_, ok = r.Route("take a")
	assert.False(t, ok)
}

func TestRoute_NoMatchRegardlessOfRegistrySize(t *testing.T) {
	var skills []*skill.Skill
	for i := 0; i < 50; i++ {
		skills = append(skills, sk(fmt.Sprintf("s%d", i), fmt.Sprintf("do thing %d", i), fmt.Sprintf("run {x} %d", i)))
	}
	r := New(newRegistry(t, skills...))

	_, ok := r.Route("play something")
	assert.False(t, ok)
	_, ok = r.Route("")
	assert.False(t, ok)
}

func TestRoute_TemplateExtractsSlots(t *testing.T) {
	r := New(newRegistry(t,
		sk("uninstall", "uninstall {app}"),
		sk("move", "move {file} to {folder}"),
	))

	m, ok := r.Route("uninstall Zoom")
	require.True(t, ok)
	assert.Equal(t, "uninstall", m.Skill.Name)
	assert.Equal(t, skill.Params{"app": "Zoom"}, m.Params)
	assert.InDelta(t, 0.5, m.Confidence, 1e-9)
	assert.Equal(t, "uninstall {app}", m.Trigger)

	m, ok = r.Route("uninstall Visual Studio Code")
	require.True(t, ok)
	assert.Equal(t, "Visual Studio Code", m.Params["app"])

	m, ok = r.Route("Move my Report.pdf to Old Docs")
	require.True(t, ok)
	assert.Equal(t, skill.Params{"file": "my Report.pdf", "folder": "Old Docs"}, m.Params)
	assert.InDelta(t, 2.0/4.0, m.Confidence, 1e-9)
}

func TestRoute_SlotStopsAtFirstLiteralBoundary(t *testing.T) {
	r := New(newRegistry(t, sk("remind", "remind me to {task} at {time}")), WithThreshold(0.1))

	m, ok := r.Route("remind me to call mom at 5 pm")
	require.True(t, ok)
	assert.Equal(t, skill.Params{"task": "call mom", "time": "5 pm"}, m.Params)
	assert.InDelta(t, 4.0/6.0, m.Confidence, 1e-9)
}

func TestRoute_SlotNeedsAtLeastOneToken(t *testing.T) {
	r := New(newRegistry(t, sk("uninstall", "uninstall {app}"), sk("move", "move {a} to {b}")))

	_, ok := r.Route("uninstall")
	assert.False(t, ok)
	_, ok = r.Route("move to here")
	assert.False(t, ok)
	_, ok = r.Route("move this to")
	assert.False(t, ok)
}

func TestRoute_AdjacentSlots(t *testing.T) {
	r := New(newRegistry(t, sk("convert", "convert {amount} {currency} now")), WithThreshold(0.1))

	m, ok := r.Route("convert 20 euro dollars now")
	require.True(t, ok)
	assert.Equal(t, skill.Params{"amount": "20", "currency": "euro dollars"}, m.Params)
}

func TestRoute_HigherConfidenceWins(t *testing.T) {
	r := New(newRegistry(t,
		sk("generic", "play {song}"),
		sk("radio", "play the radio"),
		sk("artist", "play {song} by {artist}"),
	))

	m, ok := r.Route("play the radio")
	require.True(t, ok)
	assert.Equal(t, "radio", m.Skill.Name)
	assert.Equal(t, 1.0, m.Confidence)

	// "play {song}" 1/2 and "play {song} by {artist}" 2/4 tie; first registered wins
	m, ok = r.Route("play hello by adele")
	require.True(t, ok)
	assert.Equal(t, "generic", m.Skill.Name)
	assert.Equal(t, "hello by adele", m.Params["song"])
}

func TestRoute_TieBreakByRegistrationOrder(t *testing.T) {
	reg := newRegistry(t, sk("first", "open {thing}"), sk("second", "open {target}"))
	r := New(reg)

	for i := 0; i < 10; i++ {
		m, ok := r.Route("open the door")
		require.True(t, ok)
		assert.Equal(t, "first", m.Skill.Name)
	}
}

func TestRoute_Threshold(t *testing.T) {
	reg := newRegistry(t, sk("note", "{text} note"), sk("remember", "remember {what}"))

	_, ok := New(reg, WithThreshold(0.75)).Route("remember the milk")
	assert.False(t, ok)

	m, ok := New(reg).Route("remember the milk")
	require.True(t, ok)
	assert.Equal(t, "remember", m.Skill.Name)

	// out-of-range values keep the default
	assert.Equal(t, DefaultThreshold, New(reg, WithThreshold(7)).Threshold())
}

type hintHandler struct {
	skill.HandlerFunc
	calls int
}

func (h *hintHandler) MatchHint(text string) bool {
	h.calls++
	return strings.Contains(strings.ToLower(text), "alarm")
}

func TestRoute_MatchHintRejects(t *testing.T) {
	h := &hintHandler{HandlerFunc: nop}
	reg := newRegistry(t,
		&skill.Skill{Name: "alarm", Triggers: []string{"set {thing}"}, Handler: h},
		sk("timer", "set {what}"),
	)
	r := New(reg)

	m, ok := r.Route("set a timer")
	require.True(t, ok)
	assert.Equal(t, "timer", m.Skill.Name)

	m, ok = r.Route("set an alarm")
	require.True(t, ok)
	assert.Equal(t, "alarm", m.Skill.Name)
	assert.Equal(t, 2, h.calls)
}

func TestCandidates_Ranked(t *testing.T) {
	r := New(newRegistry(t,
		sk("a", "{x} {y} {z} lights"),
		sk("b", "turn on {what}"),
		sk("c", "turn on the lights"),
	))

	cands := r.Candidates("turn on the lights")
	require.Len(t, cands, 3)
	assert.Equal(t, "c", cands[0].Skill.Name)
	assert.Equal(t, "b", cands[1].Skill.Name)
	assert.Equal(t, "a", cands[2].Skill.Name)
	assert.Nil(t, r.Candidates("   "))
}

type stubClassifier struct {
	out   Classification
	err   error
	calls int
}

func (c *stubClassifier) Classify(_ context.Context, _ string, skills []*skill.Skill) (Classification, error) {
	c.calls++
	return c.out, c.err
}

func TestResolve_ClassifierFallback(t *testing.T) {
	reg := newRegistry(t, sk("music", "play {song}"), sk("stats", "system stats"))
	ctx := context.Background()

	c := &stubClassifier{out: Classification{Skill: "stats", Confidence: 0.8}}
	r := New(reg, WithClassifier(c))

	m, ok, err := r.Resolve(ctx, "play jazz")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, m.Classified)
	assert.Equal(t, 0, c.calls)

	m, ok, err = r.Resolve(ctx, "how busy is my cpu")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, m.Classified)
	assert.Equal(t, "stats", m.Skill.Name)
	assert.Equal(t, 1, c.calls)
}

func TestResolve_ClassifierAnswersAreValidated(t *testing.T) {
	reg := newRegistry(t, sk("stats", "system stats"))
	ctx := context.Background()

	for _, out := range []Classification{
		{Skill: "stats", Confidence: 0.2},
		{Skill: "ghost", Confidence: 0.9},
		{Confidence: 1},
	} {
		_, ok, err := New(reg, WithClassifier(&stubClassifier{out: out})).Resolve(ctx, "anything")
		require.NoError(t, err)
		assert.False(t, ok, "%+v", out)
	}

	_, ok, err := New(reg, WithClassifier(&stubClassifier{err: errors.New("offline")})).Resolve(ctx, "anything")
	assert.Error(t, err)
	assert.False(t, ok)

	_, ok, err = New(reg).Resolve(ctx, "anything")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestResolve_ClassifierParamsMustFitTriggers(t *testing.T) {
	reg := newRegistry(t,
		sk("uninstall", "uninstall {app}"),
		sk("screenshot", "take a screenshot", "take a screenshot named {name}"),
	)
	ctx := context.Background()
	resolve := func(out Classification) (Match, bool) {
		t.Helper()
		m, ok, err := New(reg, WithClassifier(&stubClassifier{out: out})).Resolve(ctx, "anything")
		require.NoError(t, err)
		return m, ok
	}

	// undeclared keys never reach the skill and the required slot is missing
	_, ok := resolve(Classification{
		Skill:      "uninstall",
		Params:     map[string]string{"force": "yes", "all": "true"},
		Confidence: 0.9,
	})
	assert.False(t, ok)

	_, ok = resolve(Classification{Skill: "uninstall", Params: map[string]string{"app": "  "}, Confidence: 0.9})
	assert.False(t, ok)

	m, ok := resolve(Classification{
		Skill:      "uninstall",
		Params:     map[string]string{"APP": "Zoom", "force": "yes"},
		Confidence: 0.9,
	})
	require.True(t, ok)
	assert.Equal(t, skill.Params{"app": "Zoom"}, m.Params)
	assert.Equal(t, "uninstall {app}", m.Trigger)

	m, ok = resolve(Classification{Skill: "screenshot", Params: map[string]string{"format": "png"}, Confidence: 0.9})
	require.True(t, ok)
	assert.Empty(t, m.Params)
	assert.Equal(t, "take a screenshot", m.Trigger)

	m, ok = resolve(Classification{Skill: "screenshot", Params: map[string]string{"name": "desk"}, Confidence: 0.9})
	require.True(t, ok)
	assert.Equal(t, skill.Params{"name": "desk"}, m.Params)
	assert.Equal(t, "take a screenshot named {name}", m.Trigger)
}
