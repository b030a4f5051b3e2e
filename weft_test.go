package weft

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kursio/weft/pkg/domain"
	"github.com/kursio/weft/pkg/llm/llmtest"
)

func trainingGraph() *domain.Graph {
	return domain.NewGraph(
		[]domain.Node{
			{ID: "s1", Kind: domain.KindStart},
			{ID: "p1", Kind: domain.KindPrompt, Attrs: map[string]string{
				domain.AttrInitialMessage: "Ask the learner whether they are ready",
				domain.AttrPurpose:        "confirm the learner is ready",
			}},
			{ID: "sec1", Kind: domain.KindSection, Attrs: map[string]string{
				domain.AttrSectionID: "intro",
			}},
			{ID: "e1", Kind: domain.KindEnd},
		},
		[]domain.Edge{
			{Source: "s1", Target: "p1"},
			{Source: "p1", Target: "sec1", Label: "ready"},
			{Source: "p1", Target: "e1", Label: "no"},
		},
	)
}

func TestEngineSessionRoundTrip(t *testing.T) {
	fake := llmtest.New().
		Reply("Merhaba! Eğitime hazır mısın?").
		Reply("Harika, başlıyoruz!").
		Reply("completed")
	e := New(fake)
	e.Graphs().Register("forklift", trainingGraph())
	ctx := context.Background()

	sessionID, res, err := e.StartSession(ctx, "forklift", map[string]string{"title": "Forklift Safety"})
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)
	assert.True(t, res.WaitingForResponse)
	assert.Equal(t, "Merhaba! Eğitime hazır mısın?", res.Message)

	res, err = e.Step(ctx, "forklift", sessionID, "Hazır!")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionPlay, res.Action)

	// The advanced state was persisted between calls.
	st, err := e.Sessions().Load(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "sec1", st.CurrentNodeID)
	assert.True(t, st.Playing)
	assert.Equal(t, "Forklift Safety", st.Meta["title"])

	report, err := e.Analyze(ctx, "forklift", sessionID)
	require.NoError(t, err)
	assert.Equal(t, "sec1", report.NodeID)

	require.NoError(t, e.EndSession(ctx, sessionID))
	_, err = e.Sessions().Load(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEngineUnknownGraph(t *testing.T) {
	e := New(llmtest.New())

	_, _, err := e.StartSession(context.Background(), "missing", nil)
	require.Error(t, err)
}

func TestEngineStepMissingSession(t *testing.T) {
	e := New(llmtest.New())
	e.Graphs().Register("forklift", trainingGraph())

	_, err := e.Step(context.Background(), "forklift", "ghost", "merhaba")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
