package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kursio/weft/pkg/domain"
	"github.com/kursio/weft/pkg/llm"
	"github.com/kursio/weft/pkg/llm/llmtest"
)

func newTestEngine(fake *llmtest.Fake, opts ...Option) *Engine {
	return NewEngine(llm.NewResilient(fake), opts...)
}

// welcomeGraph: Start(s1) -> Prompt(p1) -> Section(sec1) / End(e1).
func welcomeGraph() *domain.Graph {
	return domain.NewGraph(
		[]domain.Node{
			{ID: "s1", Kind: domain.KindStart},
			{ID: "p1", Kind: domain.KindPrompt, Attrs: map[string]string{
				domain.AttrInitialMessage: "Greet user",
				domain.AttrPromptText:     "Ask whether the learner is ready",
				domain.AttrPurpose:        "confirm the learner is ready to start",
			}},
			{ID: "sec1", Kind: domain.KindSection, Attrs: map[string]string{
				domain.AttrSectionID: "intro",
				domain.AttrLabel:     "Introduction",
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

func TestStepAutoAdvancesStartIntoPrompt(t *testing.T) {
	fake := llmtest.New().Reply("Merhaba! Hazır mısın?")
	e := newTestEngine(fake)
	st := domain.NewState("sess-1")

	res, err := e.Step(context.Background(), welcomeGraph(), st, "", map[string]string{"title": "Forklift Safety"})
	require.NoError(t, err)

	assert.Equal(t, domain.ActionRespond, res.Action)
	assert.True(t, res.WaitingForResponse)
	assert.Equal(t, "Merhaba! Hazır mısın?", res.Message)
	assert.NotEqual(t, "Greet user", res.Message)

	assert.Equal(t, []string{"s1"}, st.Visited)
	assert.Equal(t, "p1", st.CurrentNodeID)
	assert.Equal(t, "Forklift Safety", st.Meta["title"])
	assert.True(t, st.HasRun("p1"))
}

func TestStepPurposeCompletedAdvancesOnce(t *testing.T) {
	fake := llmtest.New().
		Reply("Merhaba! Hazır mısın?"). // greeting
		Reply("Harika, başlayalım!").   // answer round
		Reply("completed")              // purpose classification
	e := newTestEngine(fake)
	st := domain.NewState("sess-1")
	g := welcomeGraph()

	_, err := e.Step(context.Background(), g, st, "", nil)
	require.NoError(t, err)

	res, err := e.Step(context.Background(), g, st, "Hazır!", nil)
	require.NoError(t, err)

	// The ready-labeled edge wins and the section's first run starts playback.
	assert.Equal(t, domain.ActionPlay, res.Action)
	assert.Equal(t, "sec1", st.CurrentNodeID)
	assert.True(t, st.Playing)
	assert.Equal(t, "intro", st.CurrentSectionID)

	assert.Equal(t, []string{"s1", "p1"}, st.Visited)
	assert.Equal(t, "Hazır!", st.Responses["p1"])
}

func TestStepPurposeNotCompletedStaysOnPrompt(t *testing.T) {
	fake := llmtest.New().
		Reply("Merhaba! Hazır mısın?").
		Reply("Sorun değil, bekliyorum.").
		Reply("not completed")
	e := newTestEngine(fake)
	st := domain.NewState("sess-1")
	g := welcomeGraph()

	_, err := e.Step(context.Background(), g, st, "", nil)
	require.NoError(t, err)

	res, err := e.Step(context.Background(), g, st, "Biraz daha zaman lazım", nil)
	require.NoError(t, err)

	assert.False(t, res.PurposeCompleted)
	assert.Empty(t, res.NextNodeID)
	assert.Equal(t, "p1", st.CurrentNodeID)
	assert.Equal(t, []string{"s1"}, st.Visited)
}

func TestStepGreetingFallsBackToConfiguredText(t *testing.T) {
	e := newTestEngine(llmtest.New()) // empty script: every call fails
	st := domain.NewState("sess-1")

	res, err := e.Step(context.Background(), welcomeGraph(), st, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Greet user", res.Message)
	assert.True(t, res.WaitingForResponse)
}

func TestStepGreetingAfterFirstRunHidesInstructionText(t *testing.T) {
	e := newTestEngine(llmtest.New()) // empty script: every call fails
	st := domain.NewState("sess-1")
	st.CurrentNodeID = "p1"
	st.MarkRun("p1")

	res, err := e.Step(context.Background(), welcomeGraph(), st, "", nil)
	require.NoError(t, err)

	// Re-opening a prompt must never leak the author's instruction text.
	assert.Equal(t, "Hello! Shall we continue with the training?", res.Message)
	assert.True(t, res.WaitingForResponse)
}

func TestStartAndContentRerunsAreIdempotent(t *testing.T) {
	e := newTestEngine(llmtest.New())

	t.Run("start", func(t *testing.T) {
		g := welcomeGraph()
		st := domain.NewState("sess-1")
		env := &stepEnv{graph: g, state: st, meta: map[string]string{"title": "Forklift Safety"}}
		node := g.FindNode("s1")

		first, err := e.runStart(env, node)
		require.NoError(t, err)
		again, err := e.runStart(env, node)
		require.NoError(t, err)

		assert.Equal(t, first, again)
		assert.Equal(t, "p1", again.NextNodeID)
		assert.Equal(t, map[string]string{"title": "Forklift Safety"}, st.Meta)
	})

	t.Run("content", func(t *testing.T) {
		g := domain.NewGraph(
			[]domain.Node{
				{ID: "c1", Kind: domain.KindContent, Attrs: map[string]string{
					domain.AttrContentID: "overview",
				}},
				{ID: "e1", Kind: domain.KindEnd},
			},
			[]domain.Edge{{Source: "c1", Target: "e1"}},
		)
		st := domain.NewState("sess-1")
		env := &stepEnv{graph: g, state: st}
		node := g.FindNode("c1")

		first, err := e.runContent(env, node)
		require.NoError(t, err)
		again, err := e.runContent(env, node)
		require.NoError(t, err)

		assert.Equal(t, first, again)
		assert.Equal(t, "e1", again.NextNodeID)
		assert.Empty(t, st.Visited)
	})
}

// sectionGraph: a section already running, with a content node to divert to.
func sectionGraph() *domain.Graph {
	return domain.NewGraph(
		[]domain.Node{
			{ID: "sec1", Kind: domain.KindSection, Attrs: map[string]string{
				domain.AttrSectionID: "intro",
			}},
			{ID: "c1", Kind: domain.KindContent, Attrs: map[string]string{
				domain.AttrContentID: "overview",
			}},
		},
		nil,
	)
}

func TestDiversionResumesIssuingNode(t *testing.T) {
	fake := llmtest.New().
		ReplyToolCall("navigate_to_node", map[string]any{
			"target_node_id": "c1",
			"reason":         "Sure, here is the overview.",
			"return_after":   true,
		}).
		Reply("Kaldığımız yerden devam edelim.")
	e := newTestEngine(fake)

	st := domain.NewState("sess-1")
	st.CurrentNodeID = "sec1"
	st.MarkRun("sec1")
	g := sectionGraph()

	res, err := e.Step(context.Background(), g, st, "show me the overview", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNavigateToNode, res.Action)
	assert.Equal(t, "c1", st.TempNodeID)
	assert.Equal(t, []string{"sec1"}, st.ReturnStack)
	require.Len(t, st.SectionLog["intro"], 1)
	assert.Equal(t, domain.ActionNavigateToNode, st.SectionLog["intro"][0].Action)

	// Next call runs the diverted node, then springs back to the section.
	res, err = e.Step(context.Background(), g, st, "", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Message, "You have returned")
	assert.Contains(t, res.Message, "Kaldığımız yerden devam edelim.")
	assert.Empty(t, st.TempNodeID)
	assert.Empty(t, st.ReturnStack)
	assert.Equal(t, "sec1", st.CurrentNodeID)
}

func TestQuestionGradesAndBranchesOnKeywords(t *testing.T) {
	g := domain.NewGraph(
		[]domain.Node{
			{ID: "q1", Kind: domain.KindQuestion, Attrs: map[string]string{
				domain.AttrQuestionText: "Baret takmak zorunlu mu?",
			}},
			{ID: "right", Kind: domain.KindContent},
			{ID: "wrong", Kind: domain.KindContent},
		},
		[]domain.Edge{
			{Source: "q1", Target: "right", Label: "evet"},
			{Source: "q1", Target: "wrong", Label: "hayır"},
		},
	)

	fake := llmtest.New().Reply("correct")
	e := newTestEngine(fake)
	st := domain.NewState("sess-1")
	st.CurrentNodeID = "q1"

	// First run emits the configured question verbatim and waits.
	res, err := e.Step(context.Background(), g, st, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Baret takmak zorunlu mu?", res.Message)
	assert.True(t, res.WaitingForResponse)

	res, err = e.Step(context.Background(), g, st, "Evet, kesinlikle", nil)
	require.NoError(t, err)
	assert.Equal(t, "That's right, well done!", res.Message)
	assert.Equal(t, "right", res.NextNodeID)
	assert.Equal(t, "right", st.CurrentNodeID)
	assert.Equal(t, []string{"q1"}, st.Visited)
	assert.Equal(t, "Evet, kesinlikle", st.Responses["q1"])
}

func TestContentCascadesToEnd(t *testing.T) {
	g := domain.NewGraph(
		[]domain.Node{
			{ID: "s1", Kind: domain.KindStart},
			{ID: "c1", Kind: domain.KindContent, Attrs: map[string]string{
				domain.AttrContentID: "closing-notes",
			}},
			{ID: "e1", Kind: domain.KindEnd, Attrs: map[string]string{
				domain.AttrMessage: "Eğitimi tamamladınız!",
			}},
		},
		[]domain.Edge{
			{Source: "s1", Target: "c1"},
			{Source: "c1", Target: "e1"},
		},
	)

	e := newTestEngine(llmtest.New())
	st := domain.NewState("sess-1")

	res, err := e.Step(context.Background(), g, st, "", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ActionEnd, res.Action)
	assert.Equal(t, "Eğitimi tamamladınız!", res.Message)
	assert.Equal(t, []string{"s1", "c1"}, st.Visited)
	assert.False(t, st.Playing)
}

func TestCascadeBoundStopsCyclicGraphs(t *testing.T) {
	g := domain.NewGraph(
		[]domain.Node{
			{ID: "c1", Kind: domain.KindContent},
			{ID: "c2", Kind: domain.KindContent},
		},
		[]domain.Edge{
			{Source: "c1", Target: "c2"},
			{Source: "c2", Target: "c1"},
		},
	)

	e := newTestEngine(llmtest.New(), WithMaxCascade(4))
	st := domain.NewState("sess-1")
	st.CurrentNodeID = "c1"

	res, err := e.Step(context.Background(), g, st, "", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionShowContent, res.Action)
}

func TestStepUnknownNodeFails(t *testing.T) {
	e := newTestEngine(llmtest.New())
	st := domain.NewState("sess-1")
	st.CurrentNodeID = "ghost"

	_, err := e.Step(context.Background(), welcomeGraph(), st, "", nil)
	var nf *domain.NodeNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.NodeID)
}

func TestStepEmptyGraphHasNoEntry(t *testing.T) {
	e := newTestEngine(llmtest.New())
	st := domain.NewState("sess-1")

	_, err := e.Step(context.Background(), domain.NewGraph(nil, nil), st, "", nil)
	var nf *domain.NodeNotFoundError
	require.ErrorAs(t, err, &nf)
}
