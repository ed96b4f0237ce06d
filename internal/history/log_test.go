package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarthisside/annoted/internal/annotation"
)

func stroke(id string, pts ...annotation.Point) *annotation.Annotation {
	return &annotation.Annotation{
		ID:     id,
		Kind:   annotation.KindPen,
		Points: pts,
		Color:  annotation.ColorRed,
		Width:  3,
	}
}

func rect(id string) *annotation.Annotation {
	return &annotation.Annotation{
		ID:    id,
		Kind:  annotation.KindRectangle,
		Start: annotation.Point{X: 10, Y: 10},
		End:   annotation.Point{X: 50, Y: 40},
		Color: annotation.ColorBlue,
		Width: 2,
		Fill:  annotation.FillOutline,
	}
}

func TestExecuteAppliesAndCommits(t *testing.T) {
	store := annotation.NewStore()
	log := New(store)

	log.Execute(AddStroke(stroke("s1", annotation.Point{X: 1, Y: 1}, annotation.Point{X: 2, Y: 2})))

	require.Len(t, store.Annotations(), 1)
	assert.Equal(t, "s1", store.Annotations()[0].ID)
	assert.True(t, log.CanUndo())
	assert.False(t, log.CanRedo())
}

func TestUndoRedoExampleScenario(t *testing.T) {
	store := annotation.NewStore()
	log := New(store)

	log.Execute(AddStroke(stroke("s1", annotation.Point{X: 1, Y: 1}, annotation.Point{X: 2, Y: 2})))
	log.Execute(AddShape(rect("r1")))
	require.Len(t, store.Annotations(), 2)

	require.True(t, log.Undo())
	require.Len(t, store.Annotations(), 1)
	assert.Equal(t, "s1", store.Annotations()[0].ID)

	require.True(t, log.Undo())
	assert.Empty(t, store.Annotations())

	require.True(t, log.Redo())
	require.Len(t, store.Annotations(), 1)
	assert.Equal(t, "s1", store.Annotations()[0].ID)
}

func TestUndoRedoInverseLaw(t *testing.T) {
	store := annotation.NewStore()
	log := New(store)

	log.Execute(AddStroke(stroke("s1", annotation.Point{X: 1, Y: 1}, annotation.Point{X: 2, Y: 2})))
	log.Execute(AddShape(rect("r1")))
	before := rect("r1")
	after := rect("r1")
	after.Translate(20, 5)
	log.Execute(MoveAnnotation(before, after))

	moved := store.Find("r1")
	require.NotNil(t, moved)
	want := *moved

	require.True(t, log.Undo())
	require.True(t, log.Redo())

	got := store.Find("r1")
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
	assert.Len(t, store.Annotations(), 2)
}

func TestNewEditClearsRedo(t *testing.T) {
	store := annotation.NewStore()
	log := New(store)

	log.Execute(AddStroke(stroke("s1", annotation.Point{X: 1, Y: 1}, annotation.Point{X: 2, Y: 2})))
	log.Execute(AddShape(rect("r1")))
	require.True(t, log.Undo())
	require.True(t, log.CanRedo())

	log.Execute(AddShape(rect("r2")))
	assert.False(t, log.CanRedo())
	assert.False(t, log.Redo())
}

func TestUndoEmptyIsNoop(t *testing.T) {
	log := New(annotation.NewStore())
	assert.False(t, log.Undo())
	assert.False(t, log.Redo())
}

func TestReplayDeterminism(t *testing.T) {
	cmds := []*Command{
		AddStroke(stroke("s1", annotation.Point{X: 1, Y: 1}, annotation.Point{X: 5, Y: 5})),
		AddShape(rect("r1")),
		AddText(&annotation.Text{ID: "t1", X: 30, Y: 30, Content: "hello", Color: annotation.ColorBlack}),
		EditText("t1", "hello", "hello there"),
		MoveAnnotation(rect("r1"), func() *annotation.Annotation {
			a := rect("r1")
			a.Translate(100, 0)
			return a
		}()),
		DeleteText(&annotation.Text{ID: "t1", X: 30, Y: 30, Content: "hello there", Color: annotation.ColorBlack}),
	}

	incStore := annotation.NewStore()
	incLog := New(incStore)
	for _, c := range cmds {
		incLog.Execute(c.Clone())
	}

	repStore := annotation.NewStore()
	repLog := New(repStore)
	repLog.Replay(cmds)

	assert.Equal(t, incStore.Annotations(), repStore.Annotations())
	assert.Equal(t, incStore.Texts(), repStore.Texts())
}

func TestClearAllIsUndoable(t *testing.T) {
	store := annotation.NewStore()
	log := New(store)

	log.Execute(AddStroke(stroke("s1", annotation.Point{X: 1, Y: 1}, annotation.Point{X: 2, Y: 2})))
	log.Execute(AddText(&annotation.Text{ID: "t1", X: 5, Y: 5, Content: "note", Color: annotation.ColorRed}))
	log.Execute(ClearAll())
	assert.True(t, store.Empty())

	require.True(t, log.Undo())
	assert.Len(t, store.Annotations(), 1)
	assert.Len(t, store.Texts(), 1)

	require.True(t, log.Redo())
	assert.True(t, store.Empty())
}

func TestDeleteIsUndoable(t *testing.T) {
	store := annotation.NewStore()
	log := New(store)

	s := stroke("s1", annotation.Point{X: 1, Y: 1}, annotation.Point{X: 2, Y: 2})
	log.Execute(AddStroke(s))
	log.Execute(Delete(s))
	assert.Empty(t, store.Annotations())

	require.True(t, log.Undo())
	require.Len(t, store.Annotations(), 1)
	assert.Equal(t, "s1", store.Annotations()[0].ID)
}

func TestReplaySkipsMissingTargets(t *testing.T) {
	store := annotation.NewStore()
	log := New(store)

	moved := rect("ghost")
	moved.Translate(10, 10)
	assert.NotPanics(t, func() {
		log.Replay([]*Command{
			EditText("nope", "a", "b"),
			MoveAnnotation(rect("ghost"), moved),
			{Action: ActionDelete, TargetID: "nope"},
		})
	})
	assert.True(t, store.Empty())
}

func TestEditTextReplaysLastContent(t *testing.T) {
	store := annotation.NewStore()
	log := New(store)

	log.Execute(AddText(&annotation.Text{ID: "t1", X: 0, Y: 0, Content: "one", Color: annotation.ColorBlack}))
	log.Execute(EditText("t1", "one", "two"))
	log.Execute(EditText("t1", "two", "three"))

	require.True(t, log.Undo())
	txt := store.FindText("t1")
	require.NotNil(t, txt)
	assert.Equal(t, "two", txt.Content)
}

func TestExecuteIsolatesCallerMutation(t *testing.T) {
	store := annotation.NewStore()
	log := New(store)

	s := stroke("s1", annotation.Point{X: 1, Y: 1}, annotation.Point{X: 2, Y: 2})
	cmd := AddStroke(s)
	log.Execute(cmd)
	// mutating the caller's annotation must not rewrite history
	s.Points[0].X = 999
	cmd.Annotation.Points[0].X = 999

	require.True(t, log.Undo())
	require.True(t, log.Redo())
	assert.Equal(t, 1.0, store.Annotations()[0].Points[0].X)
}

func TestOnChangeAndOnCommitFire(t *testing.T) {
	store := annotation.NewStore()
	log := New(store)
	var changes, commits int
	log.SetOnChange(func() { changes++ })
	log.SetOnCommit(func() { commits++ })

	log.Execute(AddShape(rect("r1")))
	log.Undo()
	log.Redo()

	assert.Equal(t, 3, changes)
	assert.Equal(t, 3, commits)
}
