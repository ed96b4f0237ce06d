package history

import (
	"encoding/json"

	"github.com/omarthisside/annoted/internal/annotation"
)

// Action tags the command variant.
type Action string

const (
	ActionAddStroke      Action = "add_stroke"
	ActionAddShape       Action = "add_shape"
	ActionAddText        Action = "add_text"
	ActionEditText       Action = "edit_text"
	ActionMoveAnnotation Action = "move_annotation"
	ActionMoveText       Action = "move_text"
	ActionDelete         Action = "delete"
	ActionClearAll       Action = "clear_all"
)

// Command records one committed state transition. Every variant carries
// full snapshots rather than deltas, so replaying a log never depends on
// in-memory object identity, only on log order.
type Command struct {
	Action Action `json:"action"`

	// add_stroke / add_shape
	Annotation *annotation.Annotation `json:"annotation,omitempty"`
	// add_text
	Text *annotation.Text `json:"text,omitempty"`

	// edit_text, move_*, delete
	TargetID string `json:"targetId,omitempty"`

	// edit_text
	OldContent string `json:"oldContent,omitempty"`
	NewContent string `json:"newContent,omitempty"`

	// move_annotation: full before/after snapshots
	BeforeAnnotation *annotation.Annotation `json:"beforeAnnotation,omitempty"`
	AfterAnnotation  *annotation.Annotation `json:"afterAnnotation,omitempty"`
	// move_text
	BeforeText *annotation.Text `json:"beforeText,omitempty"`
	AfterText  *annotation.Text `json:"afterText,omitempty"`

	// delete / clear_all keep what they removed so the log stays fully
	// replayable and reversible on its own.
	RemovedIsText      bool                     `json:"removedIsText,omitempty"`
	RemovedAnnotation  *annotation.Annotation   `json:"removedAnnotation,omitempty"`
	RemovedText        *annotation.Text         `json:"removedText,omitempty"`
	RemovedAnnotations []*annotation.Annotation `json:"removedAnnotations,omitempty"`
	RemovedTexts       []*annotation.Text       `json:"removedTexts,omitempty"`
}

// Clone deep-copies the command through a JSON round trip. Command graphs
// are small (tens of annotations per page), so the simple copy wins over
// a hand-written one.
func (c *Command) Clone() *Command {
	data, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var cp Command
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil
	}
	return &cp
}

// AddStroke builds the command committing a finished pen/highlighter path.
func AddStroke(a *annotation.Annotation) *Command {
	return &Command{Action: ActionAddStroke, Annotation: a.Clone()}
}

// AddShape builds the command committing a rectangle, circle or arrow.
func AddShape(a *annotation.Annotation) *Command {
	return &Command{Action: ActionAddShape, Annotation: a.Clone()}
}

// AddText builds the command committing a new text annotation.
func AddText(t *annotation.Text) *Command {
	return &Command{Action: ActionAddText, Text: t.Clone()}
}

// EditText builds the command recording a text content change.
func EditText(id, oldContent, newContent string) *Command {
	return &Command{Action: ActionEditText, TargetID: id, OldContent: oldContent, NewContent: newContent}
}

// MoveAnnotation builds the command recording a completed drag.
func MoveAnnotation(before, after *annotation.Annotation) *Command {
	return &Command{
		Action:           ActionMoveAnnotation,
		TargetID:         before.ID,
		BeforeAnnotation: before.Clone(),
		AfterAnnotation:  after.Clone(),
	}
}

// MoveText builds the command recording a completed text drag.
func MoveText(before, after *annotation.Text) *Command {
	return &Command{
		Action:     ActionMoveText,
		TargetID:   before.ID,
		BeforeText: before.Clone(),
		AfterText:  after.Clone(),
	}
}

// Delete builds the command removing one annotation by id.
func Delete(a *annotation.Annotation) *Command {
	return &Command{Action: ActionDelete, TargetID: a.ID, RemovedAnnotation: a.Clone()}
}

// DeleteText builds the command removing one text annotation by id.
func DeleteText(t *annotation.Text) *Command {
	return &Command{Action: ActionDelete, TargetID: t.ID, RemovedIsText: true, RemovedText: t.Clone()}
}

// ClearAll builds the command wiping the page; the log fills in the
// removal snapshots when the command executes.
func ClearAll() *Command {
	return &Command{Action: ActionClearAll}
}
