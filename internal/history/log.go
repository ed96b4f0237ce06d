package history

import (
	"log"

	"github.com/omarthisside/annoted/internal/annotation"
)

// Log is the undo/redo engine. It owns the committed history and a stack
// of undone-but-redoable commands; the annotation store is a disposable
// projection it rebuilds by replay. Undo pops and replays the remainder
// from scratch rather than applying inverses: move and edit commands
// carry full before/after snapshots, and replay-from-empty stays correct
// no matter how many intervening commands touched the same entity. O(n)
// per undo is fine at the tens-of-annotations scale a page sees.
type Log struct {
	store     *annotation.Store
	committed []*Command
	redoable  []*Command

	onChange func() // renderer subscription, fired after any store change
	onCommit func() // persistence hook, fired after committed history moves
}

// New creates an empty log driving the given store.
func New(store *annotation.Store) *Log {
	return &Log{store: store}
}

// SetOnChange registers the redraw notification. The renderer subscribes
// here instead of being called from event handlers.
func (l *Log) SetOnChange(fn func()) { l.onChange = fn }

// SetOnCommit registers the best-effort persistence hook.
func (l *Log) SetOnCommit(fn func()) { l.onCommit = fn }

// Execute applies the command to the live store, appends a deep copy to
// the committed history and clears the redo stack. This is the only path
// through which a user edit reaches the store.
func (l *Log) Execute(cmd *Command) {
	if cmd.Action == ActionClearAll {
		cmd.RemovedAnnotations, cmd.RemovedTexts = l.store.Snapshot()
	}
	l.apply(cmd)
	l.committed = append(l.committed, cmd.Clone())
	l.redoable = nil
	l.changed()
	l.commit()
}

// Undo moves the newest committed command to the redo stack and rebuilds
// the store from the rest. No-op on an empty history.
func (l *Log) Undo() bool {
	if len(l.committed) == 0 {
		return false
	}
	last := l.committed[len(l.committed)-1]
	l.committed = l.committed[:len(l.committed)-1]
	l.redoable = append(l.redoable, last)
	l.rebuild()
	l.changed()
	l.commit()
	return true
}

// Redo moves the most recently undone command back onto the committed
// stack and rebuilds. No-op if nothing was undone.
func (l *Log) Redo() bool {
	if len(l.redoable) == 0 {
		return false
	}
	last := l.redoable[len(l.redoable)-1]
	l.redoable = l.redoable[:len(l.redoable)-1]
	l.committed = append(l.committed, last)
	l.rebuild()
	l.changed()
	l.commit()
	return true
}

// Replay clears both stacks and the store, then applies the given
// sequence as the new committed history. Used for session restore and
// share-link loads.
func (l *Log) Replay(cmds []*Command) {
	l.committed = make([]*Command, 0, len(cmds))
	for _, c := range cmds {
		l.committed = append(l.committed, c.Clone())
	}
	l.redoable = nil
	l.rebuild()
	l.changed()
}

// CanUndo reports whether the committed stack is non-empty.
func (l *Log) CanUndo() bool { return len(l.committed) > 0 }

// CanRedo reports whether an undo can be re-applied.
func (l *Log) CanRedo() bool { return len(l.redoable) > 0 }

// Commands returns deep copies of the committed history for
// serialization.
func (l *Log) Commands() []*Command {
	out := make([]*Command, len(l.committed))
	for i, c := range l.committed {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the committed history length.
func (l *Log) Len() int { return len(l.committed) }

func (l *Log) changed() {
	if l.onChange != nil {
		l.onChange()
	}
}

func (l *Log) commit() {
	if l.onCommit != nil {
		l.onCommit()
	}
}

// rebuild wipes the store and applies the committed sequence in order.
func (l *Log) rebuild() {
	l.store.Clear()
	for _, c := range l.committed {
		l.apply(c)
	}
}

// apply performs one command's forward effect. Commands whose target id
// no longer exists are skipped: append-only ids should make that
// impossible, but a stale share payload must not crash the replay.
func (l *Log) apply(cmd *Command) {
	switch cmd.Action {
	case ActionAddStroke, ActionAddShape:
		if cmd.Annotation != nil {
			l.store.Add(cmd.Annotation.Clone())
		}
	case ActionAddText:
		if cmd.Text != nil {
			l.store.AddText(cmd.Text.Clone())
		}
	case ActionEditText:
		if t := l.store.FindText(cmd.TargetID); t != nil {
			t.Content = cmd.NewContent
		} else {
			log.Printf("[history] edit_text target %s missing, skipped", cmd.TargetID)
		}
	case ActionMoveAnnotation:
		if cmd.AfterAnnotation != nil && !l.store.Replace(cmd.AfterAnnotation.Clone()) {
			log.Printf("[history] move target %s missing, skipped", cmd.TargetID)
		}
	case ActionMoveText:
		if cmd.AfterText != nil && !l.store.ReplaceText(cmd.AfterText.Clone()) {
			log.Printf("[history] move_text target %s missing, skipped", cmd.TargetID)
		}
	case ActionDelete:
		if cmd.RemovedIsText {
			l.store.RemoveText(cmd.TargetID)
		} else {
			l.store.Remove(cmd.TargetID)
		}
	case ActionClearAll:
		l.store.Clear()
	default:
		log.Printf("[history] unknown action %q skipped", cmd.Action)
	}
}
