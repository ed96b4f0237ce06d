// Package controller translates user intent (pointer gestures, tool
// picks, keyboard shortcuts) into annotation commands. It never touches
// the store directly; every committed change goes through the command
// log, and drag previews live outside the store entirely.
package controller

import (
	"strings"

	"github.com/omarthisside/annoted/internal/annotation"
	"github.com/omarthisside/annoted/internal/history"
)

// Previewer receives the uncommitted translation of a move drag. The
// renderer implements it.
type Previewer interface {
	SetPreview(id string, dx, dy float64)
	ClearPreview()
}

// Controller owns the tool state and in-progress gesture for one page.
type Controller struct {
	store   *annotation.Store
	log     *history.Log
	preview Previewer
	tools   annotation.ToolState

	// in-progress pen/highlighter path
	drawing    bool
	activePath []annotation.Point

	// in-progress shape drag
	shaping    bool
	shapeStart annotation.Point
	shapeEnd   annotation.Point

	// in-progress move drag
	moveHit        *annotation.Hit
	moveStart      annotation.Point
	moveEnd        annotation.Point
	moveBefore     *annotation.Annotation
	moveBeforeText *annotation.Text

	// text being edited (a detached copy; committed on blur)
	editing         *annotation.Text
	editingNew      bool
	editingOriginal string

	// capture triggers, wired by the daemon
	OnCapture  func()
	OnFullPage func()
	// OnToolState fires after any tool-state change so the session layer
	// can persist it (and the global pen width).
	OnToolState func(annotation.ToolState)
}

// New builds a controller with default tool state. preview may be nil.
func New(store *annotation.Store, log *history.Log, preview Previewer) *Controller {
	return &Controller{
		store:   store,
		log:     log,
		preview: preview,
		tools:   annotation.DefaultToolState(),
	}
}

// Tools returns the current tool-state snapshot.
func (c *Controller) Tools() annotation.ToolState { return c.tools }

// SetTools replaces the whole tool state, e.g. on session restore.
func (c *Controller) SetTools(ts annotation.ToolState) {
	c.tools = ts
	c.toolsChanged()
}

// SetTool selects the active tool.
func (c *Controller) SetTool(t annotation.Tool) {
	c.tools.Tool = t
	if k := annotation.ShapeKind(t); k != "" {
		c.tools.LastShape = k
	}
	c.toolsChanged()
}

// SetColor selects the active palette color.
func (c *Controller) SetColor(col annotation.Color) {
	c.tools.Color = col
	c.toolsChanged()
}

// SetWidth selects the stroke width.
func (c *Controller) SetWidth(w int) {
	if w < 1 {
		w = 1
	}
	c.tools.Width = w
	c.toolsChanged()
}

// SetFill selects outline or filled shapes.
func (c *Controller) SetFill(f annotation.FillMode) {
	c.tools.Fill = f
	c.toolsChanged()
}

func (c *Controller) toolsChanged() {
	if c.OnToolState != nil {
		c.OnToolState(c.tools)
	}
}

// PointerDown starts a gesture at the document-space point p.
func (c *Controller) PointerDown(p annotation.Point) {
	switch c.tools.Tool {
	case annotation.ToolPen, annotation.ToolHighlighter:
		c.drawing = true
		c.activePath = []annotation.Point{p}
	case annotation.ToolRectangle, annotation.ToolCircle, annotation.ToolArrow:
		c.shaping = true
		c.shapeStart = p
		c.shapeEnd = p
	case annotation.ToolText:
		c.pointerDownText(p)
	case annotation.ToolMove:
		c.pointerDownMove(p)
	case annotation.ToolErase:
		c.erase(p)
	}
}

// PointerMove extends the current gesture.
func (c *Controller) PointerMove(p annotation.Point) {
	switch {
	case c.drawing:
		c.activePath = append(c.activePath, p)
	case c.shaping:
		c.shapeEnd = p
	case c.moveHit != nil:
		c.moveEnd = p
		if c.preview != nil {
			c.preview.SetPreview(c.moveHit.ID, p.X-c.moveStart.X, p.Y-c.moveStart.Y)
		}
	}
}

// PointerUp finishes the current gesture, committing a command when the
// gesture produced a real edit.
func (c *Controller) PointerUp(p annotation.Point) {
	switch {
	case c.drawing:
		c.drawing = false
		path := c.activePath
		c.activePath = nil
		// A click with no drag leaves a single point; that is a no-op,
		// not a stroke.
		if len(path) < 2 {
			return
		}
		kind := annotation.KindPen
		if c.tools.Tool == annotation.ToolHighlighter {
			kind = annotation.KindHighlighter
		}
		c.log.Execute(history.AddStroke(&annotation.Annotation{
			ID:     annotation.NewID(),
			Kind:   kind,
			Points: path,
			Color:  c.tools.Color,
			Width:  c.tools.Width,
		}))
	case c.shaping:
		c.shaping = false
		c.shapeEnd = p
		if c.shapeStart == c.shapeEnd {
			return
		}
		kind := annotation.ShapeKind(c.tools.Tool)
		c.tools.LastShape = kind
		c.log.Execute(history.AddShape(&annotation.Annotation{
			ID:    annotation.NewID(),
			Kind:  kind,
			Start: c.shapeStart,
			End:   c.shapeEnd,
			Color: c.tools.Color,
			Width: c.tools.Width,
			Fill:  c.tools.Fill,
		}))
	case c.moveHit != nil:
		c.finishMove(p)
	}
}

func (c *Controller) pointerDownMove(p annotation.Point) {
	hit := c.store.HitTest(p)
	if hit == nil {
		return
	}
	c.moveHit = hit
	c.moveStart = p
	c.moveEnd = p
	if hit.IsText {
		c.moveBeforeText = c.store.FindText(hit.ID).Clone()
	} else {
		c.moveBefore = c.store.Find(hit.ID).Clone()
	}
}

func (c *Controller) finishMove(p annotation.Point) {
	hit := c.moveHit
	c.moveHit = nil
	if c.preview != nil {
		c.preview.ClearPreview()
	}
	dx := p.X - c.moveStart.X
	dy := p.Y - c.moveStart.Y
	before, beforeText := c.moveBefore, c.moveBeforeText
	c.moveBefore, c.moveBeforeText = nil, nil
	if dx == 0 && dy == 0 {
		return
	}
	if hit.IsText {
		after := beforeText.Clone()
		after.X += dx
		after.Y += dy
		c.log.Execute(history.MoveText(beforeText, after))
		return
	}
	after := before.Clone()
	after.Translate(dx, dy)
	c.log.Execute(history.MoveAnnotation(before, after))
}

func (c *Controller) erase(p annotation.Point) {
	hit := c.store.HitTest(p)
	if hit == nil {
		return
	}
	if hit.IsText {
		c.log.Execute(history.DeleteText(c.store.FindText(hit.ID)))
		return
	}
	c.log.Execute(history.Delete(c.store.Find(hit.ID)))
}

func (c *Controller) pointerDownText(p annotation.Point) {
	// Clicking elsewhere while editing blurs the current entry first.
	if c.editing != nil {
		c.CommitText()
	}
	if hit := c.store.HitTest(p); hit != nil && hit.IsText {
		existing := c.store.FindText(hit.ID)
		c.editing = existing.Clone()
		c.editingNew = false
		c.editingOriginal = existing.Content
		return
	}
	c.editing = &annotation.Text{
		ID:    annotation.NewID(),
		X:     p.X,
		Y:     p.Y,
		Color: c.tools.Color,
	}
	c.editingNew = true
	c.editingOriginal = ""
}

// EditingText reports whether a text entry currently has focus; keyboard
// shortcuts are suppressed while it does.
func (c *Controller) EditingText() bool { return c.editing != nil }

// SetEditingContent updates the in-flight text entry. Transiently empty
// content is fine; emptiness only matters on commit.
func (c *Controller) SetEditingContent(content string) {
	if c.editing != nil {
		c.editing.Content = content
	}
}

// CommitText is the blur: a new non-empty entry becomes an add, a
// changed existing one an edit, and an entry left empty a delete.
func (c *Controller) CommitText() {
	editing := c.editing
	c.editing = nil
	if editing == nil {
		return
	}
	trimmed := strings.TrimSpace(editing.Content)
	if c.editingNew {
		if trimmed == "" {
			return
		}
		c.log.Execute(history.AddText(editing))
		return
	}
	if trimmed == "" {
		orig := editing.Clone()
		orig.Content = c.editingOriginal
		c.log.Execute(history.DeleteText(orig))
		return
	}
	if editing.Content != c.editingOriginal {
		c.log.Execute(history.EditText(editing.ID, c.editingOriginal, editing.Content))
	}
}

// ClearAll wipes the page as a single undoable command.
func (c *Controller) ClearAll() {
	if c.store.Empty() {
		return
	}
	c.log.Execute(history.ClearAll())
}
