package annotation

// Store holds the live annotations for one page as two flat ordered
// collections. It is a derived projection of the command log: only the
// log's apply/replay path mutates it, and it can always be rebuilt by
// replaying the log from empty. All writes come from a single event loop,
// so the store carries no locking of its own.
type Store struct {
	annotations []*Annotation
	texts       []*Text
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends an annotation. Insertion order is z-order: later entries
// draw on top and win overlapping hit tests.
func (s *Store) Add(a *Annotation) {
	s.annotations = append(s.annotations, a)
}

// AddText appends a text annotation.
func (s *Store) AddText(t *Text) {
	s.texts = append(s.texts, t)
}

// Find returns the annotation with the given id, or nil.
func (s *Store) Find(id string) *Annotation {
	for _, a := range s.annotations {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// FindText returns the text annotation with the given id, or nil.
func (s *Store) FindText(id string) *Text {
	for _, t := range s.texts {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Replace swaps the stored annotation with the same id for the given
// snapshot, keeping its z-position. Returns false if the id is unknown.
func (s *Store) Replace(a *Annotation) bool {
	for i, old := range s.annotations {
		if old.ID == a.ID {
			s.annotations[i] = a
			return true
		}
	}
	return false
}

// ReplaceText swaps the stored text with the same id for the given snapshot.
func (s *Store) ReplaceText(t *Text) bool {
	for i, old := range s.texts {
		if old.ID == t.ID {
			s.texts[i] = t
			return true
		}
	}
	return false
}

// Remove deletes the annotation with the given id. Returns false if absent.
func (s *Store) Remove(id string) bool {
	for i, a := range s.annotations {
		if a.ID == id {
			s.annotations = append(s.annotations[:i], s.annotations[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveText deletes the text annotation with the given id.
func (s *Store) RemoveText(id string) bool {
	for i, t := range s.texts {
		if t.ID == id {
			s.texts = append(s.texts[:i], s.texts[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes everything.
func (s *Store) Clear() {
	s.annotations = nil
	s.texts = nil
}

// Annotations returns the annotations in z-order. The slice is shared;
// callers must not mutate it.
func (s *Store) Annotations() []*Annotation {
	return s.annotations
}

// Texts returns the text annotations in z-order.
func (s *Store) Texts() []*Text {
	return s.texts
}

// Empty reports whether the store holds no annotations of either kind.
func (s *Store) Empty() bool {
	return len(s.annotations) == 0 && len(s.texts) == 0
}

// Snapshot deep-copies the full store contents, used by clear-all commands
// to stay replayable.
func (s *Store) Snapshot() ([]*Annotation, []*Text) {
	anns := make([]*Annotation, len(s.annotations))
	for i, a := range s.annotations {
		anns[i] = a.Clone()
	}
	texts := make([]*Text, len(s.texts))
	for i, t := range s.texts {
		texts[i] = t.Clone()
	}
	return anns, texts
}
