package eventset

func (s *Set) NumAnnotations() int { return s.annotations.Len() }

// Annotation returns a pointer to the i-th annotation. The pointer stays valid as more annotations are added, but the
// annotation it points to may change, as insertions keep annotations sorted.
func (s *Set) Annotation(i int) *Annotation { return s.annotations.Ptr(i) }

func (s *Set) annotationTime(i int) Timestamp { return s.annotations.Ptr(i).Time }

// FirstAnnotationInInterval returns the index of the first annotation in [start, end].
func (s *Set) FirstAnnotationInInterval(start, end Timestamp) int {
	n := s.annotations.Len()
	idx := firstAtOrAfter(n, s.annotationTime, start)
	if idx == n || s.annotations.Ptr(idx).Time > end {
		return NoEvent
	}
	return idx
}

// Annotations returns the annotations in [start, end].
func (s *Set) Annotations(start, end Timestamp) []Annotation {
	var out []Annotation
	idx := s.FirstAnnotationInInterval(start, end)
	if idx == NoEvent {
		return nil
	}
	for _, a := range s.annotations.All(idx) {
		if a.Time > end {
			break
		}
		out = append(out, *a)
	}
	return out
}
