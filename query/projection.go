package query

// Projection shapes a matched document for output.
//
// Select keeps only the listed fields. Exclude drops the listed fields and
// is ignored when Select is non-empty. Transform, if set, runs last on the
// field-limited copy and its result is the projected document.
type Projection struct {
	Select    []string
	Exclude   []string
	Transform func(Document) Document
}

// Project applies p to doc. The input document is never modified; a new
// top-level map is returned unless p is empty.
func Project(doc Document, p Projection) Document {
	out := doc
	switch {
	case len(p.Select) > 0:
		out = make(Document, len(p.Select))
		for _, f := range p.Select {
			if v, ok := doc[f]; ok {
				out[f] = v
			}
		}
	case len(p.Exclude) > 0:
		out = make(Document, len(doc))
		for k, v := range doc {
			out[k] = v
		}
		for _, f := range p.Exclude {
			delete(out, f)
		}
	}
	if p.Transform != nil {
		out = p.Transform(out)
	}
	return out
}
