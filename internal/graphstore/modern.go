package graphstore

// NewModern returns the six vertex "modern" sample graph of people and the
// software they created.
func NewModern() (*Graph, error) {
	g, err := New()
	if err != nil {
		return nil, err
	}

	for _, v := range []struct {
		id    int
		label string
		props map[string]any
	}{
		{1, "person", map[string]any{"name": "marko", "age": 29}},
		{2, "person", map[string]any{"name": "vadas", "age": 27}},
		{3, "software", map[string]any{"name": "lop", "lang": "java"}},
		{4, "person", map[string]any{"name": "josh", "age": 32}},
		{5, "software", map[string]any{"name": "ripple", "lang": "java"}},
		{6, "person", map[string]any{"name": "peter", "age": 35}},
	} {
		if _, err := g.AddVertex(v.id, v.label, v.props); err != nil {
			return nil, err
		}
	}

	for _, e := range []struct {
		id, out, in int
		label       string
		weight      float64
	}{
		{7, 1, 2, "knows", 0.5},
		{8, 1, 4, "knows", 1.0},
		{9, 1, 3, "created", 0.4},
		{10, 4, 5, "created", 1.0},
		{11, 4, 3, "created", 0.4},
		{12, 6, 3, "created", 0.2},
	} {
		if _, err := g.AddEdge(e.id, e.label, e.out, e.in, map[string]any{"weight": e.weight}); err != nil {
			return nil, err
		}
	}
	return g, nil
}
