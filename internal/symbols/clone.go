package symbols

// Clone deep-copies the tree rooted at root. Re-export edges are copied with
// their Module, Target and Next pointers remapped into the copy; pointers that
// leave the copied tree are kept as they are.
func Clone(root *Symbol) *Symbol {
	syms := make(map[*Symbol]*Symbol)
	edges := make(map[*ReExportEdge]*ReExportEdge)

	var cp func(s, parent *Symbol) *Symbol
	cp = func(s, parent *Symbol) *Symbol {
		n := *s
		n.Parent = parent
		n.Attributes = append([]string(nil), s.Attributes...)
		n.InnerDoc = append([]string(nil), s.InnerDoc...)
		n.Patterns = append([]string(nil), s.Patterns...)
		n.doc = append([]string(nil), s.doc...)
		n.Children = make([]*Symbol, 0, len(s.Children))
		syms[s] = &n

		if s.Module != nil {
			mi := *s.Module
			mi.Path = append([]string(nil), s.Module.Path...)
			mi.Units = append([]string(nil), s.Module.Units...)
			mi.ReExports = make([]*ReExportEdge, len(s.Module.ReExports))
			for i, e := range s.Module.ReExports {
				ne := *e
				ne.Path = append([]string(nil), e.Path...)
				ne.Doc = append([]string(nil), e.Doc...)
				mi.ReExports[i] = &ne
				edges[e] = &ne
			}
			n.Module = &mi
		}
		for _, c := range s.Children {
			n.Children = append(n.Children, cp(c, &n))
		}
		return &n
	}
	out := cp(root, root.Parent)

	for _, ne := range edges {
		if m, ok := syms[ne.Module]; ok {
			ne.Module = m
		}
		if t, ok := syms[ne.Target]; ok {
			ne.Target = t
		}
		if nx, ok := edges[ne.Next]; ok {
			ne.Next = nx
		}
	}
	return out
}
