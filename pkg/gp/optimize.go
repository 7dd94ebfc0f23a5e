package gp

// OptimizeForEvaluation folds constant subtrees into leaves. A primitive is
// folded when it and every node below it are pure; the leaf keeps the
// primitive's return type and holds the computed value. Subtrees whose
// evaluation fails are left in place so the failure still surfaces at
// evaluation time.
//
// The result evaluates exactly like t for every input, but folded leaves are
// not registered anywhere and cannot be serialized.
func OptimizeForEvaluation(t *Tree) (*Tree, error) {
	if _, err := t.IterateAll(); err != nil {
		return nil, err
	}
	opt, _, err := fold(t)
	return opt, err
}

// fold returns the optimized subtree and whether it is constant.
func fold(t *Tree) (*Tree, bool, error) {
	if len(t.children) == 0 {
		return t, t.factory.Pure(), nil
	}
	children := make([]*Tree, len(t.children))
	changed := false
	constant := t.factory.Pure()
	for i, c := range t.children {
		oc, cc, err := fold(c)
		if err != nil {
			return nil, false, err
		}
		children[i] = oc
		changed = changed || oc != c
		constant = constant && cc
	}
	node := t
	if changed {
		var err error
		if node, err = t.ReplaceChildren(children); err != nil {
			return nil, false, err
		}
	}
	if !constant {
		return node, false, nil
	}
	v, err := node.Evaluate()
	if err != nil {
		return node, false, nil
	}
	return constantNode(node.ReturnType(), v), true, nil
}
