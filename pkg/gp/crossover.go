package gp

import "math/rand"

// CrossoverOnePoint swaps one subtree between a and b. The swap points are
// proper descendants of equal return type: a common type is drawn uniformly
// from those present in both trees, then one node of that type from each.
// Roots never swap, so each child keeps its parent's top-level shape.
//
// If either tree is a single node, or the trees share no type below the
// root, a and b are returned as is. Inputs are never modified.
func CrossoverOnePoint(rng *rand.Rand, a, b *Tree) (*Tree, *Tree, error) {
	if a.Size() == 1 || b.Size() == 1 {
		return a, b, nil
	}
	da, err := a.descendants()
	if err != nil {
		return nil, nil, err
	}
	db, err := b.descendants()
	if err != nil {
		return nil, nil, err
	}

	typesA, groupsA := groupByType(da)
	_, groupsB := groupByType(db)
	var common []NodeType
	for _, t := range typesA {
		if _, ok := groupsB[t]; ok {
			common = append(common, t)
		}
	}
	if len(common) == 0 {
		return a, b, nil
	}

	t := common[rng.Intn(len(common))]
	na := groupsA[t][rng.Intn(len(groupsA[t]))]
	nb := groupsB[t][rng.Intn(len(groupsB[t]))]

	childA, err := a.ReplaceDescendant(na, nb)
	if err != nil {
		return nil, nil, err
	}
	childB, err := b.ReplaceDescendant(nb, na)
	if err != nil {
		return nil, nil, err
	}
	return childA, childB, nil
}

// groupByType buckets nodes by return type. types lists the keys in order
// of first appearance so draws depend only on the seed.
func groupByType(nodes []*Tree) (types []NodeType, groups map[NodeType][]*Tree) {
	groups = make(map[NodeType][]*Tree)
	for _, n := range nodes {
		t := n.ReturnType()
		if _, ok := groups[t]; !ok {
			types = append(types, t)
		}
		groups[t] = append(groups[t], n)
	}
	return types, groups
}
