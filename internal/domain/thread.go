package domain

import "sort"

// ThreadNode - комментарий в дереве. Parent и Children - индексы в Thread.Nodes,
// у корневых Parent = -1.
type ThreadNode struct {
	Comment  *Comment
	Parent   int
	Children []int
}

// Thread - дерево комментариев поста, хранится как массив узлов.
type Thread struct {
	Nodes []ThreadNode
	Roots []int
}

// BuildThread строит дерево за один проход. Соседи упорядочены по времени
// создания, затем по id. Комментарий без родителя в наборе считается корневым.
func BuildThread(comments []*Comment) *Thread {
	sorted := make([]*Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	t := &Thread{Nodes: make([]ThreadNode, len(sorted))}
	index := make(map[int64]int, len(sorted))
	for i, c := range sorted {
		t.Nodes[i] = ThreadNode{Comment: c, Parent: -1}
		index[c.ID] = i
	}
	for i, c := range sorted {
		if c.ParentID != nil {
			if p, ok := index[*c.ParentID]; ok && p != i {
				t.Nodes[i].Parent = p
				t.Nodes[p].Children = append(t.Nodes[p].Children, i)
				continue
			}
		}
		t.Roots = append(t.Roots, i)
	}
	return t
}

func (t *Thread) Len() int { return len(t.Nodes) }

// Walk обходит дерево в прямом порядке и передает индекс узла в Nodes.
// Корни имеют глубину 0.
func (t *Thread) Walk(fn func(depth, idx int)) {
	type frame struct{ idx, depth int }
	stack := make([]frame, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{t.Roots[i], 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.Nodes[f.idx]
		fn(f.depth, f.idx)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{n.Children[i], f.depth + 1})
		}
	}
}
