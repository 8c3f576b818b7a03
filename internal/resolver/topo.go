package resolver

import "sort"

// TopoOrder returns a deterministic dependency-first ordering of the
// given selections: a package always appears after every package it
// depends on. Ties are broken lexicographically by name.
func TopoOrder(selected []Selection) ([]Selection, error) {
	byName := make(map[string]Selection, len(selected))
	for _, s := range selected {
		byName[s.Name] = s
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(selected))
	var order []Selection
	var path []string

	names := make([]string, 0, len(selected))
	for _, s := range selected {
		names = append(names, s.Name)
	}
	sort.Strings(names)

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			idx := -1
			for i, n := range path {
				if n == name {
					idx = i
					break
				}
			}
			cycle := append([]string{}, path[idx:]...)
			sort.Strings(cycle)
			return &cycleError{nodes: cycle}
		}

		color[name] = gray
		path = append(path, name)

		sel, ok := byName[name]
		if ok {
			depNames := sortedDepNames(sel.Manifest.Dependencies)
			for _, dep := range depNames {
				if _, known := byName[dep]; !known {
					continue
				}
				if err := visit(dep); err != nil {
					return err
				}
			}
			order = append(order, sel)
		}

		color[name] = black
		path = path[:len(path)-1]
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	return order, nil
}
