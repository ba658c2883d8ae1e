// Package envdiff models the environment change produced by one direnv load:
// an ordered set of variables to export and variables to unset.
package envdiff

import "sort"

// Change는 변수 하나의 변경이다. Unset이면 Value는 무시된다.
type Change struct {
	Name  string
	Value string
	Unset bool
}

// Diff는 한 번의 로드가 만든 변경 집합이다. 이름 순으로 정렬되어 있고 이름은 유일하다.
// 생성 후에는 변경되지 않는다.
type Diff struct {
	changes []Change
}

// New는 direnv export json 형태의 맵에서 Diff를 만든다. nil 값은 unset이다.
func New(vars map[string]*string) Diff {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	changes := make([]Change, 0, len(names))
	for _, name := range names {
		v := vars[name]
		if v == nil {
			changes = append(changes, Change{Name: name, Unset: true})
			continue
		}
		changes = append(changes, Change{Name: name, Value: *v})
	}
	return Diff{changes: changes}
}

// Changes는 변경 목록의 복사본을 반환한다.
func (d Diff) Changes() []Change {
	out := make([]Change, len(d.changes))
	copy(out, d.changes)
	return out
}

// Len은 변경 개수다.
func (d Diff) Len() int { return len(d.changes) }

// IsEmpty는 변경이 없으면 true다.
func (d Diff) IsEmpty() bool { return len(d.changes) == 0 }

// Lookup은 name에 대한 변경을 찾는다.
func (d Diff) Lookup(name string) (Change, bool) {
	i := sort.Search(len(d.changes), func(i int) bool { return d.changes[i].Name >= name })
	if i < len(d.changes) && d.changes[i].Name == name {
		return d.changes[i], true
	}
	return Change{}, false
}
