package nav

import (
	"container/heap"

	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

// Default search bounds.
const (
	DefaultMaxRadius     = 100.0
	DefaultMaxIterations = 1000
	DefaultGoalRadius    = 2.0
)

// Request is a single planning call. It is created and consumed within Plan.
type Request struct {
	Start geom.Location
	Goal  geom.Location
}

// Result describes how a search ended.
type Result struct {
	// Waypoints are feet positions from the start cell to the cell that reached the goal radius.
	Waypoints []geom.Vec3
	// Cells are the lattice cells matching Waypoints.
	Cells []geom.Cell
	// Iterations is the number of frontier expansions performed.
	Iterations int
}

// Planner runs bounded A* searches.
//
// Invariant: every search performs at most MaxIterations expansions.
type Planner struct {
	oracle        Oracle
	MaxRadius     float64
	MaxIterations int
	GoalRadius    float64
}

// NewPlanner constructs a Planner with the default search bounds.
//
// Precondition: oracle must not be nil.
func NewPlanner(oracle Oracle) *Planner {
	if oracle == nil {
		panic("nav.NewPlanner: oracle must not be nil")
	}
	return &Planner{
		oracle:        oracle,
		MaxRadius:     DefaultMaxRadius,
		MaxIterations: DefaultMaxIterations,
		GoalRadius:    DefaultGoalRadius,
	}
}

// Plan searches for a walkable route from req.Start to req.Goal.
//
// Postcondition: Returns (result, true) with at least one waypoint on success;
// returns (Result{}, false) when the domains differ, the goal lies beyond
// MaxRadius, the frontier is exhausted, or the iteration budget is spent.
// No path is a normal outcome; callers fall back to direct movement.
func (p *Planner) Plan(req Request) (Result, bool) {
	if !req.Start.SameDomain(req.Goal) {
		return Result{}, false
	}
	domain := req.Start.Domain
	start := geom.CellOf(req.Start.Pos)
	goal := geom.CellOf(req.Goal.Pos)
	if start.Dist(goal) > p.MaxRadius {
		return Result{}, false
	}

	open := &openSet{}
	heap.Push(open, &node{cell: start, g: 0, f: start.Manhattan(goal)})
	cameFrom := make(map[geom.Cell]geom.Cell)
	gScore := map[geom.Cell]int{start: 0}
	closed := make(map[geom.Cell]bool)

	iterations := 0
	for open.Len() > 0 && iterations < p.MaxIterations {
		iterations++
		cur := heap.Pop(open).(*node)
		if closed[cur.cell] {
			continue
		}
		if cur.cell.Dist(goal) < p.GoalRadius {
			cells := reconstruct(cameFrom, cur.cell)
			wps := make([]geom.Vec3, len(cells))
			for i, c := range cells {
				wps[i] = c.Feet()
			}
			return Result{Waypoints: wps, Cells: cells, Iterations: iterations}, true
		}
		closed[cur.cell] = true

		for _, d := range horizontal {
			cand := cur.cell.Offset(d[0], 0, d[1])
			kind := Classify(p.oracle, domain, cand)
			if kind == StepBlocked {
				continue
			}
			next := Destination(cand, kind)
			if closed[next] {
				continue
			}
			tentative := cur.g + 1
			if prev, ok := gScore[next]; ok && tentative >= prev {
				continue
			}
			cameFrom[next] = cur.cell
			gScore[next] = tentative
			heap.Push(open, &node{cell: next, g: tentative, f: tentative + next.Manhattan(goal)})
		}
	}
	return Result{Iterations: iterations}, false
}

// reconstruct walks the predecessor map from end back to the start and reverses it.
func reconstruct(cameFrom map[geom.Cell]geom.Cell, end geom.Cell) []geom.Cell {
	path := []geom.Cell{end}
	for {
		prev, ok := cameFrom[path[len(path)-1]]
		if !ok {
			break
		}
		path = append(path, prev)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type node struct {
	cell  geom.Cell
	g, f  int
	index int
}

// openSet is a min-heap on f = g + h.
type openSet []*node

func (o openSet) Len() int           { return len(o) }
func (o openSet) Less(i, j int) bool { return o[i].f < o[j].f }
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	return n
}
