package regions

import (
	"fmt"
	"math"
	"sort"

	"labeltool/pkg/geometry"
)

const (
	// snapEpsilon is the distance below which two vertices are merged.
	snapEpsilon = 1e-6

	// areaEpsilon is the smallest region area kept in a result.
	areaEpsilon = 1e-9
)

// Op selects a boolean operation.
type Op int

const (
	OpUnion Op = iota
	OpIntersection
	OpDifference
	OpXor
)

func (op Op) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpIntersection:
		return "intersection"
	case OpDifference:
		return "difference"
	case OpXor:
		return "xor"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

func (op Op) apply(a, b bool) bool {
	switch op {
	case OpUnion:
		return a || b
	case OpIntersection:
		return a && b
	case OpDifference:
		return a && !b
	case OpXor:
		return a != b
	default:
		panic(fmt.Sprintf("regions: unknown boolean op %d", int(op)))
	}
}

// Poly is a multi-region polygon operand. When Inverted is set the polygon
// covers everything outside its even-odd interior.
type Poly struct {
	Regions  [][]geometry.Point2D
	Inverted bool
}

// Union returns the area covered by a or b.
func Union(a, b [][]geometry.Point2D) [][]geometry.Point2D {
	return Combine(OpUnion, Poly{Regions: a}, Poly{Regions: b}).Regions
}

// Intersection returns the area covered by both a and b.
func Intersection(a, b [][]geometry.Point2D) [][]geometry.Point2D {
	return Combine(OpIntersection, Poly{Regions: a}, Poly{Regions: b}).Regions
}

// Difference returns the area covered by a but not b.
func Difference(a, b [][]geometry.Point2D) [][]geometry.Point2D {
	return Combine(OpDifference, Poly{Regions: a}, Poly{Regions: b}).Regions
}

// Normalize rewrites a region list into non-overlapping loops with the
// interior on the left (counter-clockwise outer boundaries, clockwise holes
// in a y-up frame). Self-intersections are resolved with the even-odd rule.
func Normalize(a [][]geometry.Point2D) [][]geometry.Point2D {
	return Combine(OpUnion, Poly{Regions: a}, Poly{}).Regions
}

// Combine computes op(a, b). Both operands may contain holes, disjoint parts,
// self-intersections and shared edges. Degenerate input yields fewer or zero
// regions, never an error.
//
// Every input vertex is first snapped onto a common vertex pool. Edges are
// then split at crossings and at pooled vertices lying on them, repeatedly,
// until no edge passes within snapEpsilon of a vertex or another edge. Each
// remaining piece is classified by casting an axis-aligned ray from its
// midpoint. A piece is kept when op differs on its two sides, and kept
// pieces are chained into closed loops.
func Combine(op Op, a, b Poly) Poly {
	result := Poly{Inverted: op.apply(a.Inverted, b.Inverted)}

	pool := newVertexPool()
	edges := collectEdges(a.Regions, 0, pool)
	edges = append(edges, collectEdges(b.Regions, 1, pool)...)
	if len(edges) == 0 {
		return result
	}

	edges = nodeEdges(edges, pool)
	groups := buildGroups(edges)
	c := newClassifier(groups, pool.pts)
	inverted := [2]bool{a.Inverted, b.Inverted}

	var kept []directedEdge
	for i, g := range groups {
		if !g.boundary() {
			continue
		}
		left := c.left(i, inverted)
		right := [2]bool{left[0] != (g.count[0]%2 == 1), left[1] != (g.count[1]%2 == 1)}

		inLeft := op.apply(left[0], left[1])
		inRight := op.apply(right[0], right[1])
		if inLeft == inRight {
			continue
		}
		if inLeft {
			kept = append(kept, directedEdge{from: g.lo, to: g.hi})
		} else {
			kept = append(kept, directedEdge{from: g.hi, to: g.lo})
		}
	}

	result.Regions = chainLoops(kept, pool.pts)
	return result
}

// maxNodingRounds bounds the split passes of nodeEdges.
const maxNodingRounds = 32

// edge joins two pooled vertices and remembers which operand it came from.
type edge struct {
	a, b  int
	owner int
}

// collectEdges snaps each usable region onto the pool and returns its
// closed edge ring.
func collectEdges(regions [][]geometry.Point2D, owner int, pool *vertexPool) []edge {
	var edges []edge
	for _, r := range regions {
		loop := make([]int, 0, len(r))
		for _, p := range r {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
				continue
			}
			v := pool.index(p)
			if len(loop) > 0 && loop[len(loop)-1] == v {
				continue
			}
			loop = append(loop, v)
		}
		for len(loop) > 1 && loop[0] == loop[len(loop)-1] {
			loop = loop[:len(loop)-1]
		}
		if len(loop) < 3 {
			continue
		}
		for i, v := range loop {
			edges = append(edges, edge{a: v, b: loop[(i+1)%len(loop)], owner: owner})
		}
	}
	return edges
}

// noder collects the vertices at which edges must be split in one pass.
type noder struct {
	pool  *vertexPool
	edges []edge
	cuts  map[int][]int
}

// nodeEdges splits edges until no pooled vertex lies within snapEpsilon of
// an edge interior and no two edges cross away from a shared vertex. Crossing
// points are snapped onto the pool before splitting, so every pass works on
// pooled coordinates only.
func nodeEdges(edges []edge, pool *vertexPool) []edge {
	for round := 0; round < maxNodingRounds; round++ {
		n := &noder{pool: pool, edges: edges, cuts: make(map[int][]int)}
		overlappingPairs(edges, pool.pts, n.pair)
		if len(n.cuts) == 0 {
			break
		}
		edges = n.split()
	}
	return edges
}

func (n *noder) cut(i, v int) {
	e := n.edges[i]
	if v == e.a || v == e.b {
		return
	}
	n.cuts[i] = append(n.cuts[i], v)
}

func (n *noder) pair(i, j int) {
	e1, e2 := n.edges[i], n.edges[j]
	pts := n.pool.pts

	// Vertices lying on the other edge: T-junctions and collinear overlaps.
	for _, v := range [2]int{e2.a, e2.b} {
		if onInterior(pts[v], pts[e1.a], pts[e1.b]) {
			n.cut(i, v)
		}
	}
	for _, v := range [2]int{e1.a, e1.b} {
		if onInterior(pts[v], pts[e2.a], pts[e2.b]) {
			n.cut(j, v)
		}
	}
	if e1.a == e2.a || e1.a == e2.b || e1.b == e2.a || e1.b == e2.b {
		return
	}

	// Proper crossing.
	p, q := pts[e1.a], pts[e1.b]
	r, s := pts[e2.a], pts[e2.b]
	d1 := geometry.CrossProduct(p, q, r)
	d2 := geometry.CrossProduct(p, q, s)
	d3 := geometry.CrossProduct(r, s, p)
	d4 := geometry.CrossProduct(r, s, q)
	if !opposite(d1, d2) || !opposite(d3, d4) {
		return
	}
	x := p.Add(q.Sub(p).Scale(d3 / (d3 - d4)))
	v := n.pool.index(x)
	n.cut(i, v)
	n.cut(j, v)
}

// split replaces every cut edge by its pieces, ordered along the edge.
func (n *noder) split() []edge {
	pts := n.pool.pts
	out := make([]edge, 0, len(n.edges)+2*len(n.cuts))
	for i, e := range n.edges {
		vs := n.cuts[i]
		if len(vs) == 0 {
			out = append(out, e)
			continue
		}
		a := pts[e.a]
		d := pts[e.b].Sub(a)
		sort.Slice(vs, func(x, y int) bool {
			return pts[vs[x]].Sub(a).Dot(d) < pts[vs[y]].Sub(a).Dot(d)
		})
		prev := e.a
		for _, v := range vs {
			if v == prev {
				continue
			}
			out = append(out, edge{a: prev, b: v, owner: e.owner})
			prev = v
		}
		if prev != e.b {
			out = append(out, edge{a: prev, b: e.b, owner: e.owner})
		}
	}
	return out
}

func opposite(a, b float64) bool {
	return (a > 0 && b < 0) || (a < 0 && b > 0)
}

// onInterior reports whether e lies within snapEpsilon of segment a-b and
// projects strictly between its endpoints.
func onInterior(e, a, b geometry.Point2D) bool {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return false
	}
	t := e.Sub(a).Dot(ab) / lenSq
	if t <= 0 || t >= 1 {
		return false
	}
	return math.Abs(geometry.CrossProduct(a, b, e)) <= snapEpsilon*math.Sqrt(lenSq)
}

// overlappingPairs calls fn for every pair of edges whose bounding boxes,
// grown by snapEpsilon, overlap. Edges are swept in order of their left
// side so only edges sharing an x range are compared.
func overlappingPairs(edges []edge, pts []geometry.Point2D, fn func(i, j int)) {
	boxes := make([]geometry.Rect, len(edges))
	order := make([]int, len(edges))
	for i, e := range edges {
		boxes[i] = geometry.RectFromCorners(pts[e.a], pts[e.b]).Expand(snapEpsilon)
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool { return boxes[order[x]].X < boxes[order[y]].X })

	for k, i := range order {
		right := boxes[i].X + boxes[i].Width
		for _, j := range order[k+1:] {
			if boxes[j].X > right {
				break
			}
			if boxes[i].Y <= boxes[j].Y+boxes[j].Height && boxes[j].Y <= boxes[i].Y+boxes[i].Height {
				fn(i, j)
			}
		}
	}
}

// vertexPool merges points closer than snapEpsilon into a single index.
// Distinct pooled vertices are always more than snapEpsilon apart.
type vertexPool struct {
	pts   []geometry.Point2D
	cells map[[2]int64][]int
}

func newVertexPool() *vertexPool {
	return &vertexPool{cells: make(map[[2]int64][]int)}
}

func (vp *vertexPool) cell(p geometry.Point2D) [2]int64 {
	return [2]int64{int64(math.Floor(p.X / snapEpsilon)), int64(math.Floor(p.Y / snapEpsilon))}
}

// index returns the nearest pooled vertex within snapEpsilon of p, adding p
// when there is none.
func (vp *vertexPool) index(p geometry.Point2D) int {
	c := vp.cell(p)
	best, bestDist := -1, math.Inf(1)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, i := range vp.cells[[2]int64{c[0] + dx, c[1] + dy}] {
				if d := vp.pts[i].Distance(p); d <= snapEpsilon && d < bestDist {
					best, bestDist = i, d
				}
			}
		}
	}
	if best >= 0 {
		return best
	}
	i := len(vp.pts)
	vp.pts = append(vp.pts, p)
	vp.cells[c] = append(vp.cells[c], i)
	return i
}

// edgeGroup is a unique undirected piece of boundary with the number of
// times each operand contributes it.
type edgeGroup struct {
	lo, hi int
	count  [2]int
}

// boundary reports whether the piece separates inside from outside for at
// least one operand.
func (g edgeGroup) boundary() bool {
	return g.count[0]%2 == 1 || g.count[1]%2 == 1
}

func buildGroups(edges []edge) []edgeGroup {
	var groups []edgeGroup
	byKey := make(map[[2]int]int)

	for _, e := range edges {
		if e.a == e.b {
			continue
		}
		lo, hi := e.a, e.b
		if lo > hi {
			lo, hi = hi, lo
		}
		key := [2]int{lo, hi}
		gi, ok := byKey[key]
		if !ok {
			gi = len(groups)
			byKey[key] = gi
			groups = append(groups, edgeGroup{lo: lo, hi: hi})
		}
		groups[gi].count[e.owner]++
	}
	return groups
}

func xOf(p geometry.Point2D) float64 { return p.X }
func yOf(p geometry.Point2D) float64 { return p.Y }

// classifier decides which operands cover each side of a boundary piece.
// Rays run along +x or +y, whichever is closer to the piece normal, and
// only the pieces in the ray's band are tested.
type classifier struct {
	groups []edgeGroup
	pts    []geometry.Point2D
	rows   *bandIndex // bands over y, for rays towards +x
	cols   *bandIndex // bands over x, for rays towards +y

	// tested counts the pieces examined by cast.
	tested int
}

func newClassifier(groups []edgeGroup, pts []geometry.Point2D) *classifier {
	return &classifier{
		groups: groups,
		pts:    pts,
		rows:   newBandIndex(groups, pts, yOf),
		cols:   newBandIndex(groups, pts, xOf),
	}
}

// left returns whether each operand covers the left side of group self,
// looking from lo towards hi.
func (c *classifier) left(self int, inverted [2]bool) [2]bool {
	g := c.groups[self]
	p, q := c.pts[g.lo], c.pts[g.hi]
	d := q.Sub(p)
	mid := p.Add(q).Scale(0.5)

	var crossings [2]int
	var rayLeft bool
	if math.Abs(d.Y) >= math.Abs(d.X) {
		crossings = c.cast(self, c.rows, mid, yOf, xOf)
		rayLeft = d.Y < 0
	} else {
		crossings = c.cast(self, c.cols, mid, xOf, yOf)
		rayLeft = d.X > 0
	}

	var side [2]bool
	for k := range side {
		side[k] = (crossings[k]%2 == 1) != inverted[k]
		if !rayLeft {
			side[k] = side[k] != (g.count[k]%2 == 1)
		}
	}
	return side
}

// cast counts, per operand, the pieces crossed by a ray from mid. across
// picks the coordinate the ray holds fixed and along the one it grows in.
func (c *classifier) cast(self int, idx *bandIndex, mid geometry.Point2D, across, along func(geometry.Point2D) float64) [2]int {
	y0, x0 := across(mid), along(mid)
	var n [2]int
	for _, j := range idx.at(y0) {
		if j == self {
			continue
		}
		c.tested++
		h := c.groups[j]
		a, b := c.pts[h.lo], c.pts[h.hi]
		ay, by := across(a), across(b)
		if (ay > y0) == (by > y0) {
			continue
		}
		ax, bx := along(a), along(b)
		if ax+(y0-ay)*(bx-ax)/(by-ay) > x0 {
			n[0] += h.count[0]
			n[1] += h.count[1]
		}
	}
	return n
}

// maxBands caps the size of a bandIndex.
const maxBands = 4096

// bandIndex buckets boundary pieces by the range they span along one axis.
type bandIndex struct {
	lo, width float64
	bands     [][]int
}

func newBandIndex(groups []edgeGroup, pts []geometry.Point2D, coord func(geometry.Point2D) float64) *bandIndex {
	lo, hi := math.Inf(1), math.Inf(-1)
	var members []int
	for i, g := range groups {
		if !g.boundary() {
			continue
		}
		members = append(members, i)
		for _, v := range [2]int{g.lo, g.hi} {
			lo = math.Min(lo, coord(pts[v]))
			hi = math.Max(hi, coord(pts[v]))
		}
	}

	n := len(members)/4 + 1
	if n > maxBands {
		n = maxBands
	}
	idx := &bandIndex{lo: lo, width: (hi - lo) / float64(n), bands: make([][]int, n)}
	if len(members) == 0 || idx.width <= 0 {
		idx.lo, idx.width = 0, 1
	}
	for _, i := range members {
		a, b := coord(pts[groups[i].lo]), coord(pts[groups[i].hi])
		for k := idx.band(math.Min(a, b)); k <= idx.band(math.Max(a, b)); k++ {
			idx.bands[k] = append(idx.bands[k], i)
		}
	}
	return idx
}

func (bi *bandIndex) band(v float64) int {
	k := int(math.Floor((v - bi.lo) / bi.width))
	if k < 0 {
		return 0
	}
	if k >= len(bi.bands) {
		return len(bi.bands) - 1
	}
	return k
}

// at returns the pieces whose range may contain v.
func (bi *bandIndex) at(v float64) []int {
	return bi.bands[bi.band(v)]
}

type directedEdge struct {
	from, to int
}

// chainLoops links directed edges into closed loops. At vertices with more
// than one outgoing edge the sharpest left turn is taken, so loops touching
// at a single vertex come out as separate regions. Chains that fail to close
// are dropped.
func chainLoops(edges []directedEdge, pts []geometry.Point2D) [][]geometry.Point2D {
	outgoing := make(map[int][]int)
	for i, e := range edges {
		outgoing[e.from] = append(outgoing[e.from], i)
	}
	used := make([]bool, len(edges))

	var loops [][]geometry.Point2D
	for start := range edges {
		if used[start] {
			continue
		}
		used[start] = true
		origin := edges[start].from
		loop := []int{origin}
		cur := start
		closed := false

		for steps := 0; steps <= len(edges); steps++ {
			v := edges[cur].to
			if v == origin {
				closed = true
				break
			}
			loop = append(loop, v)
			next := pickNext(edges, used, outgoing[v], cur, pts)
			if next < 0 {
				break
			}
			used[next] = true
			cur = next
		}
		if !closed {
			continue
		}

		region := make([]geometry.Point2D, len(loop))
		for i, v := range loop {
			region[i] = pts[v]
		}
		region = simplifyLoop(region)
		if len(region) < 3 || math.Abs(geometry.SignedArea(region)) < areaEpsilon {
			continue
		}
		loops = append(loops, region)
	}
	return loops
}

func pickNext(edges []directedEdge, used []bool, candidates []int, cur int, pts []geometry.Point2D) int {
	in := pts[edges[cur].to].Sub(pts[edges[cur].from])
	best := -1
	bestTurn := math.Inf(-1)
	for _, c := range candidates {
		if used[c] {
			continue
		}
		out := pts[edges[c].to].Sub(pts[edges[c].from])
		turn := math.Atan2(in.X*out.Y-in.Y*out.X, in.Dot(out))
		if turn > bestTurn {
			best = c
			bestTurn = turn
		}
	}
	return best
}

// simplifyLoop removes repeated and collinear vertices.
func simplifyLoop(r []geometry.Point2D) []geometry.Point2D {
	for changed := true; changed && len(r) >= 3; {
		changed = false
		out := make([]geometry.Point2D, 0, len(r))
		n := len(r)
		for i := 0; i < n; i++ {
			prev := r[(i+n-1)%n]
			if len(out) > 0 {
				prev = out[len(out)-1]
			}
			cur, next := r[i], r[(i+1)%n]
			if geometry.NearlyEqual(prev, cur, snapEpsilon) {
				changed = true
				continue
			}
			span := next.Distance(prev)
			if span <= snapEpsilon || math.Abs(geometry.CrossProduct(prev, cur, next))/span <= snapEpsilon {
				changed = true
				continue
			}
			out = append(out, cur)
		}
		r = out
	}
	return r
}
