package algo

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"hydro-system/model"
	"hydro-system/utils"
)

// rectPad R-tree 矩形的最小边长 (退化外包框垫一个极小量, 避免零边长建矩形失败)
const rectPad = 1e-9

// candidateEntry R-tree 中的一个候选河段, 记录其在候选集中的原始下标
type candidateEntry struct {
	rect rtreego.Rect
	idx  int
}

func (e *candidateEntry) Bounds() rtreego.Rect { return e.rect }

// CandidateSet 空间裁剪后的候选河段集合
// Streams 保持输入数据中的原始顺序: 并列取最近与回退扫描的
// "先到先得" 规则都依赖这个顺序
// 构建完成后只读, 可以被多个 goroutine 并发查询
type CandidateSet struct {
	Streams []model.Stream
	lines   []orb.LineString // 与 Streams 一一对应, 预解析的折线几何
	tree    *rtreego.Rtree
	radius  float64 // 搜索距离 D (米)
}

// NewCandidateSet 构建候选集:
// 1. 求所有站点的外包框并向外扩 D (缓冲半径等于 D, 不会漏掉距任一站点 D 以内的河段);
// 2. 只保留有名称、几何非空、外包框与缓冲区相交的河段;
// 3. 用候选河段的外包框建 R-tree, 加速最近与半径查询。
// 空几何的河段在这里就被剔除: 候选集里的折线投影必然存在,
// 吸附阶段的退化分支只是兜底, 正常流水线不会走到
func NewCandidateSet(sites []model.Site, streams []model.Stream, radius float64) *CandidateSet {
	cs := &CandidateSet{radius: radius}
	if len(sites) == 0 {
		return cs
	}

	bound := orb.Bound{Min: sites[0].Point(), Max: sites[0].Point()}
	for i := 1; i < len(sites); i++ {
		bound = bound.Extend(sites[i].Point())
	}
	bound = bound.Pad(radius)

	cs.tree = rtreego.NewTree(2, 25, 50)
	for _, st := range streams {
		if !st.HasName() {
			// 无名称的河段永远不参与比较
			continue
		}
		ls := st.LineString()
		if len(ls) == 0 {
			continue
		}
		if !bound.Intersects(ls.Bound()) {
			continue
		}

		idx := len(cs.Streams)
		cs.Streams = append(cs.Streams, st)
		cs.lines = append(cs.lines, ls)
		cs.tree.Insert(&candidateEntry{rect: boundToRect(ls.Bound()), idx: idx})
	}
	return cs
}

// Empty 候选集是否为空 (空集合下所有查询都无结果, 站点一律 FALSE)
func (cs *CandidateSet) Empty() bool { return len(cs.Streams) == 0 }

// Len 候选河段数
func (cs *CandidateSet) Len() int { return len(cs.Streams) }

// Stream 第 i 个候选河段
func (cs *CandidateSet) Stream(i int) *model.Stream { return &cs.Streams[i] }

// Line 第 i 个候选河段的折线几何
func (cs *CandidateSet) Line(i int) orb.LineString { return cs.lines[i] }

// Nearest 找距点 p 最近的候选河段, 返回 (下标, 点到折线的真实距离, 是否存在)
// 先查 ±D 框内的候选并按真实距离取最小; 外包框查询是超集过滤,
// 当框内最优仍大于 D 时可能漏掉真正更近的河段, 此时退化为全量线性扫描,
// 保证结论与逐点暴力算法完全一致
// 并列 (距离相等) 时取原始顺序中靠前者
func (cs *CandidateSet) Nearest(p orb.Point) (int, float64, bool) {
	if cs.Empty() {
		return -1, 0, false
	}

	best, bestDist := -1, math.Inf(1)
	for _, i := range cs.searchBox(p, cs.radius) {
		if d := utils.DistanceToLine(cs.lines[i], p); d < bestDist {
			best, bestDist = i, d
		}
	}

	if best < 0 || bestDist > cs.radius {
		best, bestDist = -1, math.Inf(1)
		for i := range cs.lines {
			if d := utils.DistanceToLine(cs.lines[i], p); d < bestDist {
				best, bestDist = i, d
			}
		}
	}

	if best < 0 {
		return -1, 0, false
	}
	return best, bestDist, true
}

// WithinRadius 返回真实距离不超过 D 的候选下标, 按原始顺序升序排列
func (cs *CandidateSet) WithinRadius(p orb.Point) []int {
	var out []int
	for _, i := range cs.searchBox(p, cs.radius) {
		if utils.DistanceToLine(cs.lines[i], p) <= cs.radius {
			out = append(out, i)
		}
	}
	return out
}

// searchBox 查询外包框与以 p 为中心、边长 2r 的正方形相交的候选下标 (升序)
func (cs *CandidateSet) searchBox(p orb.Point, r float64) []int {
	if cs.tree == nil {
		return nil
	}
	rect, err := rtreego.NewRect(rtreego.Point{p[0] - r, p[1] - r}, []float64{2 * r, 2 * r})
	if err != nil {
		return nil
	}

	hits := cs.tree.SearchIntersect(rect)
	idxs := make([]int, 0, len(hits))
	for _, h := range hits {
		idxs = append(idxs, h.(*candidateEntry).idx)
	}
	sort.Ints(idxs)
	return idxs
}

// boundToRect orb 外包框转 rtreego 矩形
func boundToRect(b orb.Bound) rtreego.Rect {
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w < rectPad {
		w = rectPad
	}
	if h < rectPad {
		h = rectPad
	}
	rect, err := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
	if err != nil {
		// 边长恒为正, 理论上不会发生
		panic(err)
	}
	return rect
}
