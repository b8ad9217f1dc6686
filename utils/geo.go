package utils

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Distance 平面两点距离 (米)
// 站点和河段都在同一个投影平面参考系下, 直接用欧氏距离
func Distance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// closestOnSegment 点 p 在线段 ab 上的最近点 (正交投影, 截断到线段端点)
func closestOnSegment(p, a, b orb.Point) orb.Point {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		// 退化线段: 两端点重合
		return a
	}

	// t = ((p-a)·(b-a)) / |b-a|², 截断到 [0,1]
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	return orb.Point{a[0] + t*dx, a[1] + t*dy}
}

// ClosestPointOnLine 点 p 到折线 ls 的最近点 (吸附目标) 及对应距离
// 返回 ok=false 表示折线几何为空、投影不存在, 调用方应保留原几何
func ClosestPointOnLine(ls orb.LineString, p orb.Point) (orb.Point, float64, bool) {
	if len(ls) == 0 {
		return orb.Point{}, 0, false
	}
	if len(ls) == 1 {
		// 单点"折线": 最近点就是它本身
		return ls[0], planar.Distance(p, ls[0]), true
	}

	best := ls[0]
	bestDist := math.Inf(1)
	for i := 0; i+1 < len(ls); i++ {
		c := closestOnSegment(p, ls[i], ls[i+1])
		if d := planar.Distance(p, c); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best, bestDist, true
}

// DistanceToLine 点 p 到折线 ls 的最短距离 (米)
// 折线为空时返回 +Inf
func DistanceToLine(ls orb.LineString, p orb.Point) float64 {
	_, d, ok := ClosestPointOnLine(ls, p)
	if !ok {
		return math.Inf(1)
	}
	return d
}
