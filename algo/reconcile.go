package algo

import (
	"errors"
	"log"
	"runtime"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"hydro-system/model"
	"hydro-system/utils"
)

// ErrBadDistance 搜索距离必须为正数
var ErrBadDistance = errors.New("搜索距离必须大于 0")

// Options 匹配选项
type Options struct {
	// BestMatch 回退扫描时取得分最高的达标河段, 而不是顺序上第一条达标的
	// 默认关闭: 先到先得是参考行为, 可复现且结果可审计
	BestMatch bool
}

// MatchedSite 输出行: 原站点的全部属性 (几何可能已被吸附) + 匹配信息
type MatchedSite struct {
	model.Site
	Match    model.MatchOutcome `json:"match"`
	Distance *float64           `json:"distance_to_nearest"` // 到最终记录河段的距离 (米)
	StreamID *string            `json:"stream_id"`           // 最终记录的河段 ID
	Snapped  bool               `json:"snapped"`             // 几何是否被替换为投影点
}

// Record 输出行对应的匹配记录
func (m *MatchedSite) Record() model.MatchRecord {
	return model.MatchRecord{
		SiteID:   m.ID,
		Match:    m.Match,
		Distance: m.Distance,
		StreamID: m.StreamID,
		Snapped:  m.Snapped,
	}
}

// ReconcileResult 整批匹配结果
type ReconcileResult struct {
	Rows []MatchedSite // 与输入站点等长且同序

	TrueCount  int
	MaybeCount int
	FalseCount int

	Candidates      int // 空间裁剪后的候选河段数
	FallbackHits    int // 通过回退扫描升级为 TRUE 的站点数
	DegenerateSnaps int // 投影退化、保留原几何的 TRUE 站点数 (软性告警; 空几何河段在裁剪阶段已剔除, 正常输入恒为 0)
}

// Reconcile 执行完整的匹配-吸附流水线:
// 1. 按名称有无切分站点 (名称缺失的直接 FALSE, 不参与任何比较);
// 2. 空间裁剪河段得到候选集 (只保留有名称且落在缓冲区内的);
// 3. 每个站点: 最近河段 + 名称打分 → FALSE 时在半径 D 内回退扫描 →
//    终态 TRUE 时把几何吸附到匹配河段上;
// 4. 按输入顺序拼装输出, 每个输入站点恰好一行。
// 候选集建好后只读, 各站点独立计算、只写自己的输出槽位, 可以安全并行
func Reconcile(sites []model.Site, streams []model.Stream, radius float64, opts Options) (*ReconcileResult, error) {
	if radius <= 0 {
		return nil, ErrBadDistance
	}

	cands := NewCandidateSet(sites, streams, radius)
	if cands.Empty() && len(sites) > 0 {
		// 有效的终止状态, 不是错误: 所有站点都会记为 FALSE 且无距离
		log.Printf("空间裁剪后没有候选河段 (搜索距离 %.1f 米), 全部站点将记为 FALSE", radius)
	}

	res := &ReconcileResult{
		Rows:       make([]MatchedSite, len(sites)),
		Candidates: cands.Len(),
	}

	fallbackHits := make([]bool, len(sites))
	degenerate := make([]bool, len(sites))

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range sites {
		i := i
		g.Go(func() error {
			res.Rows[i] = matchOne(&sites[i], cands, opts, &fallbackHits[i], &degenerate[i])
			return nil
		})
	}
	_ = g.Wait() // 单站点匹配不产生错误, 异常只会降级该站点的记录

	for i := range res.Rows {
		switch res.Rows[i].Match {
		case model.MatchTrue:
			res.TrueCount++
		case model.MatchMaybe:
			res.MaybeCount++
		default:
			res.FalseCount++
		}
		if fallbackHits[i] {
			res.FallbackHits++
		}
		if degenerate[i] {
			res.DegenerateSnaps++
			log.Printf("站点 %s 匹配为 TRUE 但投影退化, 保留原几何", res.Rows[i].ID)
		}
	}
	return res, nil
}

// matchOne 单个站点的完整匹配流程
func matchOne(site *model.Site, cands *CandidateSet, opts Options, fallbackHit, degenerate *bool) MatchedSite {
	row := MatchedSite{Site: *site, Match: model.MatchFalse}

	// 名称缺失: 不做任何比较, 直接 FALSE, 距离与河段均为 null, 几何不变
	if !site.HasName() {
		return row
	}

	p := site.Point()
	matched, matchedDist, ok := cands.Nearest(p)
	if !ok {
		// 候选集为空: 没有可评估的河段, 不产生距离
		return row
	}

	row.Match = ClassifySimilarity(NameSimilarity(*site.Name, *cands.Stream(matched).Name))

	// 最近河段名称不达标时, 在半径 D 内寻找严格达标 (≥ 0.90) 的河段
	// MAYBE 不进入回退, 原样输出且几何不变
	if row.Match == model.MatchFalse {
		if j, found := fallbackScan(*site.Name, p, cands, opts); found {
			row.Match = model.MatchTrue
			matched = j
			matchedDist = utils.DistanceToLine(cands.Line(j), p)
			*fallbackHit = true
		}
	}

	id := cands.Stream(matched).ID
	row.StreamID = &id
	row.Distance = &matchedDist

	// 只有终态 TRUE 才吸附; 投影退化时保留原几何 (软性条件, 不中断批次)
	if row.Match == model.MatchTrue {
		if proj, _, valid := utils.ClosestPointOnLine(cands.Line(matched), p); valid {
			row.X, row.Y = proj[0], proj[1]
			row.Snapped = true
		} else {
			*degenerate = true
		}
	}
	return row
}

// fallbackScan 回退扫描: 在半径 D 内按原始顺序枚举候选河段,
// 返回第一条相似度达到 TRUE 阈值的河段下标 (BestMatch 开启时改为取最高分)
func fallbackScan(name string, p orb.Point, cands *CandidateSet, opts Options) (int, bool) {
	best, bestScore := -1, 0.0
	for _, j := range cands.WithinRadius(p) {
		score := NameSimilarity(name, *cands.Stream(j).Name)
		if score < TrueThreshold {
			continue
		}
		if !opts.BestMatch {
			// 默认: 顺序上第一条达标即采纳
			return j, true
		}
		if score > bestScore {
			best, bestScore = j, score
		}
	}
	return best, best >= 0
}
