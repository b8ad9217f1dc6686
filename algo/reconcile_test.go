package algo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydro-system/model"
)

func TestReconcileTrueSnapsGeometry(t *testing.T) {
	// 名称仅大小写不同 → 相似度 1.0 → TRUE, 几何被吸附到河段上
	sites := []model.Site{newSite("s1", "Rock River", 5, 3)}
	streams := []model.Stream{newStream("r1", "ROCK River", orb.Point{0, 0}, orb.Point{10, 0})}

	res, err := Reconcile(sites, streams, 100, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, model.MatchTrue, row.Match)
	assert.True(t, row.Snapped)
	assert.InDelta(t, 5, row.X, 1e-9)
	assert.InDelta(t, 0, row.Y, 1e-9)
	require.NotNil(t, row.Distance)
	assert.InDelta(t, 3, *row.Distance, 1e-9)
	require.NotNil(t, row.StreamID)
	assert.Equal(t, "r1", *row.StreamID)
	assert.Equal(t, 1, res.TrueCount)

	// 输出行可以导出为不可变的匹配记录
	rec := row.Record()
	assert.Equal(t, "s1", rec.SiteID)
	assert.Equal(t, model.MatchTrue, rec.Match)
	assert.True(t, rec.Snapped)
}

func TestReconcileMaybeKeepsGeometry(t *testing.T) {
	// "Charlie Creek" vs "Charley Creek" ≈ 0.85 → MAYBE, 几何不变, 不进入回退
	sites := []model.Site{newSite("s1", "Charlie Creek", 5, 2)}
	streams := []model.Stream{newStream("r1", "Charley Creek", orb.Point{0, 0}, orb.Point{10, 0})}

	res, err := Reconcile(sites, streams, 100, Options{})
	require.NoError(t, err)

	row := res.Rows[0]
	assert.Equal(t, model.MatchMaybe, row.Match)
	assert.False(t, row.Snapped)
	assert.Equal(t, 5.0, row.X)
	assert.Equal(t, 2.0, row.Y)
	require.NotNil(t, row.Distance)
	assert.InDelta(t, 2, *row.Distance, 1e-9)
	assert.Equal(t, 1, res.MaybeCount)
}

func TestReconcileFalseKeepsNearestDistance(t *testing.T) {
	// 附近没有名称相近的河段 → FALSE, 距离是到最近河段的真实距离
	sites := []model.Site{newSite("s1", "David Brook", 0, 5)}
	streams := []model.Stream{newStream("r1", "Totally Different", orb.Point{0, 0}, orb.Point{10, 0})}

	res, err := Reconcile(sites, streams, 100, Options{})
	require.NoError(t, err)

	row := res.Rows[0]
	assert.Equal(t, model.MatchFalse, row.Match)
	assert.False(t, row.Snapped)
	assert.Equal(t, 0.0, row.X)
	assert.Equal(t, 5.0, row.Y)
	require.NotNil(t, row.Distance)
	assert.InDelta(t, 5, *row.Distance, 1e-9)
	require.NotNil(t, row.StreamID)
	assert.Equal(t, "r1", *row.StreamID)
}

func TestReconcileFallbackEscalation(t *testing.T) {
	// 最近的河段名称不符, 但半径内存在同名河段 → 回退升级为 TRUE,
	// 距离与匹配河段都换成回退命中的那条, 几何吸附到它上面
	sites := []model.Site{newSite("s1", "Rock Creek", 0, 1)}
	streams := []model.Stream{
		newStream("r0", "Alder Run", orb.Point{-10, 0}, orb.Point{10, 0}), // 最近, 距离 1
		newStream("r1", "Rock Creek", orb.Point{4, -10}, orb.Point{4, 10}), // 距离 4
	}

	res, err := Reconcile(sites, streams, 10, Options{})
	require.NoError(t, err)

	row := res.Rows[0]
	assert.Equal(t, model.MatchTrue, row.Match)
	require.NotNil(t, row.StreamID)
	assert.Equal(t, "r1", *row.StreamID)
	require.NotNil(t, row.Distance)
	assert.InDelta(t, 4, *row.Distance, 1e-9)
	assert.True(t, row.Snapped)
	assert.InDelta(t, 4, row.X, 1e-9)
	assert.InDelta(t, 1, row.Y, 1e-9)
	assert.Equal(t, 1, res.FallbackHits)
}

func TestReconcileFallbackFirstMatchVsBestMatch(t *testing.T) {
	sites := []model.Site{newSite("s1", "Stony Brook", 0, 1)}
	streams := []model.Stream{
		newStream("r0", "Unrelated Name", orb.Point{-10, 0}, orb.Point{10, 0}), // 最近但不符
		newStream("r1", "Stoney Brook", orb.Point{3, -10}, orb.Point{3, 10}),   // 距离 3, 相似度 ≈0.92
		newStream("r2", "Stony Brook", orb.Point{6, -10}, orb.Point{6, 10}),    // 距离 6, 相似度 1.0
	}

	// 默认: 顺序上第一条达标的 r1 胜出, 即便 r2 分数更高
	res, err := Reconcile(sites, streams, 10, Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Rows[0].StreamID)
	assert.Equal(t, "r1", *res.Rows[0].StreamID)
	assert.InDelta(t, 3, *res.Rows[0].Distance, 1e-9)

	// BestMatch 开启: 取最高分的 r2
	res, err = Reconcile(sites, streams, 10, Options{BestMatch: true})
	require.NoError(t, err)
	require.NotNil(t, res.Rows[0].StreamID)
	assert.Equal(t, "r2", *res.Rows[0].StreamID)
	assert.InDelta(t, 6, *res.Rows[0].Distance, 1e-9)
}

func TestReconcileDegenerateGeometryPrefiltered(t *testing.T) {
	// 空几何的河段在裁剪阶段被剔除: 即便名称完全一致也不会成为匹配对象,
	// 投影退化告警在正常流水线中保持为 0
	sites := []model.Site{newSite("s1", "Rock River", 5, 3)}
	streams := []model.Stream{
		newStream("empty", "Rock River"), // 空几何, 名称完全一致
		newStream("r1", "ROCK River", orb.Point{0, 0}, orb.Point{10, 0}),
	}

	res, err := Reconcile(sites, streams, 100, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Candidates)

	row := res.Rows[0]
	assert.Equal(t, model.MatchTrue, row.Match)
	require.NotNil(t, row.StreamID)
	assert.Equal(t, "r1", *row.StreamID)
	assert.True(t, row.Snapped)
	assert.Equal(t, 0, res.DegenerateSnaps)
}

func TestReconcileSinglePointStream(t *testing.T) {
	// 单点"河段": 零面积外包框也要能建进索引; 投影就是该点本身, 不算退化
	sites := []model.Site{newSite("s1", "Spring Pond", 3, 4)}
	streams := []model.Stream{newStream("r1", "Spring Pond", orb.Point{0, 0})}

	res, err := Reconcile(sites, streams, 10, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, model.MatchTrue, row.Match)
	assert.True(t, row.Snapped)
	assert.InDelta(t, 0, row.X, 1e-9)
	assert.InDelta(t, 0, row.Y, 1e-9)
	require.NotNil(t, row.Distance)
	assert.InDelta(t, 5, *row.Distance, 1e-9)
	assert.Equal(t, 0, res.DegenerateSnaps)
}

func TestReconcileNullNameAlwaysFalse(t *testing.T) {
	// 名称缺失的站点不参与比较: 即便紧贴河段也必须是 FALSE + null 距离
	sites := []model.Site{
		newSite("s1", "", 0, 0.1),
		{ID: "s2", X: 0, Y: 0.2}, // Name 为 nil
	}
	streams := []model.Stream{newStream("r1", "Rock River", orb.Point{-10, 0}, orb.Point{10, 0})}

	res, err := Reconcile(sites, streams, 100, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	for _, row := range res.Rows {
		assert.Equal(t, model.MatchFalse, row.Match)
		assert.Nil(t, row.Distance)
		assert.Nil(t, row.StreamID)
		assert.False(t, row.Snapped)
	}
	assert.Equal(t, 2, res.FalseCount)
}

func TestReconcileEmptyCandidates(t *testing.T) {
	// 空间裁剪后没有候选河段: 有效终止状态, 全部 FALSE 且无距离
	sites := []model.Site{
		newSite("s1", "Rock River", 0, 0),
		newSite("s2", "Charlie Creek", 1, 1),
	}
	streams := []model.Stream{
		newStream("far", "Rock River", orb.Point{1000, 0}, orb.Point{1010, 0}),
	}

	res, err := Reconcile(sites, streams, 5, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 0, res.Candidates)

	for _, row := range res.Rows {
		assert.Equal(t, model.MatchFalse, row.Match)
		assert.Nil(t, row.Distance)
		assert.Nil(t, row.StreamID)
	}
}

func TestReconcileBadDistance(t *testing.T) {
	_, err := Reconcile(nil, nil, 0, Options{})
	assert.ErrorIs(t, err, ErrBadDistance)
	_, err = Reconcile(nil, nil, -5, Options{})
	assert.ErrorIs(t, err, ErrBadDistance)
}

func TestReconcileCardinalityAndOrder(t *testing.T) {
	sites := []model.Site{
		newSite("s1", "Rock River", 5, 3),
		{ID: "s2", X: 5, Y: 1},
		newSite("s3", "Charlie Creek", 2, 2),
		newSite("s4", "Nowhere Near", 8, 4),
	}
	streams := []model.Stream{
		newStream("r1", "ROCK River", orb.Point{0, 0}, orb.Point{10, 0}),
		newStream("r2", "Charley Creek", orb.Point{0, 4}, orb.Point{0, -4}),
	}

	res, err := Reconcile(sites, streams, 50, Options{})
	require.NoError(t, err)

	// 每个输入站点恰好一行, 顺序与输入一致
	require.Len(t, res.Rows, len(sites))
	for i, row := range res.Rows {
		assert.Equal(t, sites[i].ID, row.ID)
		assert.Contains(t,
			[]model.MatchOutcome{model.MatchTrue, model.MatchMaybe, model.MatchFalse},
			row.Match)
		// 几何仅在 TRUE 时改变
		if row.Match != model.MatchTrue {
			assert.Equal(t, sites[i].X, row.X)
			assert.Equal(t, sites[i].Y, row.Y)
			assert.False(t, row.Snapped)
		}
	}
	assert.Equal(t, len(sites), res.TrueCount+res.MaybeCount+res.FalseCount)
}

func TestReconcileIdempotentOnFalseRows(t *testing.T) {
	// 把第一轮 FALSE 的行 (几何未变) 原样再跑一轮, 分类结果必须一致
	sites := []model.Site{
		newSite("s1", "Rock River", 5, 3),
		newSite("s2", "David Brook", 0, 5),
		{ID: "s3", X: 1, Y: 1},
	}
	streams := []model.Stream{
		newStream("r1", "ROCK River", orb.Point{0, 0}, orb.Point{10, 0}),
	}

	first, err := Reconcile(sites, streams, 50, Options{})
	require.NoError(t, err)

	var falseSites []model.Site
	var falseOutcomes []model.MatchOutcome
	for _, row := range first.Rows {
		if row.Match == model.MatchFalse {
			falseSites = append(falseSites, row.Site)
			falseOutcomes = append(falseOutcomes, row.Match)
		}
	}
	require.NotEmpty(t, falseSites)

	second, err := Reconcile(falseSites, streams, 50, Options{})
	require.NoError(t, err)
	for i, row := range second.Rows {
		assert.Equal(t, falseOutcomes[i], row.Match)
	}
}
