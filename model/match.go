package model

// MatchOutcome 名称匹配结论, 只允许三种取值
type MatchOutcome string

const (
	MatchTrue  MatchOutcome = "TRUE"  // 相似度 ≥ 0.90, 几何会被吸附
	MatchMaybe MatchOutcome = "MAYBE" // 相似度在 [0.70, 0.90), 保留原几何供人工复核
	MatchFalse MatchOutcome = "FALSE" // 相似度 < 0.70 或名称缺失
)

// MatchRecord 匹配记录, 每个输入站点恰好产生一条, 生成后不再修改
type MatchRecord struct {
	SiteID   string       `json:"site_id"`
	Match    MatchOutcome `json:"match"`
	Distance *float64     `json:"distance_to_nearest"` // 到最终记录河段的距离 (米), 名称缺失或无候选时为 null
	StreamID *string      `json:"stream_id"`           // 最终记录的河段 ID, 同上可为 null
	Snapped  bool         `json:"snapped"`             // 几何是否被替换为投影点
}
