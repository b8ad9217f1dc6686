package model

import (
	"github.com/lib/pq"
	"github.com/paulmach/orb"
)

// Stream 对应一条数字化河段 (折线几何)
// 几何以扁平坐标数组存储: [x1, y1, x2, y2, ...]
// 这样可以直接落到 postgres 的 float8[] 列, 不需要额外的几何扩展
type Stream struct {
	ID     string          `json:"id" gorm:"primaryKey"`
	Name   *string         `json:"name" gorm:"index"` // 人工录入的名称, 可能缺失
	Coords pq.Float64Array `json:"coords" gorm:"type:float8[]"`
}

// HasName 名称是否有效 (null 或空串都算缺失)
func (s *Stream) HasName() bool {
	return s.Name != nil && *s.Name != ""
}

// LineString 把扁平坐标数组还原为 orb 折线
// 坐标数为奇数时末尾多余的半个坐标会被忽略
func (s *Stream) LineString() orb.LineString {
	ls := make(orb.LineString, 0, len(s.Coords)/2)
	for i := 0; i+1 < len(s.Coords); i += 2 {
		ls = append(ls, orb.Point{s.Coords[i], s.Coords[i+1]})
	}
	return ls
}

// SetLineString 用 orb 折线覆盖扁平坐标数组
func (s *Stream) SetLineString(ls orb.LineString) {
	coords := make(pq.Float64Array, 0, len(ls)*2)
	for _, p := range ls {
		coords = append(coords, p[0], p[1])
	}
	s.Coords = coords
}
