package model

import "github.com/paulmach/orb"

// Site 对应一个野外采样站点
// 坐标为投影平面坐标 (与河段同一参考系), 单位: 米
// 采样时的 GPS 坐标相对河网存在漂移, 匹配成功后坐标会被吸附到河段上
type Site struct {
	ID   string  `json:"id" gorm:"primaryKey"`
	Name *string `json:"name" gorm:"index"` // 人工录入的名称, 可能缺失
	X    float64 `json:"x"`                 // 东向坐标 (米)
	Y    float64 `json:"y"`                 // 北向坐标 (米)
}

// Point 站点坐标对应的 orb 点
func (s *Site) Point() orb.Point {
	return orb.Point{s.X, s.Y}
}

// HasName 名称是否有效 (null 或空串都算缺失)
func (s *Site) HasName() bool {
	return s.Name != nil && *s.Name != ""
}
