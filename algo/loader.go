package algo

import (
	"fmt"

	"hydro-system/db"
	"hydro-system/model"
)

// Datasets 匹配引擎的两份输入数据
type Datasets struct {
	Sites   []model.Site
	Streams []model.Stream
}

// LoadFromDB 从数据库加载站点与河段数据
func LoadFromDB() (*Datasets, error) {
	var d Datasets
	if err := db.DB.Order("id").Find(&d.Sites).Error; err != nil {
		return nil, fmt.Errorf("加载站点失败: %w", err)
	}
	if err := db.DB.Order("id").Find(&d.Streams).Error; err != nil {
		return nil, fmt.Errorf("加载河段失败: %w", err)
	}
	return &d, nil
}
