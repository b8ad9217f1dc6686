package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"hydro-system/algo"
	"hydro-system/model"
)

// Data 全局数据集 (应在 main 中初始化, 请求未内联数据时作为默认输入)
var Data *algo.Datasets

// ErrNameFieldMissing 指定的名称字段在输入数据中不存在
// 这是配置错误: 在做任何几何计算之前直接终止本次匹配
var ErrNameFieldMissing = errors.New("名称字段在输入数据中不存在")

// DefaultNameField 默认的名称字段
const DefaultNameField = "name"

// PointFeature 请求中的点要素 (属性表中取名称字段)
type PointFeature struct {
	ID         string                 `json:"id"`
	X          float64                `json:"x"`
	Y          float64                `json:"y"`
	Properties map[string]interface{} `json:"properties"`
}

// LineFeature 请求中的线要素
type LineFeature struct {
	ID         string                 `json:"id"`
	Coords     [][2]float64           `json:"coords"` // 折线顶点序列 [[x, y], ...]
	Properties map[string]interface{} `json:"properties"`
}

// MatchRequest 匹配请求
// Points/Lines 省略时使用数据库中已加载的站点与河段
type MatchRequest struct {
	Distance  float64        `json:"distance" binding:"required,gt=0"` // 搜索距离 D (米)
	NameField string         `json:"name_field"`                       // 名称字段, 默认 "name"
	BestMatch bool           `json:"best_match"`                       // 回退扫描取最高分而非先到先得
	Points    []PointFeature `json:"points"`
	Lines     []LineFeature  `json:"lines"`
}

// MatchResponse 匹配响应
type MatchResponse struct {
	Count           int                `json:"count"`            // 输出行数 == 输入站点数
	TrueCount       int                `json:"true_count"`
	MaybeCount      int                `json:"maybe_count"`
	FalseCount      int                `json:"false_count"`
	Candidates      int                `json:"candidates"`       // 空间裁剪后的候选河段数
	FallbackHits    int                `json:"fallback_hits"`    // 回退扫描升级为 TRUE 的站点数
	DegenerateSnaps int                `json:"degenerate_snaps"` // 投影退化、保留原几何的站点数
	Rows            []algo.MatchedSite `json:"rows"`
}

// RunMatch 执行站点-河段匹配
func RunMatch(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	nameField := req.NameField
	if nameField == "" {
		nameField = DefaultNameField
	}

	if (len(req.Points) == 0 || len(req.Lines) == 0) && Data == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "数据集未加载"})
		return
	}

	sites, streams, err := resolveInputs(&req, nameField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := algo.Reconcile(sites, streams, req.Distance, algo.Options{BestMatch: req.BestMatch})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, MatchResponse{
		Count:           len(res.Rows),
		TrueCount:       res.TrueCount,
		MaybeCount:      res.MaybeCount,
		FalseCount:      res.FalseCount,
		Candidates:      res.Candidates,
		FallbackHits:    res.FallbackHits,
		DegenerateSnaps: res.DegenerateSnaps,
		Rows:            res.Rows,
	})
}

// resolveInputs 决定本次匹配的输入数据并校验名称字段前置条件
// 数据库数据集的名称字段固定为 "name", 指定其它字段同样按配置错误处理
func resolveInputs(req *MatchRequest, nameField string) ([]model.Site, []model.Stream, error) {
	var sites []model.Site
	var streams []model.Stream

	if len(req.Points) > 0 {
		if !anyPointHasField(req.Points, nameField) {
			return nil, nil, ErrNameFieldMissing
		}
		sites = make([]model.Site, len(req.Points))
		for i, f := range req.Points {
			sites[i] = model.Site{
				ID:   f.ID,
				Name: nameFromProps(f.Properties, nameField),
				X:    f.X,
				Y:    f.Y,
			}
		}
	} else if Data != nil {
		if nameField != DefaultNameField {
			return nil, nil, ErrNameFieldMissing
		}
		sites = Data.Sites
	}

	if len(req.Lines) > 0 {
		if !anyLineHasField(req.Lines, nameField) {
			return nil, nil, ErrNameFieldMissing
		}
		streams = make([]model.Stream, len(req.Lines))
		for i, f := range req.Lines {
			coords := make(pq.Float64Array, 0, len(f.Coords)*2)
			for _, p := range f.Coords {
				coords = append(coords, p[0], p[1])
			}
			streams[i] = model.Stream{
				ID:     f.ID,
				Name:   nameFromProps(f.Properties, nameField),
				Coords: coords,
			}
		}
	} else if Data != nil {
		if nameField != DefaultNameField {
			return nil, nil, ErrNameFieldMissing
		}
		streams = Data.Streams
	}

	return sites, streams, nil
}

// nameFromProps 从属性表中取名称; 缺失、非字符串或空串都视为无名称
func nameFromProps(props map[string]interface{}, field string) *string {
	v, ok := props[field]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func anyPointHasField(features []PointFeature, field string) bool {
	for _, f := range features {
		if _, ok := f.Properties[field]; ok {
			return true
		}
	}
	return false
}

func anyLineHasField(features []LineFeature, field string) bool {
	for _, f := range features {
		if _, ok := f.Properties[field]; ok {
			return true
		}
	}
	return false
}
