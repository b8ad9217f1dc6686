package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/planar"

	"hydro-system/algo"
)

// SiteView 站点信息
type SiteView struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// StreamView 河段信息 (不含完整几何, 只给概要)
type StreamView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Vertices int     `json:"vertices"` // 折线顶点数
	Length   float64 `json:"length"`   // 折线长度 (米)
}

// GetSites 获取所有站点
func GetSites(c *gin.Context) {
	if Data == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "数据集未加载"})
		return
	}

	sites := make([]SiteView, 0, len(Data.Sites))
	for i := range Data.Sites {
		sites = append(sites, siteView(i))
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(sites),
		"sites": sites,
	})
}

// GetSiteByID 根据 ID 获取站点
func GetSiteByID(c *gin.Context) {
	siteID := c.Param("id")

	if Data == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "数据集未加载"})
		return
	}

	for i := range Data.Sites {
		if Data.Sites[i].ID == siteID {
			c.JSON(http.StatusOK, siteView(i))
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "站点不存在"})
}

// SearchSites 搜索站点 (按名称相似度排序)
// 复用匹配引擎的打分函数: 子串命中或相似度 ≥ 0.5 的站点进入结果
func SearchSites(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少搜索关键词"})
		return
	}

	if Data == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "数据集未加载"})
		return
	}

	type scored struct {
		SiteView
		Score float64 `json:"score"`
	}

	lowerQuery := algo.NormalizeName(query)
	results := make([]scored, 0)
	for i := range Data.Sites {
		s := &Data.Sites[i]
		if !s.HasName() {
			continue
		}
		sim := algo.NameSimilarity(query, *s.Name)
		if sim < 0.5 && !strings.Contains(algo.NormalizeName(*s.Name), lowerQuery) {
			continue
		}
		results = append(results, scored{SiteView: siteView(i), Score: sim})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// GetStreams 获取所有河段概要
func GetStreams(c *gin.Context) {
	if Data == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "数据集未加载"})
		return
	}

	streams := make([]StreamView, 0, len(Data.Streams))
	for i := range Data.Streams {
		st := &Data.Streams[i]
		name := ""
		if st.Name != nil {
			name = *st.Name
		}
		ls := st.LineString()
		streams = append(streams, StreamView{
			ID:       st.ID,
			Name:     name,
			Vertices: len(ls),
			Length:   planar.Length(ls),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(streams),
		"streams": streams,
	})
}

func siteView(i int) SiteView {
	s := &Data.Sites[i]
	name := ""
	if s.Name != nil {
		name = *s.Name
	}
	return SiteView{ID: s.ID, Name: name, X: s.X, Y: s.Y}
}
