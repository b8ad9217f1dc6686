package algo

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"hydro-system/model"
)

// 相似度分类阈值 (设计固定值, 不做运行时配置)
const (
	TrueThreshold  = 0.90 // ≥ 0.90 判为 TRUE
	MaybeThreshold = 0.70 // [0.70, 0.90) 判为 MAYBE
)

// NormalizeName 名称归一化: 去首尾空白并转小写
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NameSimilarity 计算两个名称的相似度, 取值 [0,1]
// 定义: 1 - 编辑距离 / 较长串字符数 (Levenshtein, 插入/删除/替换均为单位代价)
// 两串都为空时相似度无定义, 返回 0 (调用方按 FALSE 处理)
// 该函数是对称的: NameSimilarity(a, b) == NameSimilarity(b, a)
func NameSimilarity(a, b string) float64 {
	a = NormalizeName(a)
	b = NormalizeName(b)

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// ClassifySimilarity 把相似度映射为三值结论
func ClassifySimilarity(sim float64) model.MatchOutcome {
	switch {
	case sim >= TrueThreshold:
		return model.MatchTrue
	case sim >= MaybeThreshold:
		return model.MatchMaybe
	default:
		return model.MatchFalse
	}
}
