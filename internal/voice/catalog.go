// Package voice holds the fixed catalog of Chinese dubbing voices.
package voice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	apperrors "video-redub/pkg/errors"
)

type Region string

const (
	RegionMainland Region = "zh-CN"
	RegionHongKong Region = "zh-HK"
	RegionTaiwan   Region = "zh-TW"
)

func (r Region) Label() string {
	switch r {
	case RegionMainland:
		return "中国大陆"
	case RegionHongKong:
		return "中国香港"
	case RegionTaiwan:
		return "中国台湾"
	}
	return string(r)
}

type Voice struct {
	Id          string `json:"id"`
	Region      Region `json:"region"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	Description string `json:"description"`
}

// DefaultVoiceId is used when a request names no voice.
const DefaultVoiceId = "zh-CN-XiaoyiNeural"

var catalog = []Voice{
	{"zh-CN-XiaoyiNeural", RegionMainland, "晓伊", "female", "大陆标准普通话"},
	{"zh-CN-YunxiNeural", RegionMainland, "云希", "male", "大陆标准普通话"},
	{"zh-CN-YunjianNeural", RegionMainland, "云健", "male", "大陆标准普通话"},
	{"zh-CN-YunyangNeural", RegionMainland, "云扬", "male", "大陆新闻播报"},
	{"zh-CN-XiaochenNeural", RegionMainland, "晓辰", "female", "大陆标准普通话"},
	{"zh-CN-XiaohanNeural", RegionMainland, "晓涵", "female", "大陆标准普通话"},
	{"zh-CN-XiaomengNeural", RegionMainland, "晓梦", "female", "大陆标准普通话"},
	{"zh-CN-XiaomoNeural", RegionMainland, "晓墨", "female", "大陆标准普通话"},
	{"zh-CN-XiaoxuanNeural", RegionMainland, "晓萱", "female", "大陆标准普通话"},
	{"zh-CN-XiaoyanNeural", RegionMainland, "晓颜", "female", "大陆标准普通话"},
	{"zh-CN-XiaoyouNeural", RegionMainland, "晓悠", "female", "大陆标准普通话"},
	{"zh-HK-HiuGaaiNeural", RegionHongKong, "晓薇", "female", "香港粤语"},
	{"zh-HK-HiuMaanNeural", RegionHongKong, "晓曼", "female", "香港粤语"},
	{"zh-HK-WanLungNeural", RegionHongKong, "云龙", "male", "香港粤语"},
	{"zh-TW-HsiaoChenNeural", RegionTaiwan, "晓臻", "female", "台湾国语"},
	{"zh-TW-YunJheNeural", RegionTaiwan, "云哲", "male", "台湾国语"},
	{"zh-TW-HsiaoYuNeural", RegionTaiwan, "晓雨", "female", "台湾国语"},
}

var byId = lo.KeyBy(catalog, func(v Voice) string { return v.Id })

// Label renders the display text, e.g. "晓伊 - 女声 (大陆标准普通话)".
func (v Voice) Label() string {
	gender := "女声"
	if v.Gender == "male" {
		gender = "男声"
	}
	return fmt.Sprintf("%s - %s (%s)", v.Name, gender, v.Description)
}

// All returns the catalog in display order.
func All() []Voice {
	return append([]Voice(nil), catalog...)
}

// ByRegion returns the voices of one region; an empty region returns all.
func ByRegion(region Region) []Voice {
	if region == "" {
		return All()
	}
	return lo.Filter(catalog, func(v Voice, _ int) bool { return v.Region == region })
}

func Regions() []Region {
	return lo.Uniq(lo.Map(catalog, func(v Voice, _ int) Region { return v.Region }))
}

// Lookup finds a catalog voice. Unknown ids produce an input error that
// suggests the closest known ids.
func Lookup(id string) (Voice, error) {
	id = strings.TrimSpace(id)
	if v, ok := byId[id]; ok {
		return v, nil
	}
	detail := fmt.Sprintf("unknown voice %q", id)
	if suggestions := Suggest(id, 3); len(suggestions) > 0 {
		detail += ", did you mean " + strings.Join(suggestions, " / ") + "?"
	}
	return Voice{}, apperrors.WrapWithDetail(apperrors.CodeVoiceNotFound, apperrors.ErrVoiceNotFound.Message, detail, nil)
}

// Suggest returns up to n catalog ids ordered by edit distance to id.
func Suggest(id string, n int) []string {
	query := []rune(strings.ToLower(strings.TrimSpace(id)))
	if len(query) == 0 || n <= 0 {
		return nil
	}

	type scored struct {
		id       string
		distance int
	}
	candidates := lo.Map(catalog, func(v Voice, _ int) scored {
		target := []rune(strings.ToLower(v.Id))
		return scored{id: v.Id, distance: levenshtein.DistanceForStrings(query, target, levenshtein.DefaultOptions)}
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	// 距离过大的不算候选
	limit := max(len(query)/2, 3)
	candidates = lo.Filter(candidates, func(c scored, _ int) bool { return c.distance <= limit })
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return lo.Map(candidates, func(c scored, _ int) string { return c.id })
}
