package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
)

const (
	allowRuleBonus   = 1.5
	goldenZoneBonus  = 3.0
	pickZoneBonus    = 1.5
	zoningBonus      = 1.0
	rankPenalty      = 0.1
	inactivePenalty  = 2.0
	xyzScoreWeight   = 1.5
	dosScoreWeight   = 0.5
	maxRotationScore = 5.0
	targetDOS        = 5.0
)

func abcWeight(c entity.ABCClass) float64 {
	switch c {
	case entity.ABCClassA:
		return 3
	case entity.ABCClassB:
		return 2
	default:
		return 1
	}
}

func xyzWeight(c entity.XYZClass) float64 {
	switch c {
	case entity.XYZClassX:
		return 3
	case entity.XYZClassY:
		return 2
	default:
		return 1
	}
}

// RotationScore min(5, 日均*2)
func RotationScore(dailyAverage float64) float64 {
	return math.Min(maxRotationScore, dailyAverage*2)
}

// DOSScore 可用天数接近5天时最高，[0,10] 之外为0
func DOSScore(daysOfSupply float64) float64 {
	if math.IsInf(daysOfSupply, 0) || math.IsNaN(daysOfSupply) {
		return 0
	}
	return math.Max(0, math.Min(5, 5-math.Abs(daysOfSupply-targetDOS)))
}

// BaseScore 与库位无关的商品得分
func BaseScore(c *Classification) float64 {
	return abcWeight(c.ABC) +
		xyzWeight(c.XYZ)*xyzScoreWeight +
		RotationScore(c.DailyAverage) +
		DOSScore(c.DaysOfSupply)*dosScoreWeight
}

// EvaluateCompatibility 库位规则判定。BLOCK 命中即不可用，否则命中 ALLOW 加分
func EvaluateCompatibility(rules []entity.CompatibilityRule, product *entity.Product) (allowed bool, bonus float64) {
	allowMatched := false
	for i := range rules {
		if !rules[i].Matches(product) {
			continue
		}
		switch rules[i].RuleType {
		case entity.RuleTypeBlock:
			return false, 0
		case entity.RuleTypeAllow:
			allowMatched = true
		}
	}
	if allowMatched {
		return true, allowRuleBonus
	}
	return true, 0
}

// DistanceRanks 按到原点的曼哈顿距离排序库位，距离相同按编码；返回 库位ID → 名次(从0开始)
func DistanceRanks(locations []entity.Location) map[string]int {
	type ranked struct {
		id   string
		code string
		dist int
	}
	items := make([]ranked, 0, len(locations))
	for i := range locations {
		a, r, l := locations[i].Coordinates()
		items = append(items, ranked{
			id:   locations[i].ID,
			code: locations[i].Code,
			dist: absInt(a) + absInt(r) + absInt(l),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].dist != items[j].dist {
			return items[i].dist < items[j].dist
		}
		return items[i].code < items[j].code
	})
	ranks := make(map[string]int, len(items))
	for i, it := range items {
		ranks[it.id] = i
	}
	return ranks
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ScoreInput 单个 (商品, 库位) 的评分输入
type ScoreInput struct {
	Classification *Classification
	Product        *entity.Product
	Location       *entity.Location
	Rules          []entity.CompatibilityRule // 该库位的规则
	Rank           int
	Config         *entity.SlottingConfig
}

// ScoreResult 评分结果
type ScoreResult struct {
	Allowed bool
	Score   float64
	Reasons []string
}

// Reason 拼接后的评分说明
func (r ScoreResult) Reason() string {
	return strings.Join(r.Reasons, "; ")
}

// ScoreLocation 计算商品放在某库位的适配得分
func ScoreLocation(in ScoreInput) ScoreResult {
	allowed, bonus := EvaluateCompatibility(in.Rules, in.Product)
	if !allowed {
		return ScoreResult{Allowed: false, Reasons: []string{"blocked by compatibility rule"}}
	}

	c := in.Classification
	score := BaseScore(c) + bonus
	reasons := []string{
		fmt.Sprintf("ABC=%s XYZ=%s", c.ABC, c.XYZ),
		fmt.Sprintf("rotation %.2f", RotationScore(c.DailyAverage)),
	}
	if bonus > 0 {
		reasons = append(reasons, "allowed by rule")
	}

	loc := in.Location
	if in.Config != nil && in.Rank < in.Config.GoldenZoneLocationCount {
		score += goldenZoneBonus
		reasons = append(reasons, "golden zone")
	} else if loc.ZoneContains("PICK") {
		score += pickZoneBonus
		reasons = append(reasons, "pick zone")
	}
	if in.Config != nil && in.Config.HeavyProductsZoneEnabled && in.Product.IsHeavy && loc.ZoneContains("HEAVY") {
		score += zoningBonus
		reasons = append(reasons, "heavy zone")
	}
	if in.Config != nil && in.Config.FragileProductsZoneEnabled && in.Product.IsFragile && loc.ZoneContains("FRAGILE") {
		score += zoningBonus
		reasons = append(reasons, "fragile zone")
	}
	score -= float64(in.Rank) * rankPenalty
	if !loc.IsActive {
		score -= inactivePenalty
		reasons = append(reasons, "inactive location")
	}

	return ScoreResult{Allowed: true, Score: score, Reasons: reasons}
}
