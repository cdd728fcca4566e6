package evaluation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/types"
)

// NormalizedEvaluation 规范化后的评估载荷，规范化器的唯一输出形状
type NormalizedEvaluation struct {
	Summary         map[string]interface{}
	Candidates      map[string]types.NormalizedCandidate
	Ranking         []types.RankingEntry
	CandidatesCount int
}

// Normalize 在入口边界一次性解析松散评估载荷。
// summary/candidates/ranking 各自接受已结构化的值或JSON字符串（标签联合），
// 解析失败返回 InvalidShape；下游不再做任何形状猜测。
func Normalize(rawSummary, rawCandidates, rawRanking interface{}, candidatesCount *int) (*NormalizedEvaluation, error) {
	summaryBytes, err := toJSONBytes("normalize_summary", rawSummary)
	if err != nil {
		return nil, err
	}
	candidatesBytes, err := toJSONBytes("normalize_candidates", rawCandidates)
	if err != nil {
		return nil, err
	}
	rankingBytes, err := toJSONBytes("normalize_ranking", rawRanking)
	if err != nil {
		return nil, err
	}

	candidates, err := normalizeCandidates(candidatesBytes)
	if err != nil {
		return nil, err
	}

	ranking, err := normalizeRanking(rankingBytes)
	if err != nil {
		return nil, err
	}

	summary, err := normalizeSummary(summaryBytes, candidates)
	if err != nil {
		return nil, err
	}

	count := len(candidates)
	if candidatesCount != nil {
		count = *candidatesCount
	}

	return &NormalizedEvaluation{
		Summary:         summary,
		Candidates:      candidates,
		Ranking:         ranking,
		CandidatesCount: count,
	}, nil
}

// toJSONBytes 标签联合入口：nil → nil；字符串按JSON解析；其余值重新编组。
// 非法JSON字符串与不可编组的值都以 InvalidShape 拒绝。
func toJSONBytes(op string, raw interface{}) ([]byte, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, nil
		}
		if !gjson.Valid(trimmed) {
			return nil, types.NewInvalidShapeError(op, "字符串载荷不是合法JSON")
		}
		// 双重编码的字符串（JSON字符串字面量包着JSON文本）剥掉一层再解析
		if parsed := gjson.Parse(trimmed); parsed.Type == gjson.String {
			return toJSONBytes(op, parsed.String())
		}
		return []byte(trimmed), nil
	case []byte:
		if len(v) == 0 {
			return nil, nil
		}
		if !gjson.ValidBytes(v) {
			return nil, types.NewInvalidShapeError(op, "字节载荷不是合法JSON")
		}
		if parsed := gjson.ParseBytes(v); parsed.Type == gjson.String {
			return toJSONBytes(op, parsed.String())
		}
		return v, nil
	case json.RawMessage:
		return toJSONBytes(op, []byte(v))
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, types.NewInvalidShapeError(op, "载荷无法编组为JSON: "+err.Error())
		}
		return encoded, nil
	}
}

// normalizeCandidates 将候选人映射逐项强制为严格形状：
// score 非数字时取0，recommendation 缺失时取默认值。
func normalizeCandidates(data []byte) (map[string]types.NormalizedCandidate, error) {
	out := make(map[string]types.NormalizedCandidate)
	if len(data) == 0 {
		return out, nil
	}

	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return nil, types.NewInvalidShapeError("normalize_candidates", "candidates 必须是对象")
	}

	parsed.ForEach(func(key, value gjson.Result) bool {
		recommendation := strings.TrimSpace(value.Get("recommendation").String())
		if recommendation == "" {
			recommendation = constants.DefaultRecommendation
		}
		out[key.String()] = types.NormalizedCandidate{
			Name:           value.Get("name").String(),
			Score:          coerceScore(value.Get("score")),
			Recommendation: recommendation,
		}
		return true
	})

	return out, nil
}

// normalizeRanking 将排名条目强制为严格形状。
// 外部提供的顺序原样保留；match_level 缺失时按分数阈值推导，
// analysis 缺失时生成提及分数的一句话摘要。
func normalizeRanking(data []byte) ([]types.RankingEntry, error) {
	if len(data) == 0 {
		return []types.RankingEntry{}, nil
	}

	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return nil, types.NewInvalidShapeError("normalize_ranking", "ranking 必须是数组")
	}

	entries := make([]types.RankingEntry, 0, len(parsed.Array()))
	for _, item := range parsed.Array() {
		score := coerceScore(item.Get("score"))

		candidateID := item.Get("candidate_id").String()
		if candidateID == "" {
			candidateID = item.Get("id").String()
		}

		matchLevel := strings.TrimSpace(item.Get("match_level").String())
		if matchLevel == "" {
			matchLevel = MatchLevelForScore(score)
		}

		analysis := strings.TrimSpace(item.Get("analysis").String())
		if analysis == "" {
			analysis = fmt.Sprintf("Candidato evaluado con puntaje %d sobre 100.", score)
		}

		entries = append(entries, types.RankingEntry{
			CandidateID:  candidateID,
			Name:         item.Get("name").String(),
			Score:        score,
			Analysis:     analysis,
			MatchLevel:   matchLevel,
			KeyStrengths: extractKeyStrengths(item),
		})
	}

	return entries, nil
}

// 排名条目中优势列表的字段别名，按优先级排列
var strengthAliases = []string{"key_strengths", "strengths", "fortalezas", "fortalezas_clave"}

// extractKeyStrengths 从别名字段提取优势列表。
// 接受JSON数组或逗号分隔字符串，最多保留4项；都缺失时为空列表。
func extractKeyStrengths(item gjson.Result) []string {
	for _, alias := range strengthAliases {
		field := item.Get(alias)
		if !field.Exists() {
			continue
		}

		var values []string
		if field.IsArray() {
			for _, v := range field.Array() {
				if s := strings.TrimSpace(v.String()); s != "" {
					values = append(values, s)
				}
			}
		} else if field.Type == gjson.String {
			for _, part := range strings.Split(field.String(), ",") {
				if s := strings.TrimSpace(part); s != "" {
					values = append(values, s)
				}
			}
		}

		if len(values) > constants.RankingStrengthMax {
			values = values[:constants.RankingStrengthMax]
		}
		if len(values) > 0 {
			return values
		}
	}
	return []string{}
}

// normalizeSummary 汇总块：已是规范形状时原样保留（额外键一并带上），
// 否则由候选人数据合成 kpis 与 notes。
func normalizeSummary(data []byte, candidates map[string]types.NormalizedCandidate) (map[string]interface{}, error) {
	var out map[string]interface{}

	if len(data) > 0 {
		parsed := gjson.ParseBytes(data)
		if !parsed.IsObject() {
			return nil, types.NewInvalidShapeError("normalize_summary", "summary 必须是对象")
		}
		if isCanonicalSummary(parsed) {
			if err := json.Unmarshal(data, &out); err != nil {
				return nil, types.NewInvalidShapeError("normalize_summary", err.Error())
			}
			return out, nil
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, types.NewInvalidShapeError("normalize_summary", err.Error())
		}
	}

	if out == nil {
		out = make(map[string]interface{})
	}

	out["kpis"] = map[string]interface{}{
		"completed_interviews": len(candidates),
		"avg_score":            averageScore(candidates),
	}
	if _, ok := out["notes"].(string); !ok {
		out["notes"] = fmt.Sprintf("Resumen generado automáticamente para %d candidatos evaluados.", len(candidates))
	}

	return out, nil
}

// isCanonicalSummary 判断是否已具备 {kpis:{completed_interviews, avg_score}, notes} 形状
func isCanonicalSummary(parsed gjson.Result) bool {
	return parsed.Get("kpis.completed_interviews").Exists() &&
		parsed.Get("kpis.avg_score").Exists() &&
		parsed.Get("notes").Exists()
}

// averageScore 候选人平均分，保留1位小数；无候选人时为0.0
func averageScore(candidates map[string]types.NormalizedCandidate) float64 {
	if len(candidates) == 0 {
		return 0.0
	}
	total := 0
	for _, c := range candidates {
		total += c.Score
	}
	return math.Round(float64(total)/float64(len(candidates))*10) / 10
}

// coerceScore 将分数强制为整数：数字四舍五入，数字形字符串解析，其余取0
func coerceScore(r gjson.Result) int {
	switch r.Type {
	case gjson.Number:
		return int(math.Round(r.Float()))
	case gjson.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(r.String()), 64); err == nil {
			return int(math.Round(f))
		}
	}
	return 0
}

// MatchLevelForScore 按分数阈值推导匹配等级
func MatchLevelForScore(score int) string {
	switch {
	case score >= constants.ScoreThresholdExcellent:
		return constants.MatchLevelExcellent
	case score >= constants.ScoreThresholdGood:
		return constants.MatchLevelGood
	case score >= constants.ScoreThresholdModerate:
		return constants.MatchLevelModerate
	default:
		return constants.MatchLevelWeak
	}
}
