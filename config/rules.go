package config

// DistortionRule 은 인지 왜곡 유형 하나와 그 트리거 문자열 목록이다.
type DistortionRule struct {
	Type        string   `yaml:"type"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Triggers    []string `yaml:"triggers"`
}

type MindfulnessExercise struct {
	Title    string `yaml:"title"`
	Duration string `yaml:"duration"`
	Link     string `yaml:"link"`
}

// RuleTables 는 분석 파이프라인이 사용하는 키워드 규칙/고정 문구 테이블이다.
// 프로세스 시작 시 한 번 만들어 서비스에 주입하며, 이후 변경하지 않는다.
type RuleTables struct {
	Distortions            []DistortionRule               `yaml:"distortions"`
	NoDistortionText       string                         `yaml:"no_distortion_text"`
	HighRiskTerms          []string                       `yaml:"high_risk_terms"`
	Suggestions            map[string][]string            `yaml:"suggestions"`
	DefaultSuggestions     []string                       `yaml:"default_suggestions"`
	Mindfulness            map[string]MindfulnessExercise `yaml:"mindfulness"`
	DefaultMindfulness     MindfulnessExercise            `yaml:"default_mindfulness"`
	GrowthPlan             []string                       `yaml:"growth_plan"`
	DefaultForecastTrigger []string                       `yaml:"default_forecast_triggers"`
}

func DefaultRuleTables() RuleTables {
	return RuleTables{
		Distortions: []DistortionRule{
			{Type: "CATASTROPHIZING", Name: "灾难化思维", Description: "灾难化思维 - 倾向于将事情往最坏的方向想", Triggers: []string{"完蛋", "毁了", "再也"}},
			{Type: "BLACK_WHITE", Name: "非黑即白", Description: "非黑即白思维 - 用极端的方式看待事物", Triggers: []string{"总是", "从不", "永远"}},
			{Type: "OVERGENERALIZATION", Name: "过度概括", Description: "过度概括 - 从单一事件得出普遍结论", Triggers: []string{"每次", "所有人"}},
			{Type: "MIND_READING", Name: "读心术", Description: "读心术 - 假设知道别人在想什么", Triggers: []string{"他肯定觉得", "她一定认为"}},
			{Type: "EMOTIONAL_REASONING", Name: "情绪推理", Description: "情绪推理 - 把感受当作事实", Triggers: []string{"我感觉我很失败"}},
			{Type: "SHOULD_STATEMENTS", Name: "应该句式", Description: "应该句式 - 对自己有过高要求", Triggers: []string{"我应该", "必须"}},
			{Type: "LABELING", Name: "贴标签", Description: "贴标签 - 给自己或他人贴负面标签", Triggers: []string{"我是个失败者", "我很笨"}},
			{Type: "PERSONALIZATION", Name: "个人化", Description: "个人化 - 将不相关的事归咎于自己", Triggers: []string{"都是我的错"}},
			{Type: "MENTAL_FILTER", Name: "心理过滤", Description: "心理过滤 - 只关注负面信息", Triggers: []string{"只看到"}},
			{Type: "DISQUALIFYING_POSITIVE", Name: "否定正面", Description: "否定正面 - 忽视积极的一面", Triggers: []string{"但那不算什么"}},
		},
		NoDistortionText: "未检测到明显认知偏差",
		HighRiskTerms:    []string{"自杀", "不想活", "结束生命", "死", "遗书"},
		Suggestions: map[string][]string{
			"SAD":     {"试着做一些让自己开心的事情，比如听音乐、散步", "与信任的朋友或家人分享你的感受"},
			"ANXIOUS": {"尝试深呼吸练习，每次吸气4秒，屏气4秒，呼气4秒", "写下让你焦虑的具体事项，逐一分析其可能性"},
			"ANGRY":   {"先让自己冷静下来，离开让你生气的环境", "试着从对方的角度思考问题"},
			"FEAR":    {"识别恐惧的来源，问问自己这种恐惧是否合理", "尝试渐进式暴露疗法，逐步面对恐惧"},
			"HAPPY":   {"记录下让你快乐的具体事件，建立积极回忆库", "与他人分享你的快乐，传递正能量"},
		},
		DefaultSuggestions: []string{"继续保持写日记的习惯，记录每天的感受和想法"},
		Mindfulness: map[string]MindfulnessExercise{
			"ANXIOUS": {Title: "呼吸冥想", Duration: "5分钟", Link: "/mindfulness/breathing"},
			"FEAR":    {Title: "身体扫描", Duration: "10分钟", Link: "/mindfulness/body-scan"},
			"SAD":     {Title: "慈心冥想", Duration: "8分钟", Link: "/mindfulness/loving-kindness"},
			"ANGRY":   {Title: "正念行走", Duration: "10分钟", Link: "/mindfulness/walking"},
		},
		DefaultMindfulness:     MindfulnessExercise{Title: "呼吸冥想", Duration: "5分钟", Link: "/mindfulness/breathing"},
		GrowthPlan:             []string{"建议每天进行10分钟正念冥想", "尝试记录3件积极事件", "注意压力管理，适时放松"},
		DefaultForecastTrigger: []string{"工作压力", "人际关系"},
	}
}

// withDefaults 는 YAML 에서 비워 둔 테이블을 기본값으로 채운다.
func (r RuleTables) withDefaults() RuleTables {
	d := DefaultRuleTables()
	if len(r.Distortions) == 0 {
		r.Distortions = d.Distortions
	}
	if r.NoDistortionText == "" {
		r.NoDistortionText = d.NoDistortionText
	}
	if len(r.HighRiskTerms) == 0 {
		r.HighRiskTerms = d.HighRiskTerms
	}
	if len(r.Suggestions) == 0 {
		r.Suggestions = d.Suggestions
	}
	if len(r.DefaultSuggestions) == 0 {
		r.DefaultSuggestions = d.DefaultSuggestions
	}
	if len(r.Mindfulness) == 0 {
		r.Mindfulness = d.Mindfulness
	}
	if r.DefaultMindfulness.Title == "" {
		r.DefaultMindfulness = d.DefaultMindfulness
	}
	if len(r.GrowthPlan) == 0 {
		r.GrowthPlan = d.GrowthPlan
	}
	if len(r.DefaultForecastTrigger) == 0 {
		r.DefaultForecastTrigger = d.DefaultForecastTrigger
	}
	return r
}
