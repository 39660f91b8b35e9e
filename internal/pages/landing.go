package pages

// Hero is the landing headline.
type Hero struct {
	Lead   string
	Accent string
	Body   string
}

// Feature is one card of the feature grid.
type Feature struct {
	Title       string
	Description string
}

// Plan is one pricing plan.
type Plan struct {
	Name        string
	Price       string
	Period      string
	Features    []string
	Recommended bool
}

var landingHero = Hero{
	Lead:   "あなたのスキルを",
	Accent: "次のレベルへ",
	Body:   "30本の体系的な講義動画とAIチャットボットで、効率的に学習を進められます",
}

var landingFeatures = []Feature{
	{Title: "30本の講義動画", Description: "体系的に学べる高品質な講義コンテンツ"},
	{Title: "AIチャットボット", Description: "24時間いつでも質問できるAIアシスタント"},
	{Title: "理解度テスト", Description: "学習の進捗を確認できるテスト機能"},
	{Title: "進捗管理", Description: "学習の進み具合を可視化"},
}

var landingPlans = []Plan{
	{
		Name:     "ベーシック",
		Price:    "¥9,800",
		Period:   "/月",
		Features: []string{"全30本の講義動画", "AIチャットボット", "理解度テスト", "学習進捗管理"},
	},
	{
		Name:        "プレミアム",
		Price:       "¥29,800",
		Period:      "/3ヶ月",
		Features:    []string{"全30本の講義動画", "AIチャットボット（優先対応）", "理解度テスト", "学習進捗管理", "個別サポート", "修了証明書"},
		Recommended: true,
	},
}
