package entity

import "time"

// Style 标识一种设计风格。
type Style string

const (
	StyleTShirtDesign   Style = "TSHIRT_DESIGN"
	StyleRealism        Style = "REALISM"
	StyleTraditional    Style = "TRADITIONAL"
	StyleNeoTraditional Style = "NEO_TRADITIONAL"
	StyleJapanese       Style = "JAPANESE"
	StyleTribal         Style = "TRIBAL"
	StyleBlackwork      Style = "BLACKWORK"
	StyleGeometric      Style = "GEOMETRIC"
	StyleWatercolor     Style = "WATERCOLOR"
	StyleMinimalist     Style = "MINIMALIST"
	StyleSketch         Style = "SKETCH"
	StyleAnimeManga     Style = "ANIME_MANGA"
	StyleBiomechanical  Style = "BIOMECHANICAL"
	StyleLettering      Style = "LETTERING"
)

// Styles 是可选风格的展示顺序，第一项为默认风格。
var Styles = []Style{
	StyleTShirtDesign,
	StyleNeoTraditional,
	StyleRealism,
	StyleTraditional,
	StyleJapanese,
	StyleWatercolor,
	StyleMinimalist,
	StyleSketch,
	StyleGeometric,
	StyleBlackwork,
	StyleAnimeManga,
	StyleBiomechanical,
	StyleLettering,
	StyleTribal,
}

// styleLabels 将风格标签映射为面向生成模型的英文描述。
var styleLabels = map[Style]string{
	StyleTShirtDesign:   "Modern T-Shirt Graphic Design",
	StyleRealism:        "Hyper-realistic Tattoo Style",
	StyleTraditional:    "American Traditional Tattoo Style",
	StyleNeoTraditional: "Neo-Traditional Tattoo Style",
	StyleJapanese:       "Japanese (Irezumi) Tattoo Style",
	StyleTribal:         "Tribal / Polynesian Tattoo Style",
	StyleBlackwork:      "Blackwork Tattoo Style",
	StyleGeometric:      "Geometric Tattoo Style",
	StyleWatercolor:     "Watercolor Tattoo Style",
	StyleMinimalist:     "Minimalist / Fine Line Tattoo Style",
	StyleSketch:         "Sketch style Tattoo",
	StyleAnimeManga:     "Anime / Manga Tattoo Style",
	StyleBiomechanical:  "Biomechanical Tattoo Style",
	StyleLettering:      "Lettering Tattoo Style",
}

// DefaultStyle 返回默认风格（展示顺序的第一项）。
func DefaultStyle() Style {
	return Styles[0]
}

// Valid 判断风格标签是否为已声明的枚举值。
func (s Style) Valid() bool {
	_, ok := styleLabels[s]
	return ok
}

// Label 返回风格的英文描述。
func (s Style) Label() string {
	return styleLabels[s]
}

// StyleFamily 区分纹身类风格与服饰类风格。
type StyleFamily string

const (
	FamilyTattoo  StyleFamily = "tattoo"
	FamilyApparel StyleFamily = "apparel"
)

// Family 返回风格所属的家族。
func (s Style) Family() StyleFamily {
	if s == StyleTShirtDesign {
		return FamilyApparel
	}
	return FamilyTattoo
}

// ColorMode 标识配色方案。
type ColorMode string

const (
	ColorModeMonochrome ColorMode = "BLACK_AND_GREY"
	ColorModeFullColor  ColorMode = "FULL_COLOR"
	ColorModeAccent     ColorMode = "ACCENT_COLOR"
)

// DerivativeKind 标识派生图种类：纹身转印模板或胸前徽章。
type DerivativeKind string

const (
	DerivativeStencil DerivativeKind = "stencil"
	DerivativeShield  DerivativeKind = "shield"
)

// DerivativeKindFor 根据风格家族选择派生图种类。
func DerivativeKindFor(family StyleFamily) DerivativeKind {
	if family == FamilyApparel {
		return DerivativeShield
	}
	return DerivativeStencil
}

// DbDesign 表示持久化的已生成设计。
type DbDesign struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"column:user_id;index" json:"user_id"`

	ImageURL string `gorm:"column:image_url;type:text" json:"image_url"`
	Prompt   string `gorm:"column:prompt;type:text" json:"prompt"`
	Style    string `gorm:"column:style;type:varchar(64)" json:"style"`
}

// TableName 指定表名。
func (DbDesign) TableName() string {
	return "designs"
}

// DesignCursor 标记按创建时间倒序排列时一条记录的位置。
type DesignCursor struct {
	CreatedAt time.Time
	ID        uint
}

// DesignSummary 是返回给客户端的设计摘要。
type DesignSummary struct {
	ID        uint      `json:"id"`
	ImageURL  string    `json:"image_url"`
	Prompt    string    `json:"prompt"`
	Style     string    `json:"style"`
	CreatedAt time.Time `json:"created_at"`
}

// GalleryPage 是画廊的一页视图。
type GalleryPage struct {
	Designs    []DesignSummary `json:"designs"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
}
