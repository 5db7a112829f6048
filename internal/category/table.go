package category

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ID identifies an expense category
type ID string

const (
	Food          ID = "food"
	Transport     ID = "transport"
	Shopping      ID = "shopping"
	Entertainment ID = "entertainment"
	Health        ID = "health"
	Housing       ID = "housing"
	Education     ID = "education"
	Utilities     ID = "utilities"
	Other         ID = "other"
)

// Keyword is a word that suggests a category with a given strength
type Keyword struct {
	Word   string  `mapstructure:"word"`
	Weight float64 `mapstructure:"weight"`
}

// Rule lists the keywords for one category
type Rule struct {
	Category ID        `mapstructure:"category"`
	Keywords []Keyword `mapstructure:"keywords"`
}

// Band maps amounts up to and including Max to a category. A zero Max means
// no upper bound and is only valid on the last band.
type Band struct {
	Max      float64 `mapstructure:"max"`
	Category ID      `mapstructure:"category"`
}

// Table is the category taxonomy used for scoring
type Table struct {
	Rules []Rule `mapstructure:"rules"`
	Bands []Band `mapstructure:"bands"`

	// LowConfidenceFloor is the keyword score below which the amount bands are used
	LowConfidenceFloor float64 `mapstructure:"low_confidence_floor"`
	// BandConfidence is reported for every amount-band suggestion
	BandConfidence float64 `mapstructure:"band_confidence"`
	// Default is suggested when neither keywords nor an amount are available
	Default           ID      `mapstructure:"default"`
	DefaultConfidence float64 `mapstructure:"default_confidence"`
}

// DefaultTable returns the built-in taxonomy
func DefaultTable() *Table {
	return &Table{
		Rules: []Rule{
			{Category: Food, Keywords: []Keyword{
				{"星巴克", 8}, {"麦当劳", 8}, {"肯德基", 8}, {"瑞幸", 8}, {"喜茶", 5}, {"必胜客", 5},
				{"餐厅", 4}, {"饭店", 4}, {"咖啡", 4}, {"外卖", 4}, {"美团", 3}, {"饿了么", 5},
				{"starbucks", 8}, {"mcdonald", 8}, {"restaurant", 4}, {"cafe", 4}, {"coffee", 4},
				{"lunch", 3}, {"dinner", 3}, {"breakfast", 3},
			}},
			{Category: Transport, Keywords: []Keyword{
				{"滴滴", 6}, {"地铁", 5}, {"公交", 5}, {"出租", 4}, {"加油", 5}, {"停车", 4},
				{"高铁", 5}, {"机票", 5}, {"uber", 6}, {"lyft", 6}, {"taxi", 5}, {"metro", 4},
				{"parking", 4}, {"fuel", 4}, {"airline", 4},
			}},
			{Category: Shopping, Keywords: []Keyword{
				{"淘宝", 6}, {"京东", 6}, {"天猫", 6}, {"拼多多", 6}, {"超市", 4}, {"商场", 4},
				{"沃尔玛", 5}, {"家乐福", 5}, {"盒马", 5}, {"amazon", 6}, {"walmart", 5},
				{"costco", 5}, {"target", 4}, {"mall", 3}, {"store", 1},
			}},
			{Category: Entertainment, Keywords: []Keyword{
				{"电影", 5}, {"影城", 5}, {"ktv", 5}, {"游戏", 4}, {"演唱会", 5}, {"门票", 4},
				{"cinema", 5}, {"movie", 5}, {"concert", 5}, {"netflix", 6}, {"spotify", 6}, {"ticket", 3},
			}},
			{Category: Health, Keywords: []Keyword{
				{"医院", 6}, {"药房", 6}, {"药店", 6}, {"诊所", 5}, {"体检", 5}, {"挂号", 5},
				{"pharmacy", 6}, {"cvs", 5}, {"walgreens", 5}, {"clinic", 5}, {"hospital", 6}, {"dental", 5},
			}},
			{Category: Housing, Keywords: []Keyword{
				{"房租", 6}, {"物业", 5}, {"租金", 6}, {"酒店", 4}, {"rent", 5}, {"mortgage", 6},
				{"hotel", 4}, {"airbnb", 5},
			}},
			{Category: Education, Keywords: []Keyword{
				{"学费", 6}, {"培训", 5}, {"书店", 5}, {"课程", 5}, {"tuition", 6}, {"course", 4},
				{"bookstore", 5}, {"school", 4},
			}},
			{Category: Utilities, Keywords: []Keyword{
				{"电费", 6}, {"水费", 6}, {"燃气", 6}, {"话费", 5}, {"宽带", 5}, {"electric", 5},
				{"water bill", 5}, {"internet", 4}, {"phone bill", 5},
			}},
		},
		Bands: []Band{
			{Max: 30, Category: Food},
			{Max: 200, Category: Shopping},
			{Max: 1000, Category: Entertainment},
			{Max: 0, Category: Housing},
		},
		LowConfidenceFloor: 0.1,
		BandConfidence:     0.3,
		Default:            Other,
		DefaultConfidence:  0.05,
	}
}

// LoadTable reads a taxonomy file (YAML, JSON or TOML). Thresholds the file
// leaves out keep their default values.
func LoadTable(path string) (*Table, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading taxonomy: %w", err)
	}

	var t Table
	if err := v.Unmarshal(&t); err != nil {
		return nil, fmt.Errorf("decoding taxonomy: %w", err)
	}

	defaults := DefaultTable()
	if len(t.Bands) == 0 {
		t.Bands = defaults.Bands
	}
	if t.LowConfidenceFloor == 0 {
		t.LowConfidenceFloor = defaults.LowConfidenceFloor
	}
	if t.BandConfidence == 0 {
		t.BandConfidence = defaults.BandConfidence
	}
	if t.Default == "" {
		t.Default = defaults.Default
	}
	if t.DefaultConfidence == 0 {
		t.DefaultConfidence = defaults.DefaultConfidence
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy %s: %w", path, err)
	}
	return &t, nil
}

// Validate checks the table is usable for scoring
func (t *Table) Validate() error {
	if len(t.Rules) == 0 {
		return errors.New("at least one category rule is required")
	}
	for _, r := range t.Rules {
		if r.Category == "" {
			return errors.New("rule without category")
		}
		for _, kw := range r.Keywords {
			if kw.Word == "" {
				return fmt.Errorf("category %s: empty keyword", r.Category)
			}
			if kw.Weight <= 0 {
				return fmt.Errorf("category %s: keyword %q must have a positive weight", r.Category, kw.Word)
			}
		}
	}
	if len(t.Bands) == 0 {
		return errors.New("at least one amount band is required")
	}
	for i, b := range t.Bands {
		last := i == len(t.Bands)-1
		switch {
		case b.Category == "":
			return fmt.Errorf("band %d: category is required", i)
		case !last && b.Max <= 0:
			return fmt.Errorf("band %d: only the last band may be unbounded", i)
		case i > 0 && b.Max != 0 && b.Max <= t.Bands[i-1].Max:
			return fmt.Errorf("band %d: bounds must ascend", i)
		}
	}
	return nil
}
