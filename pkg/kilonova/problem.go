package kilonova

import (
	"github.com/relvacode/iso8601"
	"github.com/shopspring/decimal"
)

type Problem struct {
	ID        int          `json:"id"`
	CreatedAt iso8601.Time `json:"created_at"`
	Name      string       `json:"name"`
	Visible   bool         `json:"visible"`

	TestName string `json:"test_name"`

	TimeLimit   float64 `json:"time_limit"`
	MemoryLimit int     `json:"memory_limit"`
	SourceSize  int     `json:"source_size"`

	DefaultPoints  decimal.Decimal `json:"default_points"`
	ScorePrecision int32           `json:"score_precision"`

	SourceCredits string `json:"source_credits"`
	ConsoleInput  bool   `json:"console_input"`
}
