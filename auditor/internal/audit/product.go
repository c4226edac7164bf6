package audit

import (
	"github.com/obsidianstack/rttaudit/auditor/internal/i18n"
	"github.com/obsidianstack/rttaudit/pkg/types"
)

// Column keys of the details table.
const (
	ColumnOrigin = "origin"
	ColumnRTT    = "rtt"
)

// msGranularity is the display granularity of the RTT column and headline.
const msGranularity = 1

// Product is what the host pipeline receives for one audit run.
type Product struct {
	Score        float64
	RawValue     float64 // max RTT in ms
	DisplayValue string
	Details      types.TableDetails
}

// Product renders r with the strings from b.
func (r Result) Product(b *i18n.Bundle) Product {
	return Product{
		Score:        r.Score,
		RawValue:     r.MaxRTT,
		DisplayValue: b.FormatMs(r.MaxRTT),
		Details:      r.table(b),
	}
}

func (r Result) table(b *i18n.Bundle) types.TableDetails {
	items := make([]types.Row, 0, len(r.Entries))
	for _, e := range r.Entries {
		items = append(items, types.Row{
			ColumnOrigin: e.Origin,
			ColumnRTT:    e.RTT,
		})
	}
	return types.TableDetails{
		Type: "table",
		Headings: []types.Heading{
			{Key: ColumnOrigin, ValueType: types.ValueTypeText, Label: b.Message(i18n.MsgColumnOrigin)},
			{Key: ColumnRTT, ValueType: types.ValueTypeMs, Label: b.Message(i18n.MsgColumnRTT), Granularity: msGranularity},
		},
		Items: items,
	}
}
