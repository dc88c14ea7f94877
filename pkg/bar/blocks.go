// Package bar turns snapshots of the shared record into status lines and
// writes them to the bar host.
package bar

import (
	"fmt"

	"gitlab.com/tinyland/lab/barpulse/pkg/state"
)

// Block is one i3bar status block.
type Block struct {
	FullText  string `json:"full_text"`
	Name      string `json:"name"`
	Separator bool   `json:"separator"`
	Align     string `json:"align,omitempty"`
	MinWidth  int    `json:"min_width,omitempty"`
}

// Block names.
const (
	NameTitle    = "title"
	NameTest     = "test"
	NamePower    = "power"
	NameLoad     = "load"
	NameDatetime = "datetime"
)

// Widths in pixels reserved for the title and clock.
const (
	TitleMinWidth    = 1700
	DatetimeMinWidth = 100
)

// TestGlyph is the full_text of the static "test" block.
const TestGlyph = "⚗"

// Options selects the optional blocks.
type Options struct {
	Power bool
	Load  bool
}

// Blocks lays out a snapshot as an ordered list of blocks. It is a pure
// function: equal inputs give equal outputs.
func Blocks(s state.Snapshot, opts Options) []Block {
	blocks := make([]Block, 0, 5)
	blocks = append(blocks,
		Block{FullText: s.Title, Name: NameTitle, Align: "left", MinWidth: TitleMinWidth},
		Block{FullText: TestGlyph, Name: NameTest},
	)
	if opts.Power {
		blocks = append(blocks, Block{FullText: PowerText(s.Power), Name: NamePower})
	}
	if opts.Load && s.Load.Initialized {
		blocks = append(blocks, Block{FullText: LoadText(s.Load), Name: NameLoad})
	}
	blocks = append(blocks, Block{FullText: s.Clock, Name: NameDatetime, MinWidth: DatetimeMinWidth})
	return blocks
}

// PowerText renders "⚡85%" while charging and "85%" otherwise.
func PowerText(p state.Power) string {
	if p.Kind == state.Charging {
		return fmt.Sprintf("⚡%d%%", p.Percent)
	}
	return fmt.Sprintf("%d%%", p.Percent)
}

// LoadText renders the 1-minute load and memory use, e.g. "1.23 45%".
func LoadText(l state.Load) string {
	return fmt.Sprintf("%.2f %.0f%%", l.Load1, l.MemUsedPct)
}
