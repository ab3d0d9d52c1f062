package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Layout holds the fixed widths used to render entries. Widths never depend
// on content: longer names are truncated.
type Layout struct {
	DateFormat     string
	NameWidth      int
	ValueWidth     int
	ValueDigits    int
	DateWidth      int
	IDWidth        int
	CategoryIndent int
	ShowID         bool
}

// DefaultLayout returns the stock column widths.
func DefaultLayout() Layout {
	return Layout{
		DateFormat:     LegacyDateLayout,
		NameWidth:      16,
		ValueWidth:     8,
		ValueDigits:    2,
		DateWidth:      5,
		IDWidth:        3,
		CategoryIndent: 2,
		ShowID:         true,
	}
}

// TitleCase derives the display form of a stored name by capitalizing each
// word. Runs of whitespace collapse to one space.
func TitleCase(name string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(name), " "))
}

// EntryWidth is the length of a rendered entry line.
func (l Layout) EntryWidth() int {
	width := l.NameWidth + 1 + l.ValueWidth + 1 + l.DateWidth
	if l.ShowID {
		width += 1 + l.IDWidth
	}
	return width
}

// FormatEntry renders an entry on a single fixed-width line. The value is
// shown as its absolute amount.
func (l Layout) FormatEntry(e BaseEntry) string {
	line := fmt.Sprintf("%-*.*s %*.*f %-*.*s",
		l.NameWidth, l.NameWidth, TitleCase(e.Name()),
		l.ValueWidth, l.ValueDigits, math.Abs(e.Value()),
		l.DateWidth, l.DateWidth, e.Date().Format(l.DateFormat),
	)
	if l.ShowID {
		line += fmt.Sprintf(" %*s", l.IDWidth, e.ID().String())
	}
	return line
}

// FormatCategory renders the category header followed by one indented line
// per entry in insertion order.
func (l Layout) FormatCategory(c CategoryEntry) string {
	lines := make([]string, 0, len(c.entries)+1)
	lines = append(lines, l.headerLine(TitleCase(c.Name()), c.Value()))

	indent := strings.Repeat(" ", l.CategoryIndent)
	for _, e := range c.entries {
		lines = append(lines, indent+l.FormatEntry(e))
	}

	return strings.Join(lines, "\n")
}

func (l Layout) headerLine(label string, value float64) string {
	width := l.NameWidth + l.CategoryIndent
	line := fmt.Sprintf("%-*.*s %*.*f", width, width, label, l.ValueWidth, l.ValueDigits, math.Abs(value))
	return fmt.Sprintf("%-*s", l.EntryWidth()+l.CategoryIndent, line)
}

// PrettifyElement renders a single record as a labeled field list. Unlike
// FormatEntry the value keeps its sign.
func (l Layout) PrettifyElement(r EntryRecord) string {
	date := r.Date
	if d, err := ParseDate(r.Date); err == nil {
		date = d.Format(l.DateFormat)
	}

	fields := [][2]string{
		{"Name", TitleCase(r.Name)},
		{"Value", fmt.Sprintf("%.*f", l.ValueDigits, r.Value)},
		{"Date", date},
	}
	if r.Category != "" {
		fields = append(fields, [2]string{"Category", TitleCase(r.Category)})
	}

	width := 0
	for _, f := range fields {
		width = max(width, len(f[0]))
	}

	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = fmt.Sprintf("%-*s: %s", width, f[0], f[1])
	}
	return strings.Join(lines, "\n")
}

// PrettifyElements renders a listed period. The flat layout concatenates
// category blocks in the given order; the stacked layout groups categories
// into earnings and expenses sections, each closed by a total line.
func (l Layout) PrettifyElements(elements Elements, stacked bool) (string, error) {
	categories := make([]CategoryEntry, 0, len(elements.Categories))
	for _, r := range elements.Categories {
		c, err := CategoryEntryFromRecord(r)
		if err != nil {
			return "", err
		}
		categories = append(categories, c)
	}

	if !stacked {
		blocks := make([]string, len(categories))
		for i, c := range categories {
			blocks[i] = l.FormatCategory(c)
		}
		return strings.Join(blocks, "\n"), nil
	}

	var earnings, expenses []CategoryEntry
	for _, c := range categories {
		if c.Value() < 0 {
			expenses = append(expenses, c)
		} else {
			earnings = append(earnings, c)
		}
	}

	var sections []string
	for _, s := range []struct {
		title      string
		categories []CategoryEntry
	}{
		{"Earnings", earnings},
		{"Expenses", expenses},
	} {
		if len(s.categories) == 0 {
			continue
		}
		sections = append(sections, l.section(s.title, s.categories))
	}

	return strings.Join(sections, "\n\n"), nil
}

func (l Layout) section(title string, categories []CategoryEntry) string {
	lines := []string{fmt.Sprintf("%-*s", l.EntryWidth()+l.CategoryIndent, title)}

	total := decimal.Zero
	for _, c := range categories {
		lines = append(lines, l.FormatCategory(c))
		total = total.Add(decimal.NewFromFloat(c.Value()))
	}

	sum, _ := total.Float64()
	lines = append(lines, l.headerLine("Total", sum))

	return strings.Join(lines, "\n")
}
