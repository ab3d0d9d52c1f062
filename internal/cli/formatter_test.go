package cli

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/financeager/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func foodElements() *domain.Elements {
	return &domain.Elements{Categories: []domain.CategoryRecord{{
		Name:  "food",
		Value: -2.5,
		Entries: []domain.EntryRecord{
			{ID: ptr(uint64(1)), Name: "bread", Value: -2.5, Date: "2024-01-01"},
		},
	}}}
}

func TestFormat(t *testing.T) {
	layout := domain.DefaultLayout()

	header := fmt.Sprintf("%-37s", fmt.Sprintf("%-18s %8s", "Food", "2.50"))
	entry := fmt.Sprintf("  %-16s %8s %-5s %3s", "Bread", "2.50", "01-01", "1")

	tests := []struct {
		name string
		resp *domain.Response
		want string
	}{
		{name: "nil response", resp: nil, want: ""},
		{name: "id only", resp: &domain.Response{ID: ptr(uint64(3))}, want: ""},
		{name: "error is not rendered", resp: &domain.Response{Error: ptr("boom")}, want: ""},
		{name: "periods", resp: &domain.Response{Periods: []string{"2023", "2024"}}, want: "2023\n2024"},
		{
			name: "element",
			resp: &domain.Response{Element: &domain.EntryRecord{Name: "groceries", Value: -2.5, Date: "2024-01-01", Category: "food"}},
			want: "Name    : Groceries\nValue   : -2.50\nDate    : 01-01\nCategory: Food",
		},
		{
			name: "elements",
			resp: &domain.Response{Elements: foodElements()},
			want: header + "\n" + entry,
		},
		{name: "empty period", resp: &domain.Response{Elements: &domain.Elements{}}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.resp, layout, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Stacked(t *testing.T) {
	elements := foodElements()
	elements.Categories = append(elements.Categories, domain.CategoryRecord{
		Name:    "income",
		Value:   1000,
		Entries: []domain.EntryRecord{{ID: ptr(uint64(2)), Name: "salary", Value: 1000, Date: "2024-01-02"}},
	})

	got, err := Format(&domain.Response{Elements: elements}, domain.DefaultLayout(), true)
	require.NoError(t, err)

	sections := strings.Split(got, "\n\n")
	require.Len(t, sections, 2)
	assert.True(t, strings.HasPrefix(sections[0], "Earnings"))
	assert.Contains(t, sections[0], "Income")
	assert.True(t, strings.HasPrefix(sections[1], "Expenses"))
	assert.Contains(t, sections[1], "Food")
}

func TestFormat_MalformedElements(t *testing.T) {
	resp := &domain.Response{Elements: &domain.Elements{Categories: []domain.CategoryRecord{{Name: ""}}}}

	_, err := Format(resp, domain.DefaultLayout(), false)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
