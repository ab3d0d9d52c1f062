package cli

import (
	"strings"

	"github.com/iho/financeager/internal/domain"
)

// Format renders the displayable parts of resp: a listed period, the known
// periods and a single entry, in that order. The error field is not
// rendered. Responses without displayable parts yield an empty string.
func Format(resp *domain.Response, layout domain.Layout, stacked bool) (string, error) {
	if resp == nil {
		return "", nil
	}

	var parts []string

	if resp.Elements != nil {
		text, err := layout.PrettifyElements(*resp.Elements, stacked)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	if len(resp.Periods) > 0 {
		parts = append(parts, strings.Join(resp.Periods, "\n"))
	}

	if resp.Element != nil {
		parts = append(parts, layout.PrettifyElement(*resp.Element))
	}

	return strings.Join(parts, "\n"), nil
}
