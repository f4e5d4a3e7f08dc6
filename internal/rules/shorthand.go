package rules

import (
	"strconv"
	"strings"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

// ShortActions renders a transcript in the compact stored form, e.g.
// "f f f r300 c f 3hKdQs x b100".
func ShortActions(actions []domain.ActionRecord) string {
	parts := make([]string, 0, len(actions))
	for _, record := range actions {
		switch record.Kind {
		case domain.ActionFold:
			parts = append(parts, "f")
		case domain.ActionCheck:
			parts = append(parts, "x")
		case domain.ActionCall:
			parts = append(parts, "c")
		case domain.ActionBet:
			parts = append(parts, "b"+strconv.FormatUint(uint64(record.Amount), 10))
		case domain.ActionRaise:
			parts = append(parts, "r"+strconv.FormatUint(uint64(record.Amount), 10))
		case domain.ActionAllIn:
			parts = append(parts, "allin")
		case domain.ActionDeal:
			if record.Cards != "" {
				parts = append(parts, record.Cards)
			}
		default:
		}
	}
	return strings.Join(parts, " ")
}
