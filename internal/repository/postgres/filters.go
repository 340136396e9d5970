package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// buildRecommendationFilterClause constructs SQL filter clauses for
// recommendation listings. The returned clause starts with " AND" so it can
// be appended to a "WHERE 1=1" query.
func buildRecommendationFilterClause(filter domain.RecommendationFilter, alias string, startIndex int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	idx := startIndex

	if len(filter.Products) > 0 {
		normalized := make([]string, 0, len(filter.Products))
		for _, p := range filter.Products {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			normalized = append(normalized, p)
		}
		if len(normalized) > 0 {
			clauses = append(clauses, fmt.Sprintf("%sproduct = ANY($%d::text[])", alias, idx))
			args = append(args, pq.Array(normalized))
			idx++
		}
	}

	if filter.From != nil {
		clauses = append(clauses, fmt.Sprintf("%scomputed_at >= $%d", alias, idx))
		args = append(args, *filter.From)
		idx++
	}

	if filter.To != nil {
		clauses = append(clauses, fmt.Sprintf("%scomputed_at <= $%d", alias, idx))
		args = append(args, *filter.To)
		idx++
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " AND " + strings.Join(clauses, " AND "), args
}
