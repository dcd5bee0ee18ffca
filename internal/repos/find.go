package repos

import (
	"strings"

	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/apierr"
)

// Pagination bounds a find operation. Zero Limit means no limit.
type Pagination struct {
	Limit  int
	Offset int
}

func (p Pagination) apply(q *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	return q
}

// ParseSort turns a "field:asc,other:desc" specifier into ORDER BY clauses.
// Fields are resolved through the allowed map so callers cannot order by
// arbitrary SQL. An empty spec returns nil.
func ParseSort(spec string, allowed map[string]string) ([]string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var clauses []string
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field := part
		direction := "asc"
		if idx := strings.LastIndex(part, ":"); idx >= 0 {
			field = part[:idx]
			direction = strings.ToLower(strings.TrimSpace(part[idx+1:]))
		}
		column, ok := allowed[strings.TrimSpace(field)]
		if !ok {
			return nil, apierr.InvalidArgument("unknown sort field %q", field)
		}
		if direction != "asc" && direction != "desc" {
			return nil, apierr.InvalidArgument("invalid sort direction %q for field %q", direction, field)
		}
		clauses = append(clauses, column+" "+direction)
	}
	return clauses, nil
}

func applySort(q *gorm.DB, clauses []string) *gorm.DB {
	for _, c := range clauses {
		q = q.Order(c)
	}
	return q
}

func likePattern(s string) string {
	return "%" + s + "%"
}
