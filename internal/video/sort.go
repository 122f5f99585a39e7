package video

// orderings maps sort-filter tokens to ORDER BY expressions. The values are
// fixed strings, never user input.
var orderings = map[string]string{
	"most_recent":  "v.created_at DESC",
	"most_viewed":  "v.views DESC",
	"most_liked":   "v.likes DESC",
	"least_viewed": "v.views ASC",
	"oldest_first": "v.created_at ASC",
}

const defaultOrdering = "v.created_at DESC"

// orderByClause resolves a sort-filter token; unrecognized or empty tokens
// fall back to recency.
func orderByClause(filter string) string {
	if clause, ok := orderings[filter]; ok {
		return clause
	}
	return defaultOrdering
}
