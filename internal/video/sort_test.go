package video

import "testing"

func TestOrderByClause(t *testing.T) {
	cases := map[string]string{
		"most_recent":  "v.created_at DESC",
		"most_viewed":  "v.views DESC",
		"most_liked":   "v.likes DESC",
		"least_viewed": "v.views ASC",
		"oldest_first": "v.created_at ASC",
		"":             "v.created_at DESC",
		"sneaky; DROP TABLE videos": "v.created_at DESC",
	}

	for filter, want := range cases {
		if got := orderByClause(filter); got != want {
			t.Errorf("orderByClause(%q) = %q, want %q", filter, got, want)
		}
	}
}
