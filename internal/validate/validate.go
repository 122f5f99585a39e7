package validate

import "fmt"

// Text field length limits enforced on every write and search path.
const (
	MaxTitleLength       = 500
	MaxDescriptionLength = 5000
	MaxSearchQueryLength = 200
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Title(s string) string       { return checkLen(s, MaxTitleLength, "title") }
func Description(s string) string { return checkLen(s, MaxDescriptionLength, "description") }
func SearchQuery(s string) string { return checkLen(s, MaxSearchQueryLength, "search query") }
