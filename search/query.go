package search

import (
	"strconv"
	"strings"

	"dmcore/domain"
)

// Query represents the structured parameters of a message search.
// It decouples the raw user input from the index engine requirements.
type Query struct {
	RawInput string           // The original input from the user
	Terms    string           // The actual text to search
	Channel  domain.ChannelID // Restrict to one channel; empty means all
	Lang     string           // ISO 639-1 language filter; empty means all
	Limit    int              // Pagination: number of results
}

// ParseQuery parses a raw string to extract command-line style arguments.
// Example: /find "invoice" --channel alice_bob --lang en --limit 5
func ParseQuery(input string) Query {
	query := Query{
		RawInput: input,
		Limit:    10, // Default limit
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		// Handle flags like --channel alice_bob or --limit 5
		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			switch key {
			case "channel":
				query.Channel = domain.ChannelID(val)
			case "lang":
				query.Lang = val
			case "limit":
				if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
					query.Limit = limit
				}
			}
			i++ // Skip the value part in next iteration
			continue
		}

		// If it's not a flag, it's a search term
		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, strings.Trim(part, `"`))
		}
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}
