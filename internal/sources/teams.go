package sources

import (
	"strings"
)

// nationalTeams are the schedule names of the 2023 tournament's entrants.
var nationalTeams = map[string]bool{
	"australia":                  true,
	"canada":                     true,
	"china":                      true,
	"chinese taipei":             true,
	"colombia":                   true,
	"cuba":                       true,
	"czech republic":             true,
	"dominican republic":         true,
	"great britain":              true,
	"israel":                     true,
	"italy":                      true,
	"japan":                      true,
	"kingdom of the netherlands": true,
	"korea":                      true,
	"mexico":                     true,
	"nicaragua":                  true,
	"panama":                     true,
	"puerto rico":                true,
	"united states":              true,
	"venezuela":                  true,
}

// teamAliases map names used in scripts to the schedule's names.
var teamAliases = map[string]string{
	"south korea": "korea",
	"netherlands": "kingdom of the netherlands",
	"usa":         "united states",
}

// IsNationalTeam reports whether a lowercased schedule name is a tournament
// entrant.
func IsNationalTeam(name string) bool {
	return nationalTeams[name]
}

// NormalizeTeam lowercases name and applies aliases.
func NormalizeTeam(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := teamAliases[lower]; ok {
		return alias
	}
	return lower
}

// TeamMatches compares a schedule name with a user-supplied team name:
// equality or substring in either direction, case-insensitive.
func TeamMatches(scheduleName, search string) bool {
	api := strings.ToLower(strings.TrimSpace(scheduleName))
	want := NormalizeTeam(search)
	if api == "" || want == "" {
		return false
	}
	return api == want || strings.Contains(api, want) || strings.Contains(want, api)
}
