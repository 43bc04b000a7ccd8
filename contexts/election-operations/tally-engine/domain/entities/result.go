package entities

import "sort"

// RankedCandidate is one tally line within a zone. NOTA lines are ranked
// like any other candidate and are never hidden from results.
type RankedCandidate struct {
	CandidateID string
	Name        string
	Votes       int
	Rank        int
	IsNota      bool
}

// ZoneResult carries a zone's winner slate in presentation form.
type ZoneResult struct {
	ZoneID   string
	ZoneCode string
	ZoneName string
	Seats    int
	Winners  []RankedCandidate
}

// ZoneTurnout is one zone's slice of the turnout statistics.
type ZoneTurnout struct {
	ZoneID      string
	ZoneCode    string
	ZoneName    string
	BallotsCast int
	VoterCount  int
}

// TurnoutStats aggregates participation for one election, with test-prefix
// voters already excluded.
type TurnoutStats struct {
	ElectionID     string
	BallotsCast    int
	DistinctVoters int
	Zones          []ZoneTurnout
}

// zoneDisplayOrder fixes the presentation order of zone codes per election
// type. It is cosmetic only; winner selection never consults it.
var zoneDisplayOrder = map[string][]string{
	"general": {"NATL"},
	"zonal":   {"ZN-A", "ZN-B", "ZN-C", "ZN-D", "ZN-E", "ZN-F"},
}

// ZoneDisplayRank returns the fixed presentation rank for a zone code.
// Codes missing from the table sort after every listed code.
func ZoneDisplayRank(electionType string, zoneCode string) int {
	for index, code := range zoneDisplayOrder[electionType] {
		if code == zoneCode {
			return index
		}
	}
	return len(zoneDisplayOrder[electionType]) + 1
}

// SortZoneResultsForDisplay orders results by the static display table,
// falling back to zone code for unlisted zones.
func SortZoneResultsForDisplay(electionType string, results []ZoneResult) {
	sort.SliceStable(results, func(i, j int) bool {
		ri := ZoneDisplayRank(electionType, results[i].ZoneCode)
		rj := ZoneDisplayRank(electionType, results[j].ZoneCode)
		if ri != rj {
			return ri < rj
		}
		return results[i].ZoneCode < results[j].ZoneCode
	})
}

// SortZoneTurnoutForDisplay applies the same cosmetic ordering to turnout
// rows.
func SortZoneTurnoutForDisplay(electionType string, rows []ZoneTurnout) {
	sort.SliceStable(rows, func(i, j int) bool {
		ri := ZoneDisplayRank(electionType, rows[i].ZoneCode)
		rj := ZoneDisplayRank(electionType, rows[j].ZoneCode)
		if ri != rj {
			return ri < rj
		}
		return rows[i].ZoneCode < rows[j].ZoneCode
	})
}
