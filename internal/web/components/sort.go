package components

import "sort"

// SortUnits sorts lost units first, then by display name, with unit ID
// as tiebreaker.
func SortUnits(units []UnitData) {
	sort.Slice(units, func(i, j int) bool {
		if units[i].Lost != units[j].Lost {
			return units[i].Lost
		}
		if units[i].DisplayName != units[j].DisplayName {
			return units[i].DisplayName < units[j].DisplayName
		}
		return units[i].UnitID < units[j].UnitID
	})
}
