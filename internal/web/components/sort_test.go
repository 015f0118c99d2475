package components

import "testing"

func TestSortUnitsLostFirst(t *testing.T) {
	units := []UnitData{
		{UnitID: "c", DisplayName: "Charlie"},
		{UnitID: "a", DisplayName: "Alpha", Lost: true},
		{UnitID: "b", DisplayName: "Bravo"},
	}

	SortUnits(units)

	if !units[0].Lost {
		t.Fatalf("first unit is %s, want the lost one", units[0].DisplayName)
	}
	if units[1].DisplayName != "Bravo" || units[2].DisplayName != "Charlie" {
		t.Errorf("live units not name-sorted: %s, %s", units[1].DisplayName, units[2].DisplayName)
	}
}
