package deps

import "testing"

func TestCheckBinaries(t *testing.T) {
	statuses := CheckBinaries([]Requirement{
		{Name: "Shell", Command: "sh"},
		{Name: "Missing", Command: "definitely-not-installed-anywhere"},
		{Name: "Blank", Command: "   "},
	})
	if len(statuses) != 3 {
		t.Fatalf("got %d statuses", len(statuses))
	}
	if !statuses[0].Available {
		t.Errorf("sh reported unavailable: %s", statuses[0].Detail)
	}
	if statuses[1].Available {
		t.Error("missing binary reported available")
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Errorf("blank command status = %+v", statuses[2])
	}
}

func TestFirstMissing(t *testing.T) {
	statuses := []Status{
		{Name: "A", Available: true},
		{Name: "B", Optional: true, Available: false},
		{Name: "C", Available: false},
	}
	missing, ok := FirstMissing(statuses)
	if !ok || missing.Name != "C" {
		t.Fatalf("missing = %+v, %v", missing, ok)
	}
	if _, ok := FirstMissing(statuses[:2]); ok {
		t.Error("optional missing dependency should not be fatal")
	}
}
