package repository

import (
	"testing"
	"time"
)

func TestNotLiveClause(t *testing.T) {
	clause, args := notLiveClause("r.status", []string{"Cancelled"})
	if clause != " AND LOWER(r.status) NOT IN (?)" {
		t.Errorf("clause = %q", clause)
	}
	if len(args) != 1 || args[0] != "cancelled" {
		t.Errorf("args = %v, want [cancelled]", args)
	}

	clause, args = notLiveClause("status", []string{"cancelled", "expired"})
	if clause != " AND LOWER(status) NOT IN (?,?)" {
		t.Errorf("clause = %q", clause)
	}
	if len(args) != 2 {
		t.Errorf("args = %v", args)
	}
}

func TestNotLiveClauseDropsBlanks(t *testing.T) {
	clause, args := notLiveClause("status", []string{"", "  ", "cancelled"})
	if clause != " AND LOWER(status) NOT IN (?)" || len(args) != 1 {
		t.Errorf("clause = %q args = %v", clause, args)
	}

	// With nothing to exclude every rent counts as live and no filter is
	// emitted at all.
	clause, args = notLiveClause("status", nil)
	if clause != "" || args != nil {
		t.Errorf("empty exclusions: clause = %q args = %v", clause, args)
	}
}

func TestDBTimeNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	in := time.Date(2030, 1, 7, 13, 30, 0, 0, loc)
	if got := dbTime(in); got != "2030-01-07 10:30:00" {
		t.Errorf("dbTime = %q, want %q", got, "2030-01-07 10:30:00")
	}
}
