package database

import (
	"strings"
	"testing"

	"github.com/sportfield/reservation/internal/config"
)

func TestDSNWithPassword(t *testing.T) {
	cfg := config.Config{
		DBUser: "rent",
		DBPass: "secret",
		DBHost: "db.internal",
		DBPort: "3306",
		DBName: "reservation",
	}
	got := dsn(cfg)
	want := "rent:secret@tcp(db.internal:3306)/reservation?charset=utf8mb4&parseTime=true&loc=UTC"
	if got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}

func TestDSNWithoutPassword(t *testing.T) {
	cfg := config.Config{
		DBUser: "rent",
		DBHost: "localhost",
		DBPort: "3306",
		DBName: "reservation",
	}
	got := dsn(cfg)
	if strings.Contains(got, ":@") {
		t.Errorf("empty password should not produce a colon separator: %q", got)
	}
	if !strings.HasPrefix(got, "rent@tcp(localhost:3306)/reservation?") {
		t.Errorf("dsn = %q", got)
	}
}

func TestDSNForcesUTCTimeParsing(t *testing.T) {
	got := dsn(config.Config{DBUser: "u", DBHost: "h", DBPort: "p", DBName: "n"})
	for _, param := range []string{"parseTime=true", "loc=UTC"} {
		if !strings.Contains(got, param) {
			t.Errorf("dsn %q missing %s", got, param)
		}
	}
}
