package database

import "testing"

func TestDSNPrefersURL(t *testing.T) {
	c := &Config{URL: "postgres://u:p@db:5432/sp?sslmode=disable", Host: "ignored"}
	if got := c.DSN(); got != c.URL {
		t.Fatalf("expected URL, got %q", got)
	}
}

func TestDSNFromFields(t *testing.T) {
	c := &Config{Host: "localhost", Port: 5432, User: "sp", Password: "dev", Database: "sp", SSLMode: "disable"}
	want := "host=localhost port=5432 user=sp password=dev dbname=sp sslmode=disable"
	if got := c.DSN(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWithDefaults(t *testing.T) {
	c := Config{MaxIdleConns: 2}.withDefaults()
	if c.MaxOpenConns != 25 || c.MaxIdleConns != 2 || c.ConnMaxLifetime <= 0 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestTargetHidesCredentials(t *testing.T) {
	c := Config{URL: "postgres://u:secret@db:5432/sp?sslmode=disable"}
	if got := c.target(); got != "db:5432/sp" {
		t.Fatalf("got %q", got)
	}
	c = Config{Host: "localhost", Port: 5432, Database: "sp", Password: "secret"}
	if got := c.target(); got != "localhost:5432/sp" {
		t.Fatalf("got %q", got)
	}
}
