package config

import (
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestDSNReportsMatchedRows(t *testing.T) {
	cases := []struct {
		name string
		env  Env
	}{
		{"from parts", Env{DBUser: "app", DBPass: "pw", DBHost: "db:3306", DBName: "rentcore"}},
		{"explicit dsn", Env{DBDSN: "app:pw@tcp(db:3306)/rentcore?parseTime=true"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dsn := tc.env.DSN()
			cfg, err := mysql.ParseDSN(dsn)
			if err != nil {
				t.Fatalf("parse %q: %v", dsn, err)
			}
			if !cfg.ClientFoundRows {
				t.Fatalf("clientFoundRows must be on, got %q", dsn)
			}
			if !cfg.ParseTime || cfg.DBName != "rentcore" || cfg.Addr != "db:3306" {
				t.Fatalf("unexpected config from %q", dsn)
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	got := Env{CORSAllowedOrigins: " https://a.example , ,https://b.example"}.AllowedOrigins()
	if strings.Join(got, "|") != "https://a.example|https://b.example" {
		t.Fatalf("unexpected origins %v", got)
	}
}
