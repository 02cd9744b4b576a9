package envconfig

import (
	"log/slog"
	"testing"
)

func TestShadowMode(t *testing.T) {
	cases := map[string]bool{
		"":         false,
		"true":     true,
		"TRUE":     true,
		"'true'":   true,
		" true ":   true,
		"1":        false,
		"yes":      false,
		"false":    false,
		"anything": false,
	}

	for v, expect := range cases {
		t.Run(v, func(t *testing.T) {
			t.Setenv("SHADOW_MODE", v)
			if got := ShadowMode(); got != expect {
				t.Errorf("ShadowMode() mit %q = %v, erwartet %v", v, got, expect)
			}
		})
	}
}

func TestModelKey(t *testing.T) {
	t.Setenv("MODEL_KEY", "\"secret\"")
	if got := ModelKey(); got != "secret" {
		t.Errorf("ModelKey() = %q, erwartet %q", got, "secret")
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"f":     slog.LevelInfo,
		"0":     slog.LevelInfo,
		"1":     slog.LevelDebug,
		"true":  slog.LevelDebug,
		"t":     slog.LevelDebug,
		"2":     slog.Level(-8),
		"3":     slog.Level(-12),
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("MODELOPT_DEBUG", k)
			if i := LogLevel(); i != v {
				t.Errorf("%s: expected %d, got %d", k, v, i)
			}
		})
	}
}

func TestStats(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"false": false,
		"1":     true,
		"true":  true,
		"bogus": true,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("MODELOPT_STATS", k)
			if b := Stats(); b != v {
				t.Errorf("%s: expected %t, got %t", k, v, b)
			}
		})
	}
}

func TestAsMapHidesKey(t *testing.T) {
	t.Setenv("MODEL_KEY", "do-not-print")
	for _, v := range Values() {
		if v == "do-not-print" {
			t.Fatal("MODEL_KEY darf nicht im Klartext erscheinen")
		}
	}
	if got := AsMap()["MODEL_KEY"].Value; got != "(set)" {
		t.Errorf("MODEL_KEY = %v, erwartet (set)", got)
	}
}
