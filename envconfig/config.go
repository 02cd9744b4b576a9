// config.go - Haupt-Konfigurationsfunktionen fuer modelopt
//
// Dieses Modul enthaelt:
// - ShadowMode: Aggressive Kompression fuer Nicht-Produktiv-Laeufe (SHADOW_MODE)
// - ModelKey: Geheimnis fuer verschluesselte Modelle (MODEL_KEY)
// - Stats: Tensor-Statistik nach dem Lauf (MODELOPT_STATS)
// - LogLevel: Gibt Log-Level zurueck (MODELOPT_DEBUG)
// - Var: Liest eine bereinigte Environment-Variable
//
// Weitere Konfigurationen sind ausgelagert:
// - config_utils.go: Utility-Funktionen und AsMap/Values
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ShadowMode gibt zurueck, ob der Shadow-Modus aktiv ist
// Konfigurierbar via SHADOW_MODE
// Nur der Wert "true" (gross/klein egal) aktiviert den Modus, alles andere nicht
func ShadowMode() bool {
	return strings.EqualFold(Var("SHADOW_MODE"), "true")
}

// ModelKey gibt das konfigurierte Schluessel-Geheimnis zurueck
// Konfigurierbar via MODEL_KEY
// Default: leer (kein Schluessel)
func ModelKey() string {
	return Var("MODEL_KEY")
}

// Stats aktiviert die Tensor-Statistik nach dem Optimieren (MODELOPT_STATS)
var Stats = Bool("MODELOPT_STATS")

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via MODELOPT_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("MODELOPT_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
