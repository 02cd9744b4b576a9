// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - BoolWithDefault/Bool: Boolean-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"strconv"
)

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
// MODEL_KEY wird nie im Klartext ausgegeben
func AsMap() map[string]EnvVar {
	key := "(unset)"
	if ModelKey() != "" {
		key = "(set)"
	}

	return map[string]EnvVar{
		"MODELOPT_DEBUG": {"MODELOPT_DEBUG", LogLevel(), "Show additional debug information (e.g. MODELOPT_DEBUG=1)"},
		"SHADOW_MODE":    {"SHADOW_MODE", ShadowMode(), "Use aggressive compression when --shadow is not given (\"true\" to enable)"},
		"MODEL_KEY":      {"MODEL_KEY", key, "Secret used to decrypt .enc models"},
		"MODELOPT_STATS": {"MODELOPT_STATS", Stats(), "Print per-tensor statistics after optimizing"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
