package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"boligscore/models"
	"boligscore/services"
)

// ProfileSpec is a weight profile as written in the scoring file.
// Weight keys are component names, e.g. "energy" or "lot_size".
type ProfileSpec struct {
	Name    string             `koanf:"name"`
	Weights map[string]float64 `koanf:"weights"`
}

// Scoring holds the optional scoring overrides.
//
// Example:
//
//	max_transit_distance_km: 30
//	transit_stops:
//	  - {name: Aarhus H, lat: 56.1496, lon: 10.2045}
//	profiles:
//	  - name: Commuter
//	    weights: {transit_distance: 40, price_efficiency: 30, house_size: 30}
type Scoring struct {
	MaxTransitDistanceKm float64                `koanf:"max_transit_distance_km"`
	TransitStops         []services.TransitStop `koanf:"transit_stops"`
	Profiles             []ProfileSpec          `koanf:"profiles"`
}

// LoadScoring reads the YAML scoring file at path. An empty path yields an
// empty Scoring, so the engine falls back to its built-in defaults.
func LoadScoring(path string) (*Scoring, error) {
	s := &Scoring{}
	if path == "" {
		return s, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: load scoring file %q: %w", path, err)
	}
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("config: parse scoring file %q: %w", path, err)
	}

	for i, p := range s.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("config: profile %d has no name", i+1)
		}
	}
	return s, nil
}

// EngineProfiles converts the file's profiles for services.EngineOptions.
func (s *Scoring) EngineProfiles() []services.Profile {
	out := make([]services.Profile, 0, len(s.Profiles))
	for _, p := range s.Profiles {
		out = append(out, services.Profile{Name: p.Name, Weights: models.WeightsFromMap(p.Weights)})
	}
	return out
}

// MaxDistanceKm picks the environment override when set, else the file value.
func (s *Scoring) MaxDistanceKm(envOverride float64) float64 {
	if envOverride > 0 {
		return envOverride
	}
	return s.MaxTransitDistanceKm
}
