package targets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"flyto/internal/geo"
)

type NamedTarget struct {
	Name  string       `json:"name"`
	Point geo.GeoPoint `json:"-"`
}

type targetEntry struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
	Alt  *float64 `json:"alt"`
}

/*
LoadTargetsFromFile reads a catalog of named waypoints. Two shapes are
accepted:

 1. Object with a "targets" list (preferred):
    { "targets": [ { "name": "field", "lat": -35.36, "lon": 149.16, "alt": 20 } ] }

 2. Bare array of the same entries.

Unnamed entries are named "<base>#<index>". Every entry must carry lat, lon
and a positive alt.
*/
func LoadTargetsFromFile(path string) ([]NamedTarget, error) {
	clean := filepath.Clean(path)
	data, err := os.ReadFile(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("targets file not found: %s", clean)
		}
		return nil, fmt.Errorf("read %s: %w", clean, err)
	}
	return ParseTargets(data, filepath.Base(clean))
}

func ParseTargets(data []byte, base string) ([]NamedTarget, error) {
	var entries []targetEntry

	var obj struct {
		Targets []targetEntry `json:"targets"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Targets != nil {
		entries = obj.Targets
	} else if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unrecognized targets format in %s", base)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no targets in %s", base)
	}

	out := make([]NamedTarget, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = fmt.Sprintf("%s#%d", base, i+1)
		}
		if e.Lat == nil || e.Lon == nil || e.Alt == nil {
			return nil, fmt.Errorf("target %q: lat, lon and alt are required", name)
		}
		p := geo.GeoPoint{Lat: *e.Lat, Lon: *e.Lon, Alt: *e.Alt}
		if err := p.ValidateTarget(); err != nil {
			return nil, fmt.Errorf("target %q: %w", name, err)
		}
		key := strings.ToLower(name)
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("target %q: duplicate of entry #%d", name, prev+1)
		}
		seen[key] = i
		out = append(out, NamedTarget{Name: name, Point: p})
	}
	return out, nil
}

// SelectTargetByName returns the target whose name matches (case-insensitive).
func SelectTargetByName(list []NamedTarget, name string) (NamedTarget, error) {
	want := strings.TrimSpace(name)
	for _, t := range list {
		if strings.EqualFold(t.Name, want) {
			return t, nil
		}
	}
	names := make([]string, 0, len(list))
	for _, t := range list {
		names = append(names, t.Name)
	}
	return NamedTarget{}, fmt.Errorf("unknown target %q (known: %s)", name, strings.Join(names, ", "))
}
