package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

// yamlArenaFile is the top-level YAML structure for arena files.
type yamlArenaFile struct {
	Arena yamlArena `yaml:"arena"`
}

// yamlArena is the YAML representation of an arena.
type yamlArena struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name"`
	Domain   string      `yaml:"domain"`
	Enabled  *bool       `yaml:"enabled"`
	BotCount int         `yaml:"bot_count"`
	Profile  string      `yaml:"profile"`
	Min      []float64   `yaml:"min"`
	Max      []float64   `yaml:"max"`
	Floor    *int        `yaml:"floor"`
	Blocks   []yamlBlock `yaml:"blocks"`
}

// yamlBlock is a solid box given by two corners.
type yamlBlock struct {
	Min []int `yaml:"min"`
	Max []int `yaml:"max"`
}

// LoadArenaFromFile reads and validates a single arena YAML file.
//
// Precondition: path must point to a valid YAML arena file.
// Postcondition: Returns a validated Arena or a non-nil error.
func LoadArenaFromFile(path string) (*Arena, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading arena file %s: %w", path, err)
	}
	return LoadArenaFromBytes(data)
}

// LoadArenaFromBytes parses and validates an arena from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the arena schema.
// Postcondition: Returns a validated Arena or a non-nil error.
func LoadArenaFromBytes(data []byte) (*Arena, error) {
	var file yamlArenaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing arena YAML: %w", err)
	}

	arena, err := convertYAMLArena(file.Arena)
	if err != nil {
		return nil, err
	}
	if err := arena.Validate(); err != nil {
		return nil, fmt.Errorf("validating arena: %w", err)
	}
	return arena, nil
}

// LoadArenasFromDir loads all YAML files in a directory as arenas.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated arenas or the first error encountered.
func LoadArenasFromDir(dir string) ([]*Arena, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading arena directory %s: %w", dir, err)
	}

	var arenas []*Arena
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		arena, err := LoadArenaFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading arena from %s: %w", name, err)
		}
		arenas = append(arenas, arena)
	}

	if len(arenas) == 0 {
		return nil, fmt.Errorf("no arena files found in %s", dir)
	}
	return arenas, nil
}

// convertYAMLArena converts the parsed YAML structures into domain types.
func convertYAMLArena(ya yamlArena) (*Arena, error) {
	lo, err := vec(ya.Min)
	if err != nil {
		return nil, fmt.Errorf("arena %q: min: %w", ya.ID, err)
	}
	hi, err := vec(ya.Max)
	if err != nil {
		return nil, fmt.Errorf("arena %q: max: %w", ya.ID, err)
	}
	arena := &Arena{
		ID:       ya.ID,
		Name:     ya.Name,
		Bounds:   geom.NewBounds(ya.Domain, lo, hi),
		Enabled:  ya.Enabled == nil || *ya.Enabled,
		BotCount: ya.BotCount,
		Profile:  ya.Profile,
		Floor:    ya.Floor,
	}
	for i, yb := range ya.Blocks {
		a, err := cell(yb.Min)
		if err != nil {
			return nil, fmt.Errorf("arena %q: block %d min: %w", ya.ID, i, err)
		}
		b, err := cell(yb.Max)
		if err != nil {
			return nil, fmt.Errorf("arena %q: block %d max: %w", ya.ID, i, err)
		}
		arena.Blocks = append(arena.Blocks, Box{
			Min: geom.C(min(a.X, b.X), min(a.Y, b.Y), min(a.Z, b.Z)),
			Max: geom.C(max(a.X, b.X), max(a.Y, b.Y), max(a.Z, b.Z)),
		})
	}
	return arena, nil
}

func vec(xs []float64) (geom.Vec3, error) {
	if len(xs) != 3 {
		return geom.Vec3{}, fmt.Errorf("want [x, y, z], got %d values", len(xs))
	}
	return geom.V(xs[0], xs[1], xs[2]), nil
}

func cell(xs []int) (geom.Cell, error) {
	if len(xs) != 3 {
		return geom.Cell{}, fmt.Errorf("want [x, y, z], got %d values", len(xs))
	}
	return geom.C(xs[0], xs[1], xs[2]), nil
}
