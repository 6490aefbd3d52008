package tile

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/paulmach/orb"
)

var ErrInvalidRegion = errors.New("invalid region")

// Region is a closed lat/lon box precached for every zoom in [MinZoom, MaxZoom].
// Latitudes stay inside the Web-Mercator limits so the projection never hits
// the tangent singularity.
type Region struct {
	Name    string  `yaml:"name"`
	MinLat  float64 `yaml:"min_lat" validate:"gt=-85.05,lt=85.05,ltefield=MaxLat"`
	MaxLat  float64 `yaml:"max_lat" validate:"gt=-85.05,lt=85.05"`
	MinLon  float64 `yaml:"min_lon" validate:"gte=-180,lt=180,ltefield=MaxLon"`
	MaxLon  float64 `yaml:"max_lon" validate:"gte=-180,lt=180"`
	MinZoom int     `yaml:"min_zoom" validate:"gte=0,lte=22,ltefield=MaxZoom"`
	MaxZoom int     `yaml:"max_zoom" validate:"gte=0,lte=22"`
}

func (r Region) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.MinLon, r.MinLat},
		Max: orb.Point{r.MaxLon, r.MaxLat},
	}
}

// DefaultRegions is the Visayas coverage: one coarse regional box and five city boxes.
func DefaultRegions() []Region {
	return []Region{
		{Name: "Visayas", MinLat: 8.0, MaxLat: 13.0, MinLon: 121.0, MaxLon: 127.0, MinZoom: 6, MaxZoom: 13},
		{Name: "Cebu City", MinLat: 10.2, MaxLat: 10.4, MinLon: 123.8, MaxLon: 124.0, MinZoom: 14, MaxZoom: 17},
		{Name: "Bacolod", MinLat: 10.6, MaxLat: 10.8, MinLon: 122.9, MaxLon: 123.1, MinZoom: 14, MaxZoom: 17},
		{Name: "Iloilo", MinLat: 11.0, MaxLat: 11.2, MinLon: 122.5, MaxLon: 122.7, MinZoom: 14, MaxZoom: 17},
		{Name: "Dumaguete", MinLat: 9.7, MaxLat: 9.9, MinLon: 118.7, MaxLon: 118.9, MinZoom: 14, MaxZoom: 17},
		{Name: "Tacloban", MinLat: 11.2, MaxLat: 11.4, MinLon: 125.0, MaxLon: 125.2, MinZoom: 14, MaxZoom: 17},
	}
}

type regionsFile struct {
	Regions []Region `yaml:"regions"`
}

// LoadRegions reads a YAML region list. An empty path yields DefaultRegions.
func LoadRegions(path string) ([]Region, error) {
	if path == "" {
		return DefaultRegions(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions file: %w", err)
	}

	return ParseRegions(data)
}

func ParseRegions(data []byte) ([]Region, error) {
	var f regionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse regions: %w", err)
	}

	if err := Validate(f.Regions); err != nil {
		return nil, err
	}

	return f.Regions, nil
}

// Validate rejects regions violating the box and zoom invariants.
func Validate(regions []Region) error {
	validate := validator.New()

	var errs []error
	for i, r := range regions {
		if err := validate.Struct(r); err != nil {
			errs = append(errs, fmt.Errorf("%w: #%d %q: %v", ErrInvalidRegion, i, r.Name, err))
		}
	}

	return errors.Join(errs...)
}
