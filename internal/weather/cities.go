package weather

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

var DefaultCities = []string{
	"New York",
	"London",
	"Paris",
	"Berlin",
	"Tokyo",
	"Sydney",
	"Toronto",
	"Singapore",
}

type citiesFile struct {
	Cities []string `toml:"cities"`
}

// LoadCities reads a TOML file with a top-level cities array. An empty path
// yields DefaultCities.
func LoadCities(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return slices.Clone(DefaultCities), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cities file: %w", err)
	}

	var file citiesFile
	if err = toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse cities file: %w", err)
	}

	cities := make([]string, 0, len(file.Cities))
	for _, city := range file.Cities {
		city = strings.TrimSpace(city)
		if city == "" || HasCity(cities, city) {
			continue
		}
		cities = append(cities, city)
	}

	if len(cities) == 0 {
		return nil, errors.New("cities file has no cities")
	}

	return cities, nil
}

// HasCity reports whether city is in cities, ignoring case.
func HasCity(cities []string, city string) bool {
	return slices.ContainsFunc(cities, func(c string) bool {
		return strings.EqualFold(c, strings.TrimSpace(city))
	})
}

// DefaultCity returns the entry of cities matching preferred. When there is
// none it falls back to the first city, so the default is always servable.
func DefaultCity(cities []string, preferred string) string {
	preferred = strings.TrimSpace(preferred)

	if i := slices.IndexFunc(cities, func(c string) bool {
		return strings.EqualFold(c, preferred)
	}); i >= 0 {
		return cities[i]
	}

	if len(cities) > 0 {
		return cities[0]
	}

	return preferred
}
