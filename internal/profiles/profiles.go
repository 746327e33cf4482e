// Package profiles loads the early-payment profile set from YAML.
package profiles

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
)

//go:embed default_profiles.yaml
var defaultProfilesYAML []byte

// DefaultSource names the built-in profile set in errors and logs.
const DefaultSource = "embedded default"

type profileFile struct {
	Profiles []profileEntry `yaml:"profiles"`
}

type profileEntry struct {
	Name            string   `yaml:"name"`
	ExpectedAmount  float64  `yaml:"expected_amount"`
	AmountTolerance float64  `yaml:"amount_tolerance"`
	NameKeywords    []string `yaml:"name_keywords"`
	LeadDays        int      `yaml:"lead_days"`
	ShiftDays       int      `yaml:"shift_days"`
}

func (e profileEntry) toModel() models.EarlyPaymentProfile {
	return models.EarlyPaymentProfile{
		Name:            e.Name,
		ExpectedAmount:  decimal.NewFromFloat(e.ExpectedAmount),
		AmountTolerance: decimal.NewFromFloat(e.AmountTolerance),
		NameKeywords:    e.NameKeywords,
		LeadDays:        e.LeadDays,
		ShiftDays:       e.ShiftDays,
	}
}

// Parse decodes and validates a profile document. source is used in error messages.
func Parse(data []byte, source string) ([]models.EarlyPaymentProfile, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles from %s: %w", source, err)
	}

	out := make([]models.EarlyPaymentProfile, 0, len(file.Profiles))
	seen := make(map[string]bool, len(file.Profiles))
	for i, entry := range file.Profiles {
		p := entry.toModel()
		if err := p.Validate(); err != nil {
			return nil, &apperrors.ProfileError{Source: source, Index: i, Err: err}
		}
		if seen[p.Name] {
			return nil, &apperrors.ProfileError{Source: source, Index: i, Err: fmt.Errorf("duplicate profile name %q", p.Name)}
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out, nil
}

// Default returns the built-in profile set.
func Default() []models.EarlyPaymentProfile {
	profiles, err := Parse(defaultProfilesYAML, DefaultSource)
	if err != nil {
		panic(fmt.Sprintf("embedded profiles are invalid: %v", err))
	}
	return profiles
}

// Loader resolves and reads a profiles file.
type Loader struct {
	logger logging.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Loader{logger: logger.WithField(logging.FieldComponent, "profiles")}
}

// Load reads filename, falling back to the embedded default when filename is empty or
// cannot be found. A file that exists but is invalid is an error.
func (l *Loader) Load(filename string) ([]models.EarlyPaymentProfile, error) {
	if filename == "" {
		l.logger.Debug("No profiles file configured, using embedded default")
		return Default(), nil
	}

	path, err := FindConfigFile(filename)
	if err != nil {
		l.logger.Warn("Profiles file not found, using embedded default", logging.F(logging.FieldPath, filename))
		return Default(), nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from local configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file %s: %w", path, err)
	}
	profiles, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	l.logger.Info("Loaded early-payment profiles",
		logging.F(logging.FieldPath, path),
		logging.F(logging.FieldCount, len(profiles)))
	return profiles, nil
}

// FindConfigFile looks for filename as given, then under ./config/, then under
// $HOME/.finagent/.
func FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(homeDir, ".finagent", filename))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}
