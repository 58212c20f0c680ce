package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Profile describes one bank's CSV export format: column layout, delimiter,
// date layout, decimal convention and (optionally) a fixed text encoding.
type Profile struct {
	Name         string `mapstructure:"name"`
	Account      string `mapstructure:"account"`
	Delimiter    string `mapstructure:"delimiter"`
	HasHeader    bool   `mapstructure:"has_header"`
	DateFormat   string `mapstructure:"date_format"`
	DateCol      int    `mapstructure:"date_col"`
	AmountCol    int    `mapstructure:"amount_col"`
	DescCol      int    `mapstructure:"desc_col"`
	PayeeCol     int    `mapstructure:"payee_col"` // -1 = column absent
	DecimalComma bool   `mapstructure:"decimal_comma"`
	AmountStrip  string `mapstructure:"amount_strip"`
	Currency     string `mapstructure:"currency"`
	Encoding     string `mapstructure:"encoding"` // empty = auto-detect
}

// Validate checks the profile for internal consistency.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if strings.TrimSpace(p.Account) == "" {
		return fmt.Errorf("profile %s: account is required", p.Name)
	}
	if p.DateCol < 0 || p.AmountCol < 0 || p.DescCol < 0 {
		return fmt.Errorf("profile %s: date_col, amount_col and desc_col are required", p.Name)
	}
	if len([]rune(p.Delimiter)) > 1 {
		return fmt.Errorf("profile %s: delimiter must be a single character", p.Name)
	}
	return nil
}

// Load reads a single profile TOML file.
func Load(path string) (Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetDefault("delimiter", ",")
	v.SetDefault("date_format", "2006-01-02")
	v.SetDefault("payee_col", -1)

	if err := v.ReadInConfig(); err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}
	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Registry holds named profiles.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]Profile)}
}

// Register adds a profile, replacing any existing one with the same name.
func (r *Registry) Register(p Profile) {
	r.profiles[strings.ToLower(p.Name)] = p
}

// Get returns the profile by name.
func (r *Registry) Get(name string) (Profile, bool) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names returns registered profile names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LoadDir loads every *.toml profile in dir. A missing dir yields an empty
// registry rather than an error, so a fresh install works before `finch init`.
func LoadDir(dir string) (*Registry, error) {
	r := NewRegistry()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read profiles dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".toml") {
			continue
		}
		p, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		r.Register(p)
	}
	return r, nil
}
