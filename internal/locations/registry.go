package locations

import (
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/qaforge/checkout-agent/internal/models"
)

const (
	defaultLocation = "us"
	defaultCurrency = "usd"
)

// Registry is the fixed set of supported relay locations with their display
// names and billing currencies. Loaded once at startup and never mutated.
type Registry struct {
	locations  map[string]models.Location
	defaultLoc string
	defaultCur string
}

type registryFile struct {
	Locations map[string]struct {
		Name     string `json:"name"`
		Currency string `json:"currency"`
	} `json:"locations"`
	DefaultLocation string `json:"default_location"`
	DefaultCurrency string `json:"default_currency"`
}

// Load reads the registry from a JSON file. A missing or unreadable file is
// not fatal: an empty registry with us/usd defaults is returned so the rest
// of the service keeps working with the default location.
func Load(path string) *Registry {
	log := zap.S().Named("locations")

	r := &Registry{
		locations:  map[string]models.Location{},
		defaultLoc: defaultLocation,
		defaultCur: defaultCurrency,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnw("locations file not readable, falling back to defaults", "path", path, "error", err)
		return r
	}

	var f registryFile
	if err := json.Unmarshal(data, &f); err != nil {
		log.Warnw("locations file is not valid json, falling back to defaults", "path", path, "error", err)
		return r
	}

	for code, info := range f.Locations {
		code = strings.ToLower(code)
		r.locations[code] = models.Location{
			Code:     code,
			Name:     info.Name,
			Currency: strings.ToLower(info.Currency),
		}
	}
	if f.DefaultLocation != "" {
		r.defaultLoc = strings.ToLower(f.DefaultLocation)
	}
	if f.DefaultCurrency != "" {
		r.defaultCur = strings.ToLower(f.DefaultCurrency)
	}

	log.Infow("location registry loaded", "locations", len(r.locations), "default", r.defaultLoc)
	return r
}

// NewRegistry builds a registry from an explicit location set. Used by tests
// and by callers that do not load from a file.
func NewRegistry(locs ...models.Location) *Registry {
	r := &Registry{
		locations:  make(map[string]models.Location, len(locs)),
		defaultLoc: defaultLocation,
		defaultCur: defaultCurrency,
	}
	for _, l := range locs {
		l.Code = strings.ToLower(l.Code)
		l.Currency = strings.ToLower(l.Currency)
		r.locations[l.Code] = l
	}
	return r
}

// Validate reports whether the code names a configured location.
func (r *Registry) Validate(code string) bool {
	_, ok := r.locations[strings.ToLower(code)]
	return ok
}

// CurrencyFor returns the billing currency for a location, or the default
// currency when the location is not configured.
func (r *Registry) CurrencyFor(code string) string {
	if l, ok := r.locations[strings.ToLower(code)]; ok && l.Currency != "" {
		return l.Currency
	}
	return r.defaultCur
}

// NameFor returns the display name for a location, or the uppercased code
// when the location is not configured.
func (r *Registry) NameFor(code string) string {
	if l, ok := r.locations[strings.ToLower(code)]; ok && l.Name != "" {
		return l.Name
	}
	return strings.ToUpper(code)
}

// ByCurrency returns the codes of all locations billed in the given currency.
func (r *Registry) ByCurrency(currency string) []string {
	currency = strings.ToLower(currency)
	var codes []string
	for code, l := range r.locations {
		if l.Currency == currency {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// All returns every configured location sorted by code.
func (r *Registry) All() []models.Location {
	out := make([]models.Location, 0, len(r.locations))
	for _, l := range r.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Default returns the default location code and currency.
func (r *Registry) Default() (string, string) {
	return r.defaultLoc, r.defaultCur
}
