package arraysim

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	ms "github.com/mitchellh/mapstructure"

	"github.com/wiless/arraysim/antenna"
	"github.com/wiless/arraysim/nulling"
)

// Kind selects the model computed for a configuration.
type Kind string

const (
	KindAntenna               Kind = "antenna"
	KindControlledConnections Kind = "controlled_connections"
	KindSubArray              Kind = "subarray"
	KindAdaptiveFiltering     Kind = "adaptive_filtering"
)

var Kinds = []Kind{KindAntenna, KindControlledConnections, KindSubArray, KindAdaptiveFiltering}

// ParseKind accepts the kind names above.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown antenna type %q", ErrConfiguration, s)
}

// Adaptive reports whether the kind cancels interference.
func (k Kind) Adaptive() bool {
	return k != KindAntenna
}

// Config holds every recognized option; keys follow the form field names.
type Config struct {
	Kind Kind `mapstructure:"antenna_type" json:"antenna_type"`

	Elements   int     `mapstructure:"n_array" json:"n_array"`
	ScanDeg    float64 `mapstructure:"scan" json:"scan"`
	Spacing    float64 `mapstructure:"d_lambda" json:"d_lambda"`
	Resolution int     `mapstructure:"resolution" json:"resolution"`
	Seed       int64   `mapstructure:"random_state" json:"random_state"`

	AmpSigma      float64 `mapstructure:"a_sigma" json:"a_sigma"`
	PhaseSigmaDeg float64 `mapstructure:"ph_sigma" json:"ph_sigma"`

	InterferenceDeg       []float64 `mapstructure:"ph_interference" json:"ph_interference"`
	Taper                 float64   `mapstructure:"a" json:"a"`
	ResidualAmpSigma      float64   `mapstructure:"a_rand" json:"a_rand"`
	ResidualPhaseSigmaDeg float64   `mapstructure:"ph_rand" json:"ph_rand"`
	Iterations            int       `mapstructure:"iteration" json:"iteration"`
	Boresight             string    `mapstructure:"boresight_err" json:"boresight_err"`
	SubArrays             int       `mapstructure:"sub_array" json:"sub_array"`

	Samples      int       `mapstructure:"sample_size" json:"sample_size"`
	SNRDb        float64   `mapstructure:"SNR_db" json:"SNR_db"`
	ClutterRatio []float64 `mapstructure:"clatter_ratio" json:"clatter_ratio,omitempty"`
}

// DefaultConfig returns the reference configuration of a plain array.
func DefaultConfig() Config {
	return Config{
		Kind:                  KindAntenna,
		Elements:              29,
		Spacing:               antenna.DefaultSpacing,
		Resolution:            antenna.DefaultResolution,
		Seed:                  42,
		AmpSigma:              0.1,
		PhaseSigmaDeg:         5,
		Taper:                 1,
		ResidualAmpSigma:      0.01,
		ResidualPhaseSigmaDeg: 0.5,
		Iterations:            1,
		Boresight:             nulling.BoresightNone.String(),
		SubArrays:             1,
		Samples:               200,
		SNRDb:                 20,
	}
}

// DecodeConfig layers the settings in m over DefaultConfig. Values may be
// strings; interference angles may be given as a comma separated string.
func DecodeConfig(m map[string]interface{}) (Config, error) {
	cfg := DefaultConfig()
	dec, err := ms.NewDecoder(&ms.DecoderConfig{
		DecodeHook:       ms.ComposeDecodeHookFunc(angleListHook, kindHook),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(m); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	cfg.InterferenceDeg = dedupe(cfg.InterferenceDeg)
	return cfg, nil
}

// Settings flattens cfg into the key/value form accepted by DecodeConfig.
func (cfg Config) Settings() (map[string]interface{}, error) {
	m := make(map[string]interface{})
	if err := ms.Decode(cfg, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func angleListHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]float64(nil)) {
		return data, nil
	}
	s := strings.TrimSpace(reflect.ValueOf(data).String())
	if s == "" {
		return []float64{}, nil
	}
	parts := strings.Split(s, ",")
	result := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("angles must be comma separated numbers: %q", s)
		}
		result = append(result, v)
	}
	return result, nil
}

func kindHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(Kind("")) {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if s == "" {
		return KindAntenna, nil
	}
	return ParseKind(s)
}

func dedupe(values []float64) []float64 {
	if values == nil {
		return nil
	}
	seen := make(map[float64]bool, len(values))
	result := make([]float64, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}

// Validate rejects configurations before any numeric work.
func (cfg Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	within := func(v, lo, hi float64) bool { return finite(v) && v >= lo && v <= hi }

	_, kindErr := ParseKind(string(cfg.Kind))
	check(kindErr == nil, "unknown antenna type %q", cfg.Kind)
	check(cfg.Elements >= 2 && cfg.Elements <= 100, "n_array %d not in [2,100]", cfg.Elements)
	check(within(cfg.ScanDeg, -45, 45), "scan %v not in [-45,45]", cfg.ScanDeg)
	check(finite(cfg.Spacing) && cfg.Spacing > 0, "d_lambda %v must be positive", cfg.Spacing)
	check(cfg.Resolution >= 2 && cfg.Resolution <= 100000, "resolution %d not in [2,100000]", cfg.Resolution)
	check(cfg.Seed >= 0, "random_state %d must not be negative", cfg.Seed)
	check(within(cfg.AmpSigma, 0, 1), "a_sigma %v not in [0,1]", cfg.AmpSigma)
	check(within(cfg.PhaseSigmaDeg, 0, 30), "ph_sigma %v not in [0,30]", cfg.PhaseSigmaDeg)

	if cfg.Kind.Adaptive() {
		check(len(cfg.InterferenceDeg) > 0, "ph_interference must name at least one direction")
		for _, a := range cfg.InterferenceDeg {
			check(within(a, -90, 90), "interference angle %v not in [-90,90]", a)
		}
	}

	switch cfg.Kind {
	case KindControlledConnections, KindSubArray:
		check(within(cfg.Taper, 0, 1), "a %v not in [0,1]", cfg.Taper)
		check(within(cfg.ResidualAmpSigma, 0, 1), "a_rand %v not in [0,1]", cfg.ResidualAmpSigma)
		check(within(cfg.ResidualPhaseSigmaDeg, 0, 30), "ph_rand %v not in [0,30]", cfg.ResidualPhaseSigmaDeg)
		check(cfg.Iterations >= 1 && cfg.Iterations <= 500, "iteration %d not in [1,500]", cfg.Iterations)
		_, err := nulling.ParseBoresightClass(cfg.Boresight)
		check(err == nil, "unknown boresight_err %q", cfg.Boresight)
		if cfg.Kind == KindSubArray {
			check(cfg.SubArrays >= 1 && cfg.Elements%cfg.SubArrays == 0,
				"sub_array %d must divide n_array %d", cfg.SubArrays, cfg.Elements)
		}
	case KindAdaptiveFiltering:
		check(cfg.Samples >= 10 && cfg.Samples <= 1000, "sample_size %d not in [10,1000]", cfg.Samples)
		check(within(cfg.SNRDb, 0, 200), "SNR_db %v not in [0,200]", cfg.SNRDb)
		if cfg.ClutterRatio != nil {
			check(len(cfg.ClutterRatio) == len(cfg.InterferenceDeg),
				"clatter_ratio has %d entries for %d directions", len(cfg.ClutterRatio), len(cfg.InterferenceDeg))
			for _, r := range cfg.ClutterRatio {
				check(finite(r) && r >= 0, "clatter_ratio entry %v must be non-negative", r)
			}
		}
	default:
		check(within(cfg.Taper, 0, 1), "a %v not in [0,1]", cfg.Taper)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}
