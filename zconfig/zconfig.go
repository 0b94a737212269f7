// Package zconfig loads the JSON configuration shared by every cmd/
// binary in this module, using jsoniter for parity with this module's
// other JSON-touching code paths.
package zconfig

import (
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config is the top-level document a cmd/ binary reads at startup.
type Config struct {
	// Listen is the "tcp://*:port" URI a server-side endpoint binds.
	Listen string `json:"listen"`
	// Connect is the "tcp://host:port" URI a client-side endpoint dials.
	Connect string `json:"connect"`

	Workers int `json:"workers"`

	// Announce, when set, names a handshake responder a starting
	// service sends its bound endpoint to, blocking until the
	// responder acknowledges.
	Announce string `json:"announce"`

	PollInterval    Duration `json:"poll_interval"`
	RecvTimeout     Duration `json:"recv_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
	// StaleAfter, when non-zero, bounds how long a request may sit in
	// the waitlist before a housekeeping sweep releases it empty.
	StaleAfter Duration `json:"stale_after"`

	Compression CompressionConfig `json:"compression"`
	Metrics     MetricsConfig     `json:"metrics"`
}

type CompressionConfig struct {
	Enabled bool `json:"enabled"`
	MinSize int  `json:"min_size"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
}

// Duration round-trips through JSON as a Go duration string ("250ms",
// "5s") instead of a raw integer, matching how the rest of this
// module's ambient config renders time values for humans.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrap(err, "zconfig: invalid duration")
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the configuration a cmd/ binary starts from absent a
// config file.
func Default() Config {
	return Config{
		Workers:         4,
		PollInterval:    Duration(10 * time.Millisecond),
		RecvTimeout:     Duration(5 * time.Second),
		ShutdownTimeout: Duration(5 * time.Second),
	}
}

// Load reads and parses the JSON document at path, starting from
// Default() so a partial file only overrides what it names.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "zconfig: read %s", path)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "zconfig: parse %s", path)
	}
	return cfg, nil
}
