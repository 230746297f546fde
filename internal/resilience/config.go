package resilience

import "time"

// Breaker defaults.
const (
	DefaultName      = "default"
	DefaultThreshold = 5
	DefaultCooldown  = 30 * time.Second
	DefaultProbes    = 3

	// The OCR call runs up to once per tier every cycle, so it trips and
	// recovers faster.
	OCRThreshold = 3
	OCRCooldown  = 10 * time.Second
	OCRProbes    = 2
)

// Config holds circuit breaker settings.
type Config struct {
	Name string
	// Threshold is the number of consecutive failures that opens the circuit.
	Threshold int
	// Cooldown is how long the circuit stays open before admitting a probe.
	Cooldown time.Duration
	// Probes is the number of successful half-open calls needed to close.
	Probes int
	// IsFailure decides which errors count against the circuit; nil uses
	// Transient so a rejected frame does not trip it.
	IsFailure func(error) bool
	// Now is the clock; nil uses time.Now.
	Now func() time.Time
}

// DefaultConfig returns general-purpose settings.
func DefaultConfig() Config {
	return Config{
		Name:      DefaultName,
		Threshold: DefaultThreshold,
		Cooldown:  DefaultCooldown,
		Probes:    DefaultProbes,
	}
}

// OCRConfig returns settings for the remote OCR engine.
func OCRConfig() Config {
	return Config{
		Name:      "ocr",
		Threshold: OCRThreshold,
		Cooldown:  OCRCooldown,
		Probes:    OCRProbes,
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.Probes <= 0 {
		c.Probes = DefaultProbes
	}
	if c.IsFailure == nil {
		c.IsFailure = Transient
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
