package notarization

import "time"

const (
	// DefaultTimeout bounds a whole Notarize call.
	DefaultTimeout = 10 * time.Second
	// DefaultRetryTimeout is the pause after every peer has been tried.
	DefaultRetryTimeout = 1 * time.Second
	// DefaultSuccessDelay is the pause after a peer accepted a request,
	// before asking another one.
	DefaultSuccessDelay = 1 * time.Second
)

// Config contains the timing parameters of a Plugin.
type Config struct {
	// Timeout is the maximum duration of a Notarize call. Zero disables it.
	Timeout time.Duration `mapstructure:"notarize-timeout"`

	// RetryTimeout is how long to wait before starting over once every
	// connected peer has been asked.
	RetryTimeout time.Duration `mapstructure:"retry-timeout"`

	// SuccessDelay is the minimum wait after a peer confirmed a request
	// before asking another peer.
	SuccessDelay time.Duration `mapstructure:"success-delay"`
}

// DefaultConfig returns a Config with the default timings.
func DefaultConfig() *Config {
	return &Config{
		Timeout:      DefaultTimeout,
		RetryTimeout: DefaultRetryTimeout,
		SuccessDelay: DefaultSuccessDelay,
	}
}

// TestConfig returns timings short enough for unit tests.
func TestConfig() *Config {
	return &Config{
		Timeout:      2 * time.Second,
		RetryTimeout: 50 * time.Millisecond,
		SuccessDelay: 20 * time.Millisecond,
	}
}
