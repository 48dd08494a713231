package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*RedisOptions)(nil)

// RedisOptions contains configuration for the Redis-backed vehicle store.
type RedisOptions struct {
	// Addr is the Redis server address. Empty selects the in-memory store,
	// which keeps no state across restarts and is meant for development.
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`

	// DialTimeout bounds the initial connection attempt.
	DialTimeout time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`
}

// NewRedisOptions creates a RedisOptions object with default parameters.
func NewRedisOptions() *RedisOptions {
	return &RedisOptions{
		Addr:        "localhost:6379",
		DB:          0,
		DialTimeout: 5 * time.Second,
	}
}

// Enabled reports whether a Redis server has been configured.
func (o *RedisOptions) Enabled() bool {
	return o != nil && o.Addr != ""
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *RedisOptions) Validate() []error {
	if o == nil || !o.Enabled() {
		return nil
	}

	errors := []error{}

	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}

	return errors
}

// AddFlags adds flags for RedisOptions to the specified FlagSet.
func (o *RedisOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, "redis.addr", o.Addr, "Redis server address. Empty runs the in-memory store (development only).")
	fs.StringVar(&o.Password, "redis.password", o.Password, "Redis password.")
	fs.IntVar(&o.DB, "redis.db", o.DB, "Redis database number.")
	fs.DurationVar(&o.DialTimeout, "redis.dial-timeout", o.DialTimeout, "Timeout for establishing the Redis connection.")
}
