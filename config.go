package horde

import (
	"go.uber.org/zap"
)

const (
	DefaultSegmentBits  uint8  = 3
	DefaultChunkBits    uint8  = 10
	DefaultLoadNum      uint64 = 7
	DefaultLoadDen      uint64 = 8
	DefaultMaxProbe            = 128
	DefaultMaxBytes     uint64 = 1 << 36
	maxSegmentBits      uint8  = 16
	minChunkBits        uint8  = 3
	maxChunkBits        uint8  = 24
	minMaxProbe                = 8
)

// Config is shared by both collections; fields a collection has no use for are ignored.
type Config struct {
	// Capacity to allocate up front.
	Capacity int
	// SegmentBits is log2 of the vector's first segment length; every later segment doubles.
	SegmentBits uint8
	// ChunkBits is log2 of the table's chunk length; a generation is made of equal chunks.
	ChunkBits uint8
	// MaxLen caps the number of elements, 0 means unbounded.
	MaxLen uint64
	// LoadNum/LoadDen is the occupancy ratio that triggers a table resize.
	LoadNum, LoadDen uint64
	// MaxProbe is the longest probe sequence an insert accepts before growing the table.
	MaxProbe int
	// Domain reclaims superseded storage; nil means DefaultDomain.
	Domain *Domain
	Logger *zap.Logger
	// MaxBytes caps the element storage a single collection allocates. Growing past it fails with a *CapacityError instead of exhausting memory.
	MaxBytes uint64
	// GuardCheck makes every LockedWrite operation verify that it runs on the goroutine that acquired the guard, at the cost of a stack walk per call. It's on by default; Unlock checks the goroutine even when it's off.
	GuardCheck bool
}

// Option configures a Config.
type Option func(*Config)

// WithCapacity preallocates room for n elements.
func WithCapacity(n int) Option {
	return func(c *Config) {
		c.Capacity = n
	}
}

// WithSegmentBits sets the vector's first segment length to 1<<b.
func WithSegmentBits(b uint8) Option {
	return func(c *Config) {
		c.SegmentBits = b
	}
}

// WithChunkBits sets the table's chunk length to 1<<b.
func WithChunkBits(b uint8) Option {
	return func(c *Config) {
		c.ChunkBits = b
	}
}

// WithMaxLen makes inserts past n elements fail with a *CapacityError.
func WithMaxLen(n uint64) Option {
	return func(c *Config) {
		c.MaxLen = n
	}
}

// WithLoadFactor sets the resize threshold to num/den of the capacity.
func WithLoadFactor(num, den uint64) Option {
	return func(c *Config) {
		c.LoadNum, c.LoadDen = num, den
	}
}

// WithMaxProbe sets the probe bound.
func WithMaxProbe(n int) Option {
	return func(c *Config) {
		c.MaxProbe = n
	}
}

// WithDomain makes the collection retire storage to d instead of DefaultDomain. Pins passed to the collection must come from d.
func WithDomain(d *Domain) Option {
	return func(c *Config) {
		c.Domain = d
	}
}

// WithLogger sets the logger, zap.NewNop by default.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMaxBytes sets Config.MaxBytes.
func WithMaxBytes(n uint64) Option {
	return func(c *Config) {
		c.MaxBytes = n
	}
}

// WithGuardCheck turns the per operation goroutine check on LockedWrite guards on or off. WithGuardCheck(false) is meant for hot paths that are known to stay on one goroutine.
func WithGuardCheck(on bool) Option {
	return func(c *Config) {
		c.GuardCheck = on
	}
}

// NewConfig applies opts over the defaults and validates the result.
func NewConfig(opts ...Option) Config {
	c := Config{SegmentBits: DefaultSegmentBits, ChunkBits: DefaultChunkBits, LoadNum: DefaultLoadNum, LoadDen: DefaultLoadDen, MaxProbe: DefaultMaxProbe, MaxBytes: DefaultMaxBytes, GuardCheck: true}
	for _, opt := range opts {
		opt(&c)
	}
	c.Validate()
	return c
}

// Validate clamps out of range fields to usable values.
func (c *Config) Validate() {
	c.Capacity = max(c.Capacity, 0)
	c.SegmentBits = min(c.SegmentBits, maxSegmentBits)
	c.ChunkBits = min(max(c.ChunkBits, minChunkBits), maxChunkBits)
	if c.LoadDen == 0 || c.LoadNum == 0 || c.LoadNum >= c.LoadDen {
		c.LoadNum, c.LoadDen = DefaultLoadNum, DefaultLoadDen
	}
	c.MaxProbe = max(c.MaxProbe, minMaxProbe)
	if c.MaxBytes == 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// DomainOrDefault returns the configured Domain or DefaultDomain.
func (c *Config) DomainOrDefault() *Domain {
	if c.Domain == nil {
		return DefaultDomain()
	}
	return c.Domain
}
