package oatmeal

// options holds the configuration for a Port, built up by a chain of
// Option functions exactly the way the teacher's Conn is configured.
type options struct {
	logger Logger

	maxMsgLen      int
	baud           int
	role           string
	hardwareID     string
	version        string
	instanceIndex  int
	defaultSigFigs int
}

func defaultOptions() *options {
	return &options{
		logger:         defaultLogger(),
		maxMsgLen:      DefaultMaxMsgLen,
		baud:           115200,
		role:           "generic",
		hardwareID:     "unknown",
		version:        LibraryVersion.String(),
		instanceIndex:  0,
		defaultSigFigs: DefaultSigFigs,
	}
}

// Option configures a Port at construction time.
type Option func(*options)

// WithLogger sets the Logger a Port uses for its internal Debug-level
// trace (frame accepted/dropped, resync events). Defaults to slog.Default().
func WithLogger(logger Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMaxMsgLen sets the upper bound on frame size; larger frames are
// dropped as FrameTooLong. Defaults to DefaultMaxMsgLen (127).
func WithMaxMsgLen(n int) Option {
	return func(o *options) { o.maxMsgLen = n }
}

// WithBaud sets the baud rate passed to the transport at init. Defaults
// to 115200. Purely informational: the Port stores it but never reads
// it, and serialio.Open takes its baud rate as a separate argument.
func WithBaud(baud int) Option {
	return func(o *options) { o.baud = baud }
}

// WithRole sets the device role string returned first in a discovery ack
// (e.g. "ValveCluster"). Defaults to "generic".
func WithRole(role string) Option {
	return func(o *options) { o.role = role }
}

// WithHardwareID sets the hardware id string returned in a discovery ack.
func WithHardwareID(id string) Option {
	return func(o *options) { o.hardwareID = id }
}

// WithVersion sets the free-form firmware/build version string returned
// in a discovery ack (distinct from LibraryVersion/ProtocolVersion, which
// are this package's own (major, minor) pairs).
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithInstanceIndex sets the instance index reported in a discovery ack.
// Defaults to 0.
func WithInstanceIndex(idx int) Option {
	return func(o *options) { o.instanceIndex = idx }
}

// WithDefaultSigFigs sets the significant-figures count used when a
// caller omits precision on a float append. Defaults to DefaultSigFigs.
func WithDefaultSigFigs(n int) Option {
	return func(o *options) { o.defaultSigFigs = n }
}

// WithProfile sources every knob at once from a previously loaded
// deviceconfig.Profile, letting a single TOML file configure a Port.
// Profile is accepted as an interface here (rather than importing the
// deviceconfig subpackage) to avoid a dependency cycle; deviceconfig's
// Profile type satisfies it structurally.
func WithProfile(p interface {
	Role() string
	HardwareID() string
	Version() string
	InstanceIndex() int
	Baud() int
	MaxMsgLen() int
	DefaultSigFigs() int
}) Option {
	return func(o *options) {
		o.role = p.Role()
		o.hardwareID = p.HardwareID()
		o.version = p.Version()
		o.instanceIndex = p.InstanceIndex()
		o.baud = p.Baud()
		o.maxMsgLen = p.MaxMsgLen()
		o.defaultSigFigs = p.DefaultSigFigs()
	}
}
