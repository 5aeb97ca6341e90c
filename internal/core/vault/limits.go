package vault

// Default capacities, shared by the core and the transport.
const (
	DefaultKeySize   = 20
	DefaultValueSize = 20
	DefaultMaxKeys   = 20
)

// Limits declares the fixed capacities of a Vault.
type Limits struct {
	// KeySize is the key capacity in bytes.
	KeySize int
	// ValueSize is the value capacity in bytes.
	ValueSize int
	// MaxKeys is the maximum number of distinct keys per user.
	MaxKeys int
}

// DefaultLimits returns the 20/20/20 capacities.
func DefaultLimits() Limits {
	return Limits{
		KeySize:   DefaultKeySize,
		ValueSize: DefaultValueSize,
		MaxKeys:   DefaultMaxKeys,
	}
}

// valid reports whether every capacity is positive.
func (l Limits) valid() bool {
	return l.KeySize > 0 && l.ValueSize > 0 && l.MaxKeys > 0
}

// Pair is a (key, value) payload bounded by the vault's Limits.
type Pair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// String renders the pair in the transport's "<key> <value>" form.
func (p Pair) String() string {
	return p.Key + " " + p.Value
}

// NewPair builds a pair truncated to the given limits. Truncation is silent.
func (l Limits) NewPair(key, value string) Pair {
	return Pair{
		Key:   bound(key, l.KeySize),
		Value: bound(value, l.ValueSize),
	}
}

// bound truncates s to at most n bytes. Comparisons between bounded
// strings therefore only ever look at the declared capacity.
func bound(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
