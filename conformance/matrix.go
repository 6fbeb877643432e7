package conformance

import "github.com/chazu/yield/vm"

// Config sizes the matrix.
type Config struct {
	// MaxPre is the largest number of leading required parameters.
	MaxPre int
	// Many is the argument count of ArgsMany.
	Many int
	// Keywords adds keyword and keyword-rest variants of every shape.
	Keywords bool
	// Types and Entries restrict the matrix; empty means all.
	Types   []vm.Type
	Entries []vm.Entry
}

// DefaultConfig covers up to three leading parameters.
func DefaultConfig() Config {
	return Config{MaxPre: 3, Many: 5, Keywords: true}
}

func (cfg Config) many() int {
	if cfg.Many < 4 {
		return 4
	}
	return cfg.Many
}

// Shapes enumerates the parameter shapes of the matrix: every combination
// of leading, optional and trailing parameters with each rest kind, plus
// keyword variants. A trailing-comma rest only appears after plain leading
// parameters, the only place it can be written.
func Shapes(cfg Config) []*vm.Signature {
	type kw struct {
		n    int
		rest bool
	}
	kws := []kw{{}}
	if cfg.Keywords {
		kws = append(kws, kw{n: 1}, kw{rest: true})
	}

	var out []*vm.Signature
	for pre := 0; pre <= cfg.MaxPre; pre++ {
		for opt := 0; opt <= 1; opt++ {
			for post := 0; post <= 1; post++ {
				for _, rest := range []vm.Rest{vm.RestNone, vm.RestNorm, vm.RestAnon, vm.RestStar} {
					for _, k := range kws {
						if rest == vm.RestAnon && (pre == 0 || opt > 0 || post > 0 || k.n > 0 || k.rest) {
							continue
						}
						out = append(out, vm.SignatureFrom(pre, opt, post, rest, k.n, 0, k.rest))
					}
				}
			}
		}
	}
	return out
}

// Matrix enumerates every valid case for cfg.
func Matrix(cfg Config) []Case {
	types := cfg.Types
	if len(types) == 0 {
		types = allTypes
	}
	entries := cfg.Entries
	if len(entries) == 0 {
		entries = allEntries
	}
	many := cfg.many()

	var out []Case
	for _, typ := range types {
		for _, sig := range Shapes(cfg) {
			for _, entry := range entries {
				for _, args := range AllArgShapes() {
					c := Case{Type: typ, Sig: sig, Entry: entry, Args: args}
					if c.Valid(many) {
						out = append(out, c)
					}
				}
			}
		}
	}
	return out
}
