package vm

import (
	"fmt"
	"strings"
	"sync"
)

// Rest describes the rest parameter of a signature.
type Rest uint8

const (
	RestNone Rest = iota // no rest parameter
	RestNorm             // named rest: |a, *r|
	RestAnon             // trailing comma destructure: |a, |
	RestStar             // bare splat: |a, *|
)

var restNames = [...]string{"none", "norm", "anon", "star"}

func (r Rest) String() string {
	if int(r) < len(restNames) {
		return restNames[r]
	}
	return fmt.Sprintf("Rest(%d)", uint8(r))
}

// ParseRest parses the names produced by Rest.String.
func ParseRest(s string) (Rest, error) {
	for i, n := range restNames {
		if strings.EqualFold(s, n) {
			return Rest(i), nil
		}
	}
	return RestNone, fmt.Errorf("unknown rest kind %q", s)
}

// Signature is the immutable parameter shape of a block or method. Use
// SignatureFrom to obtain one; identical shapes share one instance, so
// signatures may be compared with ==.
type Signature struct {
	pre, opt, post int
	rest           Rest
	kwargs         int
	requiredKwargs int
	restKwargs     bool

	arity *Arity
}

// Encoded field widths. See Encode.
const (
	sigCountBits = 12
	sigKwBits    = 10
	sigRestBits  = 4

	sigMaxCount = 1<<sigCountBits - 1
	sigMaxKw    = 1<<sigKwBits - 1
)

var signatures sync.Map // uint64 -> *Signature

// Common shapes, populated eagerly.
var (
	NoArguments       = SignatureFrom(0, 0, 0, RestNone, 0, 0, false)
	OneArgument       = SignatureFrom(1, 0, 0, RestNone, 0, 0, false)
	TwoArguments      = SignatureFrom(2, 0, 0, RestNone, 0, 0, false)
	ThreeArguments    = SignatureFrom(3, 0, 0, RestNone, 0, 0, false)
	OptionalArguments = SignatureFrom(0, 0, 0, RestNorm, 0, 0, false)
	OneRequired       = SignatureFrom(1, 0, 0, RestNorm, 0, 0, false)
	TwoRequired       = SignatureFrom(2, 0, 0, RestNorm, 0, 0, false)
	ThreeRequired     = SignatureFrom(3, 0, 0, RestNorm, 0, 0, false)
)

// SignatureFrom returns the interned signature for the given shape. It is
// safe for concurrent use; racing callers always observe the same pointer.
func SignatureFrom(pre, opt, post int, rest Rest, kwargs, requiredKwargs int, restKwargs bool) *Signature {
	if pre < 0 || opt < 0 || post < 0 || pre > sigMaxCount || opt > sigMaxCount || post > sigMaxCount {
		panic(fmt.Sprintf("vm: signature counts out of range (pre=%d opt=%d post=%d)", pre, opt, post))
	}
	if kwargs < 0 || requiredKwargs < 0 || requiredKwargs > kwargs || kwargs > sigMaxKw {
		panic(fmt.Sprintf("vm: signature keyword counts out of range (kwargs=%d required=%d)", kwargs, requiredKwargs))
	}
	if rest > RestStar {
		panic(fmt.Sprintf("vm: invalid rest kind %d", rest))
	}
	s := &Signature{
		pre:            pre,
		opt:            opt,
		post:           post,
		rest:           rest,
		kwargs:         kwargs,
		requiredKwargs: requiredKwargs,
		restKwargs:     restKwargs,
	}
	key := s.Encode()
	if v, ok := signatures.Load(key); ok {
		return v.(*Signature)
	}
	s.arity = ArityOf(s.arityValue())
	v, _ := signatures.LoadOrStore(key, s)
	return v.(*Signature)
}

// SignatureFromArity returns a plain positional signature matching a bare
// arity value: n >= 0 is n required, n < 0 is -n-1 required plus a rest.
func SignatureFromArity(n int) *Signature {
	if n >= 0 {
		return SignatureFrom(n, 0, 0, RestNone, 0, 0, false)
	}
	return SignatureFrom(-n-1, 0, 0, RestNorm, 0, 0, false)
}

// DecodeSignature is the inverse of Encode.
func DecodeSignature(enc uint64) (*Signature, error) {
	restKwargs := enc&1 == 1
	enc >>= 1
	requiredKwargs := int(enc & sigMaxKw)
	enc >>= sigKwBits
	kwargs := int(enc & sigMaxKw)
	enc >>= sigKwBits
	rest := Rest(enc & (1<<sigRestBits - 1))
	enc >>= sigRestBits
	post := int(enc & sigMaxCount)
	enc >>= sigCountBits
	opt := int(enc & sigMaxCount)
	enc >>= sigCountBits
	pre := int(enc & sigMaxCount)
	enc >>= sigCountBits
	if enc != 0 || rest > RestStar || requiredKwargs > kwargs {
		return nil, fmt.Errorf("vm: invalid encoded signature")
	}
	return SignatureFrom(pre, opt, post, rest, kwargs, requiredKwargs, restKwargs), nil
}

// Encode packs the shape into a single integer. Equal shapes encode equally.
func (s *Signature) Encode() uint64 {
	enc := uint64(s.pre)
	enc = enc<<sigCountBits | uint64(s.opt)
	enc = enc<<sigCountBits | uint64(s.post)
	enc = enc<<sigRestBits | uint64(s.rest)
	enc = enc<<sigKwBits | uint64(s.kwargs)
	enc = enc<<sigKwBits | uint64(s.requiredKwargs)
	enc <<= 1
	if s.restKwargs {
		enc |= 1
	}
	return enc
}

func (s *Signature) arityValue() int {
	oneForKeywords := 0
	if s.requiredKwargs > 0 {
		oneForKeywords = 1
	}
	fixed := s.pre + s.post + oneForKeywords
	optionalKeywords := s.kwargs-s.requiredKwargs > 0 || s.restKwargs
	if s.opt > 0 || s.HasRest() || (optionalKeywords && oneForKeywords == 0) {
		return -(fixed + 1)
	}
	return fixed
}

func (s *Signature) Pre() int            { return s.pre }
func (s *Signature) Opt() int            { return s.opt }
func (s *Signature) Post() int           { return s.post }
func (s *Signature) Rest() Rest          { return s.rest }
func (s *Signature) Kwargs() int         { return s.kwargs }
func (s *Signature) RequiredKwargs() int { return s.requiredKwargs }
func (s *Signature) RestKwargs() bool    { return s.restKwargs }

// Required is the number of required positional parameters.
func (s *Signature) Required() int { return s.pre + s.post }

// Arity returns the interned arity derived from the shape.
func (s *Signature) Arity() *Arity { return s.arity }

// ArityValue is shorthand for Arity().Value().
func (s *Signature) ArityValue() int { return s.arity.value }

// HasRest reports a rest parameter that absorbs extra arguments. The
// trailing comma form destructures but does not absorb.
func (s *Signature) HasRest() bool { return s.rest == RestNorm || s.rest == RestStar }

// HasKwargs reports any keyword parameter or keyword rest.
func (s *Signature) HasKwargs() bool { return s.kwargs > 0 || s.restKwargs }

func (s *Signature) IsFixed() bool        { return s.arity.value >= 0 }
func (s *Signature) IsNoArguments() bool  { return s.IsFixed() && s.arity.value == 0 }
func (s *Signature) IsOneArgument() bool  { return s.IsFixed() && s.arity.value == 1 }
func (s *Signature) IsTwoArguments() bool { return s.IsFixed() && s.arity.value == 2 }
func (s *Signature) IsSingleParameter() bool {
	return s.pre+s.post == 1 && s.opt == 0 && s.rest == RestNone && !s.HasKwargs()
}

// IsSpreadable reports whether a single yielded value should be destructured
// across the parameters: more than one positional parameter could bind it.
func (s *Signature) IsSpreadable() bool {
	req := s.Required()
	switch {
	case s.HasKwargs(), s.rest == RestAnon:
		return true
	case req > 1:
		return true
	case req == 1:
		return s.opt > 0 || s.rest != RestNone
	}
	return s.opt > 1
}

// Max returns the maximum number of positional arguments, or -1 when there
// is no upper bound.
func (s *Signature) Max() int {
	if s.HasRest() {
		return -1
	}
	return s.Required() + s.opt
}

// CheckArity validates a positional argument count. A declared keyword
// signature accepts exactly one extra argument; whether that argument is a
// keyword hash is decided when keywords are received.
func (s *Signature) CheckArity(n int) error {
	required := s.Required()
	if n < required {
		return &ArgumentCountError{Given: n, Min: required, Max: s.Max()}
	}
	if max := s.Max(); max >= 0 && n > max {
		if s.HasKwargs() && n-1 <= max {
			return nil
		}
		return &ArgumentCountError{Given: n, Min: required, Max: max}
	}
	return nil
}

// CheckArityArgs is CheckArity with the trailing argument inspected: the
// extra argument is accepted only when it is a keyword hash.
func (s *Signature) CheckArityArgs(args []Value) error {
	if err := s.CheckArity(len(args)); err != nil {
		return err
	}
	if max := s.Max(); max >= 0 && len(args) > max {
		if _, ok := args[len(args)-1].(*Hash); !ok {
			return &ArgumentCountError{Given: len(args), Min: s.Required(), Max: max}
		}
	}
	return nil
}

// String renders the shape, e.g. "pre=2,opt=1,rest=norm,kw=1/1".
func (s *Signature) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pre=%d", s.pre)
	if s.opt > 0 {
		fmt.Fprintf(&b, ",opt=%d", s.opt)
	}
	if s.rest != RestNone {
		fmt.Fprintf(&b, ",rest=%s", s.rest)
	}
	if s.post > 0 {
		fmt.Fprintf(&b, ",post=%d", s.post)
	}
	if s.kwargs > 0 {
		fmt.Fprintf(&b, ",kw=%d/%d", s.requiredKwargs, s.kwargs)
	}
	if s.restKwargs {
		b.WriteString(",kwrest")
	}
	return b.String()
}

// ParseSignature parses the String form. Missing fields default to zero.
func ParseSignature(text string) (*Signature, error) {
	var pre, opt, post, kwargs, reqKw int
	rest := RestNone
	restKw := false
	text = strings.TrimSpace(text)
	if text == "" {
		return NoArguments, nil
	}
	for _, field := range strings.Split(text, ",") {
		field = strings.TrimSpace(field)
		key, val, _ := strings.Cut(field, "=")
		var err error
		switch key {
		case "pre":
			_, err = fmt.Sscanf(val, "%d", &pre)
		case "opt":
			_, err = fmt.Sscanf(val, "%d", &opt)
		case "post":
			_, err = fmt.Sscanf(val, "%d", &post)
		case "rest":
			rest, err = ParseRest(val)
		case "kw":
			req, total, ok := strings.Cut(val, "/")
			if !ok {
				req, total = val, val
			}
			if _, err = fmt.Sscanf(req, "%d", &reqKw); err == nil {
				_, err = fmt.Sscanf(total, "%d", &kwargs)
			}
		case "kwrest":
			restKw = true
		default:
			err = fmt.Errorf("unknown field")
		}
		if err != nil {
			return nil, fmt.Errorf("vm: parse signature %q: field %q: %w", text, field, err)
		}
	}
	if pre < 0 || opt < 0 || post < 0 || pre > sigMaxCount || opt > sigMaxCount || post > sigMaxCount ||
		reqKw < 0 || reqKw > kwargs || kwargs > sigMaxKw {
		return nil, fmt.Errorf("vm: parse signature %q: counts out of range", text)
	}
	return SignatureFrom(pre, opt, post, rest, kwargs, reqKw, restKw), nil
}
