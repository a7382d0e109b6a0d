package oatmeal

// ArgParser walks the argument region of a frame (§4.3). It is a small
// plain-data struct so a snapshot is a cheap value copy: every Parse*
// call saves its receiver by value on entry and restores it verbatim on
// failure, guaranteeing bit-exact rewind with no heap allocation.
type ArgParser struct {
	args       []byte
	pos        int
	needSep    bool
	argsParsed bool
	listDepth  int
	dictDepth  int
}

// NewArgParser creates an ArgParser over args, the argument region of a
// frame (e.g. View.Args()).
func NewArgParser(args []byte) *ArgParser {
	p := &ArgParser{}
	p.Init(args)
	return p
}

// Init resets p to parse args from the beginning.
func (p *ArgParser) Init(args []byte) {
	*p = ArgParser{args: args}
}

// Pos returns the current byte offset into the argument region.
func (p *ArgParser) Pos() int { return p.pos }

// ArgsParsed reports whether at least one value has been successfully
// parsed so far.
func (p *ArgParser) ArgsParsed() bool { return p.argsParsed }

// Finished reports whether parsing has consumed the entire argument
// region with every opened list and dictionary closed — the only state
// from which a frame can be considered a fully-parsed, well-formed
// message (§4.3). The trailing disjunct rejects a parse that stopped
// right after a dangling dictionary key (or a trailing separator) as
// unfinished, while still treating "nothing was ever parsed" as a
// trivially finished, empty-args parse.
func (p *ArgParser) Finished() bool {
	return p.pos >= len(p.args) && p.listDepth == 0 && p.dictDepth == 0 &&
		(!p.argsParsed || p.needSep)
}

// trySep consumes a leading ',' if one is required (i.e. this isn't the
// first value after the start of the arguments, a '[', a '{' or a '=').
// Returns false, leaving p untouched, if a separator was required but not
// present.
func (p *ArgParser) trySep() bool {
	if !p.needSep {
		return true
	}
	if p.pos >= len(p.args) || p.args[p.pos] != argSep {
		return false
	}
	p.pos++
	return true
}

// accept marks that a value was successfully consumed: n bytes were read
// starting at the separator check, and the next value (if any) will
// require a separator.
func (p *ArgParser) accept(n int) {
	p.pos += n
	p.needSep = true
	p.argsParsed = true
}

// ParseFloat parses a real-number argument.
func (p *ArgParser) ParseFloat() (float64, bool) {
	save := *p
	if !p.trySep() {
		*p = save
		return 0, false
	}
	v, n := ParseFloat(p.args[p.pos:])
	if n == 0 {
		*p = save
		return 0, false
	}
	p.accept(n)
	return v, true
}

// ParseBool parses a boolean argument.
func (p *ArgParser) ParseBool() (bool, bool) {
	save := *p
	if !p.trySep() {
		*p = save
		return false, false
	}
	v, n := ParseBool(p.args[p.pos:])
	if n == 0 {
		*p = save
		return false, false
	}
	p.accept(n)
	return v, true
}

// ParseNull parses the null literal, returning whether one was present.
func (p *ArgParser) ParseNull() bool {
	save := *p
	if !p.trySep() {
		*p = save
		return false
	}
	n := ParseNull(p.args[p.pos:])
	if n == 0 {
		*p = save
		return false
	}
	p.accept(n)
	return true
}

// ParseString parses a quoted UTF-8 string argument.
func (p *ArgParser) ParseString() (string, bool) {
	save := *p
	if !p.trySep() {
		*p = save
		return "", false
	}
	v, n := ParseString(p.args[p.pos:])
	if n == 0 {
		*p = save
		return "", false
	}
	p.accept(n)
	return v, true
}

// ParseBytes parses a `0"..."` raw-bytes argument.
func (p *ArgParser) ParseBytes() ([]byte, bool) {
	save := *p
	if !p.trySep() {
		*p = save
		return nil, false
	}
	v, n := ParseBytes(p.args[p.pos:])
	if n == 0 {
		*p = save
		return nil, false
	}
	p.accept(n)
	return v, true
}

// ParseListStart parses the '[' opening a list.
func (p *ArgParser) ParseListStart() bool {
	save := *p
	if !p.trySep() {
		*p = save
		return false
	}
	if p.pos >= len(p.args) || p.args[p.pos] != listStart {
		*p = save
		return false
	}
	p.pos++
	p.listDepth++
	p.needSep = false
	return true
}

// ParseListEnd parses the ']' closing the innermost open list. Unlike a
// value, a closer is never preceded by a separator check of its own: the
// comma before it (if any) was already rejected by the failed attempt to
// parse one more element.
func (p *ArgParser) ParseListEnd() bool {
	if p.listDepth == 0 {
		return false
	}
	save := *p
	if p.pos >= len(p.args) || p.args[p.pos] != listEnd {
		*p = save
		return false
	}
	p.pos++
	p.listDepth--
	p.needSep = true
	return true
}

// ParseDictStart parses the '{' opening a dictionary.
func (p *ArgParser) ParseDictStart() bool {
	save := *p
	if !p.trySep() {
		*p = save
		return false
	}
	if p.pos >= len(p.args) || p.args[p.pos] != dictStart {
		*p = save
		return false
	}
	p.pos++
	p.dictDepth++
	p.needSep = false
	return true
}

// ParseDictEnd parses the '}' closing the innermost open dictionary.
func (p *ArgParser) ParseDictEnd() bool {
	if p.dictDepth == 0 {
		return false
	}
	save := *p
	if p.pos >= len(p.args) || p.args[p.pos] != dictEnd {
		*p = save
		return false
	}
	p.pos++
	p.dictDepth--
	p.needSep = true
	return true
}

// ParseDictKey parses a bare dictionary key and its '=' separator. A
// value parse (e.g. ParseFloat) should follow to complete the pair.
func (p *ArgParser) ParseDictKey() (string, bool) {
	save := *p
	if !p.trySep() {
		*p = save
		return "", false
	}
	key, n := ParseDictKey(p.args[p.pos:])
	if n == 0 {
		*p = save
		return "", false
	}
	// The key/'=' pair counts as consumed but doesn't itself set needSep:
	// the value that must follow attaches directly, with no comma.
	p.pos += n
	p.needSep = false
	p.argsParsed = true
	return key, true
}

// ParseArgInt parses a signed integer argument. It is a free function
// because a method cannot add type parameters beyond its receiver's.
func ParseArgInt[T Signed](p *ArgParser) (T, bool) {
	save := *p
	if !p.trySep() {
		*p = save
		return 0, false
	}
	v, n := ParseInt[T](p.args[p.pos:])
	if n == 0 {
		*p = save
		return 0, false
	}
	p.accept(n)
	return v, true
}

// ParseArgUint parses an unsigned integer argument.
func ParseArgUint[T Unsigned](p *ArgParser) (T, bool) {
	save := *p
	if !p.trySep() {
		*p = save
		return 0, false
	}
	v, n := ParseUint[T](p.args[p.pos:])
	if n == 0 {
		*p = save
		return 0, false
	}
	p.accept(n)
	return v, true
}

// ParseDictKeyValueInt parses a key=value pair with a signed integer
// value.
func ParseDictKeyValueInt[T Signed](p *ArgParser) (key string, val T, ok bool) {
	save := *p
	key, ok = p.ParseDictKey()
	if !ok {
		return "", 0, false
	}
	val, ok = ParseArgInt[T](p)
	if !ok {
		*p = save
		return "", 0, false
	}
	return key, val, true
}

// ParseDictKeyValueUint parses a key=value pair with an unsigned integer
// value.
func ParseDictKeyValueUint[T Unsigned](p *ArgParser) (key string, val T, ok bool) {
	save := *p
	key, ok = p.ParseDictKey()
	if !ok {
		return "", 0, false
	}
	val, ok = ParseArgUint[T](p)
	if !ok {
		*p = save
		return "", 0, false
	}
	return key, val, true
}

// ParseDictKeyValueFloat parses a key=value pair with a real-number
// value.
func (p *ArgParser) ParseDictKeyValueFloat() (key string, val float64, ok bool) {
	save := *p
	key, ok = p.ParseDictKey()
	if !ok {
		return "", 0, false
	}
	val, ok = p.ParseFloat()
	if !ok {
		*p = save
		return "", 0, false
	}
	return key, val, true
}

// ParseDictKeyValueString parses a key=value pair with a string value.
func (p *ArgParser) ParseDictKeyValueString() (key, val string, ok bool) {
	save := *p
	key, ok = p.ParseDictKey()
	if !ok {
		return "", "", false
	}
	val, ok = p.ParseString()
	if !ok {
		*p = save
		return "", "", false
	}
	return key, val, true
}

// ParseList parses up to maxItems integer elements of a list (including
// its brackets), stopping cleanly at ']'. Returns the parsed elements and
// whether the whole list parsed successfully (including hitting ']'
// within maxItems elements).
func ParseList[T Signed](p *ArgParser, maxItems int) ([]T, bool) {
	save := *p
	if !p.ParseListStart() {
		return nil, false
	}
	out := make([]T, 0, maxItems)
	if p.ParseListEnd() {
		return out, true
	}
	for {
		v, ok := ParseArgInt[T](p)
		if !ok {
			*p = save
			return nil, false
		}
		out = append(out, v)
		if len(out) > maxItems {
			*p = save
			return nil, false
		}
		if p.ParseListEnd() {
			return out, true
		}
	}
}

// ParseListOfStrings parses up to maxItems string elements of a list,
// mirroring ParseList for the common case of a string array.
func (p *ArgParser) ParseListOfStrings(maxItems int) ([]string, bool) {
	save := *p
	if !p.ParseListStart() {
		return nil, false
	}
	out := make([]string, 0, maxItems)
	if p.ParseListEnd() {
		return out, true
	}
	for {
		v, ok := p.ParseString()
		if !ok {
			*p = save
			return nil, false
		}
		out = append(out, v)
		if len(out) > maxItems {
			*p = save
			return nil, false
		}
		if p.ParseListEnd() {
			return out, true
		}
	}
}
