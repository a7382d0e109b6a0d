package oatmeal

import (
	"github.com/pkg/errors"
)

// scanState is the four-state receive scanner (§4.4).
type scanState int

const (
	waitingOnStart scanState = iota
	waitingOnEnd
	waitingOnLength
	waitingOnChecksum
)

// recvSlack is how much larger the receive buffer is than a single
// maximum-length frame, giving compaction room to work without an extra
// copy on every byte.
const recvSlack = 8

// Port wraps a Transport the way the teacher's Conn wraps a *net.TCPConn:
// an internal receive buffer, a scan state, accumulated Stats, and a
// streaming-send accumulator, all single-threaded per §5 (two concurrent
// callers on the same Port are unsupported; different Ports are
// independent).
type Port struct {
	t    Transport
	opts *options

	raw            []byte
	bStart, bMid, bEnd int
	state          scanState

	stats Stats

	sendLen      int
	sendAcc      uint8
	sendLastByte byte
	lastSendErr  error

	tokenCursor int

	loggingOn       bool
	heartbeatsOn    bool
	heartbeatPeriod uint32 // milliseconds; 0 means unset
}

// NewPort wraps t in a Port. Panics with ErrNilTransport if t is nil —
// a nil transport is a programmer error, not a runtime condition.
func NewPort(t Transport, opts ...Option) *Port {
	if t == nil {
		panic(ErrNilTransport)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Port{
		t:    t,
		opts: o,
		raw:  make([]byte, o.maxMsgLen+recvSlack),
	}
}

// Stats returns a copy of this port's counters.
func (p *Port) Stats() Stats { return p.stats }

// ResetStats zeroes every counter.
func (p *Port) ResetStats() { p.stats.Reset() }

// LastSendErr returns the most recent transport error encountered while
// sending, wrapped with github.com/pkg/errors so its stack trace survives
// past the Transport boundary.
func (p *Port) LastSendErr() error { return p.lastSendErr }

// compact shifts unconsumed bytes to the start of the buffer, or resets
// all indices to zero if the buffer has been fully consumed.
func (p *Port) compact() {
	if p.bStart == p.bEnd {
		p.bStart, p.bMid, p.bEnd = 0, 0, 0
		return
	}
	if p.bStart > 0 {
		n := copy(p.raw, p.raw[p.bStart:p.bEnd])
		p.bMid -= p.bStart
		p.bEnd = n
		p.bStart = 0
	}
}

// ingest compacts, then reads as many bytes as the transport has
// available (without blocking) into the tail of the buffer.
func (p *Port) ingest() int {
	p.compact()
	room := len(p.raw) - p.bEnd
	if room <= 0 || p.t.Available() <= 0 {
		return 0
	}
	n := p.t.Read(p.raw[p.bEnd : p.bEnd+room])
	if n > 0 {
		p.bEnd += n
		p.stats.BytesRead += uint32(n)
	}
	return n
}

// restartAt treats the byte at bMid as a fresh '<': bStart becomes bMid
// and scanning continues from WaitingOnEnd, exactly like the
// WaitingOnStart row's '<' transition (§4.4's "restart" behavior).
func (p *Port) restartAt() {
	p.opts.logger.Debug("oatmeal: resync", "at", p.bMid)
	p.bStart = p.bMid
	p.state = waitingOnEnd
}

// scan drives the state machine over every already-buffered, unscanned
// byte, returning the first complete valid frame it finds. It never
// blocks and never reads from the transport itself — callers interleave
// it with ingest.
func (p *Port) scan() (View, bool) {
	for p.bMid < p.bEnd {
		b := p.raw[p.bMid]
		switch p.state {
		case waitingOnStart:
			switch b {
			case 0:
				p.stats.IllegalCharacter++
			case startByte:
				p.state = waitingOnEnd
				p.bStart = p.bMid
			case endByte:
				p.stats.MissingStartByte++
			}
			p.bMid++
			if p.state == waitingOnStart {
				p.bStart = p.bMid
			}
			continue

		case waitingOnEnd:
			switch b {
			case 0:
				p.stats.IllegalCharacter++
				p.state = waitingOnStart
				p.bMid++
				p.bStart = p.bMid
				continue
			case startByte:
				p.stats.MissingEndByte++
				p.restartAt()
				p.bMid++
				continue
			case endByte:
				p.state = waitingOnLength
			}
			p.bMid++

		case waitingOnLength:
			switch b {
			case 0:
				p.stats.IllegalCharacter++
				p.state = waitingOnStart
				p.bMid++
				p.bStart = p.bMid
				continue
			case startByte:
				p.stats.MissingEndByte++
				p.restartAt()
				p.bMid++
				continue
			default:
				p.state = waitingOnChecksum
			}
			p.bMid++

		case waitingOnChecksum:
			if b == 0 {
				p.stats.IllegalCharacter++
				p.state = waitingOnStart
				p.bMid++
				p.bStart = p.bMid
				continue
			}
			// Accept as K regardless of value (even '<' or '>') and
			// evaluate the candidate frame; §9(a).
			start, end := p.bStart, p.bMid+1
			n := end - start
			p.bMid++
			p.bStart = p.bMid
			p.state = waitingOnStart
			switch {
			case n < MinMsgLen:
				p.stats.FrameTooShort++
				p.opts.logger.Debug("oatmeal: frame dropped", "reason", "too short", "len", n)
			case n > p.opts.maxMsgLen:
				p.stats.FrameTooLong++
				p.opts.logger.Debug("oatmeal: frame dropped", "reason", "too long", "len", n)
			case !ValidateFrame(p.raw[start:end], p.opts.maxMsgLen):
				p.stats.BadChecksums++
				p.opts.logger.Debug("oatmeal: frame dropped", "reason", "bad checksum", "len", n)
			default:
				p.stats.GoodFrames++
				p.opts.logger.Debug("oatmeal: frame accepted", "cmd", string(p.raw[start+1:start+1+cmdLen]), "len", n)
				return View{frame: p.raw[start:end]}, true
			}
			continue
		}

		// An in-progress, non-terminal frame that has grown past the
		// configured limit is abandoned; §4.4's additional guard.
		if p.state != waitingOnStart && p.bMid-p.bStart >= p.opts.maxMsgLen {
			p.stats.FrameTooLong++
			p.state = waitingOnStart
			p.bStart = p.bMid
		}
	}
	return View{}, false
}

// Recv returns the next complete, valid frame, or (View{}, false) if none
// is available without blocking. The returned View aliases Port's
// internal buffer and is invalidated by the next Recv call (§5).
func (p *Port) Recv() (View, bool) {
	if v, ok := p.scan(); ok {
		return v, true
	}
	for {
		n := p.ingest()
		if n == 0 {
			return View{}, false
		}
		if v, ok := p.scan(); ok {
			return v, true
		}
	}
}

// CheckForMessages loops Recv and HandleBuiltins exactly like the
// Arduino reference's check_for_msgs: built-in opcodes are answered and
// swallowed, and the first frame HandleBuiltins doesn't recognize is
// returned to the caller.
func (p *Port) CheckForMessages() (View, bool) {
	for {
		v, ok := p.Recv()
		if !ok {
			return View{}, false
		}
		if !p.HandleBuiltins(v) {
			return v, true
		}
	}
}

// sendBudget is the last index a streamed frame's content may occupy
// before Finish appends '>', L and K — mirrors Message.endOffset.
func (p *Port) sendBudget() int { return p.opts.maxMsgLen - checksumLen - 1 }

// streamBytes writes b directly to the transport, folding every byte
// into the running send checksum, iff there's budget for all of it.
// Nothing is written on failure, so a failed append never half-appears
// on the wire.
func (p *Port) streamBytes(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	if p.sendLen+len(b) > p.sendBudget() {
		return false
	}
	if err := p.t.Write(b); err != nil {
		p.lastSendErr = errors.Wrap(err, "oatmeal: write")
		return false
	}
	for _, c := range b {
		p.sendAcc = (p.sendAcc + c) * checksumCoeff
	}
	p.sendLen += len(b)
	p.sendLastByte = b[len(b)-1]
	return true
}

func (p *Port) streamByte(b byte) bool { return p.streamBytes([]byte{b}) }

// sendSeparatorIfNeeded mirrors Message.separatorIfNeeded for the
// streaming send path.
func (p *Port) sendSeparatorIfNeeded() {
	if p.sendLen <= ArgsOffset {
		return
	}
	switch p.sendLastByte {
	case listStart, dictStart, dictKVSep, argSep:
		return
	}
	p.streamByte(argSep)
}

// tryStreamAppend formats a value into a scratch buffer sized to the
// remaining send budget, then streams it atomically. Used by every
// scalar streaming Append method so none of them duplicate the
// separator/budget bookkeeping.
func (p *Port) tryStreamAppend(format func(dst []byte) int) bool {
	p.sendSeparatorIfNeeded()
	remaining := p.sendBudget() - p.sendLen
	if remaining <= 0 {
		return false
	}
	scratch := make([]byte, remaining)
	n := format(scratch)
	if n == 0 {
		return false
	}
	return p.streamBytes(scratch[:n])
}

// Start begins a streamed frame, writing the start byte, command, flag
// and token directly to the transport. cmd must be 3 bytes and token 2
// bytes.
func (p *Port) Start(cmd string, flag byte, token string) {
	if len(cmd) != cmdLen {
		panic(ErrBadCommandLen)
	}
	if len(token) != tokenLen {
		panic(ErrBadTokenLen)
	}
	p.sendLen = 0
	p.sendAcc = 0
	p.sendLastByte = 0
	p.lastSendErr = nil
	p.streamByte(startByte)
	p.streamBytes([]byte(cmd))
	p.streamByte(flag)
	p.streamBytes([]byte(token))
}

// Finish appends the end byte and the two check bytes, completing a
// streamed frame, and returns any transport error encountered while
// streaming it.
func (p *Port) Finish() error {
	total := p.sendLen + 1 + checksumLen
	checklen := LengthCheckByte(total)
	// '>' and L lie outside the content budget streamBytes enforces.
	if err := p.t.Write([]byte{endByte, checklen}); err != nil {
		p.lastSendErr = errors.Wrap(err, "oatmeal: write")
		return p.lastSendErr
	}
	p.sendAcc = (p.sendAcc + endByte) * checksumCoeff
	p.sendAcc = (p.sendAcc + checklen) * checksumCoeff
	p.sendLen += 2
	k := checkByte(uint16(p.sendAcc))
	if err := p.t.Write([]byte{k}); err != nil {
		p.lastSendErr = errors.Wrap(err, "oatmeal: write")
		return p.lastSendErr
	}
	p.sendLen++
	p.stats.FramesWritten++
	return p.lastSendErr
}

// AppendString streams a quoted, escaped string argument.
func (p *Port) AppendString(s string) bool {
	return p.tryStreamAppend(func(dst []byte) int { return FormatString(dst, s) })
}

// AppendBytes streams a quoted, escaped raw-bytes argument.
func (p *Port) AppendBytes(b []byte) bool {
	return p.tryStreamAppend(func(dst []byte) int { return FormatBytes(dst, b) })
}

// AppendBool streams a boolean argument.
func (p *Port) AppendBool(v bool) bool {
	return p.tryStreamAppend(func(dst []byte) int { return FormatBool(dst, v) })
}

// AppendFloat streams a real-number argument with up to sigFigs
// significant figures (the Port's configured default if sigFigs <= 0).
func (p *Port) AppendFloat(v float64, sigFigs int) bool {
	if sigFigs <= 0 {
		sigFigs = p.opts.defaultSigFigs
	}
	return p.tryStreamAppend(func(dst []byte) int { return FormatFloat(dst, v, sigFigs) })
}

// AppendFloat32 streams a float32 argument via FormatFloat32, for sensor
// readings that never needed float64 precision in the first place.
func (p *Port) AppendFloat32(v float32, sigFigs int) bool {
	if sigFigs <= 0 {
		sigFigs = p.opts.defaultSigFigs
	}
	return p.tryStreamAppend(func(dst []byte) int { return FormatFloat32(dst, v, sigFigs) })
}

// AppendNone streams the null literal.
func (p *Port) AppendNone() bool {
	p.sendSeparatorIfNeeded()
	return p.streamByte('N')
}

// AppendListStart streams '[', opening a list.
func (p *Port) AppendListStart() bool {
	p.sendSeparatorIfNeeded()
	return p.streamByte(listStart)
}

// AppendListEnd streams ']', closing the innermost open list.
func (p *Port) AppendListEnd() bool { return p.streamByte(listEnd) }

// AppendDictStart streams '{', opening a dictionary.
func (p *Port) AppendDictStart() bool {
	p.sendSeparatorIfNeeded()
	return p.streamByte(dictStart)
}

// AppendDictEnd streams '}', closing the innermost open dictionary.
func (p *Port) AppendDictEnd() bool { return p.streamByte(dictEnd) }

// AppendDictKey streams a dictionary key and its '=' separator.
func (p *Port) AppendDictKey(key string) bool {
	p.sendSeparatorIfNeeded()
	if !p.streamBytes([]byte(key)) {
		return false
	}
	return p.streamByte(dictKVSep)
}

// WriteHex streams b as unquoted hex-digit pairs directly into the
// argument stream, for low-level diagnostic dumps that bypass the
// quoting/escaping machinery (mirrors the Arduino reference's
// write_hex).
func (p *Port) WriteHex(b []byte) bool {
	const hexDigits = "0123456789abcdef"
	scratch := make([]byte, len(b)*2)
	for i, c := range b {
		scratch[i*2] = hexDigits[c>>4]
		scratch[i*2+1] = hexDigits[c&0xF]
	}
	p.sendSeparatorIfNeeded()
	return p.streamBytes(scratch)
}

// WriteEncoded streams encoded, which must already be valid escaped
// argument content (e.g. produced by EncodeBytes, or copied verbatim out
// of another frame's View.Args()), straight onto the wire: it handles the
// leading separator like every other Append method but performs no
// quoting or escaping of its own. This is the streaming analogue of
// Message's internal writeBytes, exposed so a caller forwarding an
// already-validated argument doesn't pay for a decode/re-encode round
// trip (mirrors the Arduino reference's write_encoded alongside
// write_hex).
func (p *Port) WriteEncoded(encoded []byte) bool {
	p.sendSeparatorIfNeeded()
	return p.streamBytes(encoded)
}

// SendEcho streams an 'A'-flag response to v that forwards v's raw,
// already-encoded argument bytes unchanged via WriteEncoded, instead of
// SendAck's argument-less acknowledgement.
func (p *Port) SendEcho(v View) error {
	p.Start(v.Command(), 'A', v.TokenString())
	p.WriteEncoded(v.Args())
	return p.Finish()
}

// AppendPortInt streams a signed integer argument.
func AppendPortInt[T Signed](p *Port, v T) bool {
	return p.tryStreamAppend(func(dst []byte) int { return FormatInt(dst, v) })
}

// AppendPortUint streams an unsigned integer argument.
func AppendPortUint[T Unsigned](p *Port, v T) bool {
	return p.tryStreamAppend(func(dst []byte) int { return FormatUint(dst, v) })
}

// Send streams a complete, argument-less frame in one call.
func (p *Port) Send(cmd string, flag byte, token string) error {
	p.Start(cmd, flag, token)
	return p.Finish()
}

// SendResponse streams a complete, argument-less response frame echoing
// v's command and token with a new flag.
func (p *Port) SendResponse(v View, flag byte) error {
	return p.Send(v.Command(), flag, v.TokenString())
}

// SendAck streams a generic 'A'-flag acknowledgement of v.
func (p *Port) SendAck(v View) error { return p.SendResponse(v, 'A') }

// SendDone streams a generic 'D'-flag completion notice for v.
func (p *Port) SendDone(v View) error { return p.SendResponse(v, 'D') }

// SendFailed streams a generic 'F'-flag failure notice for v.
func (p *Port) SendFailed(v View) error { return p.SendResponse(v, 'F') }

// NextToken returns the next correlation token in a monotonic cycle over
// the 62-character token alphabet, wrapping modulo 62² (§3's "the sender
// advances monotonically modulo 62²", left unnamed by the spec but
// present in the original source as next_token()).
func (p *Port) NextToken() string {
	span := len(tokenChars)
	p.tokenCursor = (p.tokenCursor + 1) % (span * span)
	hi, lo := p.tokenCursor/span, p.tokenCursor%span
	return string([]byte{tokenChars[hi], tokenChars[lo]})
}
