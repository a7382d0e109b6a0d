package oatmeal

import "time"

// Built-in opcodes the port answers without application involvement (§6).
const (
	opDiscoveryReq  = "DISR"
	opDiscoveryAck  = "DISA"
	opHeartbeatReq  = "HRTR"
	opHeartbeatAck  = "HRTA"
	opLoggingReq    = "LOGR"
	opLoggingAck    = "LOGA"
	opHeartbeatBeat = "HRT"
	opHardwareIDHex = "HWI"
)

// HandleBuiltins answers v if it is one of the three built-in opcodes
// (DISR, HRTR, LOGR) and reports whether it did. The caller's CheckForMessages
// loop swallows every frame this returns true for.
func (p *Port) HandleBuiltins(v View) bool {
	switch v.Command() {
	case "DIS":
		if v.Flag() != 'R' {
			return false
		}
		p.handleDiscoveryRequest(v)
		return true
	case "HRT":
		if v.Flag() != 'R' {
			return false
		}
		p.handleHeartbeatToggle(v)
		return true
	case "LOG":
		if v.Flag() != 'R' {
			return false
		}
		p.handleLoggingToggle(v)
		return true
	default:
		return false
	}
}

// handleDiscoveryRequest always acks, per §7's "a discovery request is
// always ack'd (no failure path)".
func (p *Port) handleDiscoveryRequest(v View) {
	p.Start("DIS", 'A', v.TokenString())
	p.AppendString(p.opts.role)
	AppendPortInt(p, p.opts.instanceIndex)
	p.AppendString(p.opts.hardwareID)
	p.AppendString(p.opts.version)
	p.Finish()
}

// handleHeartbeatToggle parses a bool argument and, only on success,
// flips p.heartbeatsOn and acks; an unparseable request is silently
// dropped per §7.
func (p *Port) handleHeartbeatToggle(v View) {
	ap := NewArgParser(v.Args())
	on, ok := ap.ParseBool()
	if !ok || !ap.Finished() {
		return
	}
	p.heartbeatsOn = on
	p.Start("HRT", 'A', v.TokenString())
	p.Finish()
}

// handleLoggingToggle mirrors handleHeartbeatToggle for the LOGR/LOGA pair.
func (p *Port) handleLoggingToggle(v View) {
	ap := NewArgParser(v.Args())
	on, ok := ap.ParseBool()
	if !ok || !ap.Finished() {
		return
	}
	p.loggingOn = on
	p.Start("LOG", 'A', v.TokenString())
	p.Finish()
}

// SendHeartbeatNow streams a status heartbeat (`HRT` opcode, flag `B`)
// immediately, regardless of whether heartbeats have been toggled on.
// status is a short free-form string (the original firmware's build/board
// tag, not a boolean — confirmed against the worked heartbeat example,
// where "b" carries a string like "hi"). Returns false if the transport
// rejected any part of the write.
func (p *Port) SendHeartbeatNow(now time.Time, availPercent float64, availKB, uptimeSeconds uint32, status string, maxLoopMillis uint32) bool {
	_ = now // the original library stamps wall-clock time into logs only; the frame itself carries none
	p.Start(opHeartbeatBeat, 'B', p.NextToken())
	p.AppendDictStart()
	p.AppendDictKey("a")
	p.AppendFloat(availPercent, 0)
	p.AppendDictKey("avail_kb")
	AppendPortUint(p, availKB)
	p.AppendDictKey("b")
	p.AppendString(status)
	p.AppendDictKey("loop_ms")
	AppendPortUint(p, maxLoopMillis)
	p.AppendDictKey("uptime")
	AppendPortUint(p, uptimeSeconds)
	p.AppendDictEnd()
	return p.Finish() == nil
}

// BuildStatusHeartbeat builds the same `HRT`/`B` status heartbeat as
// SendHeartbeatNow into an owned Message instead of streaming it,
// for callers that want to inspect or buffer it before sending
// (e.g. a test, or a caller batching several ports' heartbeats).
func BuildStatusHeartbeat(token string, availPercent float64, availKB, uptimeSeconds uint32, status string, maxLoopMillis uint32, maxMsgLen int) *Message {
	m := NewMessage(maxMsgLen)
	m.Start(opHeartbeatBeat, 'B', token)
	m.AppendDictStart()
	m.AppendDictKeyValueFloat("a", availPercent, 0)
	AppendDictKeyValueUint(m, "avail_kb", availKB)
	m.AppendDictKeyValueString("b", status)
	AppendDictKeyValueUint(m, "loop_ms", maxLoopMillis)
	AppendDictKeyValueUint(m, "uptime", uptimeSeconds)
	m.AppendDictEnd()
	m.Finish()
	return m
}

// SendHardwareIDHex streams a diagnostic frame (`HWI`, flag 'B') whose
// single argument is the Port's configured hardware id rendered as
// unquoted hex digit pairs via WriteHex, the streaming analogue of the
// original firmware's uint32_to_hex helper. Unlike DISA's quoted string
// form, this bypasses escaping entirely for a host that wants the raw
// id bytes. Returns any transport error Finish encountered.
func (p *Port) SendHardwareIDHex() error {
	p.Start(opHardwareIDHex, 'B', p.NextToken())
	p.WriteHex([]byte(p.opts.hardwareID))
	return p.Finish()
}

// Log emits msg at level iff logging has been toggled on via LOGR,
// matching the Arduino reference's log() gated on its logging flag.
func (p *Port) Log(level, msg string, args ...any) {
	if !p.loggingOn {
		return
	}
	switch level {
	case "debug":
		p.opts.logger.Debug(msg, args...)
	case "warning":
		p.opts.logger.Warn(msg, args...)
	case "error":
		p.opts.logger.Error(msg, args...)
	default:
		p.opts.logger.Info(msg, args...)
	}
}

// LogDebug logs msg at debug level iff logging is toggled on.
func (p *Port) LogDebug(msg string, args ...any) { p.Log("debug", msg, args...) }

// Info logs msg at info level iff logging is toggled on.
func (p *Port) Info(msg string, args ...any) { p.Log("info", msg, args...) }

// Warning logs msg at warning level iff logging is toggled on.
func (p *Port) Warning(msg string, args ...any) { p.Log("warning", msg, args...) }

// Error logs msg at error level iff logging is toggled on.
func (p *Port) Error(msg string, args ...any) { p.Log("error", msg, args...) }
