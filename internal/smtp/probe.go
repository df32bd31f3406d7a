// Package smtp implements the SMTP Probe (spec §4.5): an explicit
// state-machine dialogue against a mail-exchange host that determines
// whether a recipient address is accepted without ever delivering a
// message. Grounded on the teacher's internal/lookup/smtp.go (enterprise
// gateway detection, adaptive pacing) and CheckVRFY (raw textproto.Conn
// dialogue, explicit response-code reads) generalised into a named
// state machine with a hard global deadline.
package smtp

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"time"
)

// State names the SMTP Probe's dialogue states (spec §4.5).
type State int

const (
	StateConnect State = iota
	StateWaitBanner
	StateHeloSent
	StateMailSent
	StateRcptSent
	StateTerminal
)

const (
	perOpTimeout     = 10 * time.Second
	globalCeiling    = 15 * time.Second
	maxResponseBytes = 1024
)

// strictGateways are mail gateways known to tarpit fast successive
// commands; the probe paces itself when talking to one of these.
var strictGateways = []string{
	"mimecast.com", "pphosted.com", "barracudanetworks.com",
	"messagelabs.com", "iphmx.com", "trendmicro.com", "trendmicro.eu",
	"sophos.com", "mailcontrol.com", "mxlogic.net", "fireeye.com",
	"mx.cloudflare.net",
}

func isStrictEnterprise(mxHost string) bool {
	lower := strings.ToLower(mxHost)
	for _, gw := range strictGateways {
		if strings.Contains(lower, gw) {
			return true
		}
	}
	return false
}

// Config configures a Probe.
type Config struct {
	// HeloHost is the identity announced in HELO.
	HeloHost string
	// Sender is the MAIL FROM envelope address, configured out of band
	// (spec §4.5: "neutral sender identity").
	Sender string
	// LocalAddr binds the outbound connection to a specific source IP,
	// as assigned by the Rate Governor's IP pool. Empty uses the
	// system default.
	LocalAddr string
	// Dial overrides how the probe opens its transport connection. Nil
	// uses a net.Dialer against mxHost:25. Tests substitute a net.Pipe
	// half to drive the state machine against a canned-response fixture
	// without touching the network.
	Dial func(ctx context.Context, network, address string) (net.Conn, error)
}

// Outcome is the terminal result of a single probe.
type Outcome struct {
	Accepted   bool
	ErrorTag   string
	FinalState State
	Elapsed    time.Duration
}

// Probe drives one SMTP dialogue against mxHost for targetEmail.
type Probe struct {
	cfg Config
}

// New builds a Probe.
func New(cfg Config) *Probe {
	if cfg.HeloHost == "" {
		cfg.HeloHost = "mta1.verifyengine.local"
	}
	return &Probe{cfg: cfg}
}

// Run executes CONNECT → WAIT_BANNER(220) → HELO_SENT → (250) →
// MAIL_SENT → (250) → RCPT_SENT → terminal (spec §4.5). A global 15s
// ceiling is enforced independently of each op's own 10s timeout. The
// probe QUITs best-effort on an accept or reject terminal state;
// otherwise it just closes the connection.
func (p *Probe) Run(ctx context.Context, mxHost, targetEmail string) Outcome {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, globalCeiling)
	defer cancel()

	conn, err := p.dial(ctx, mxHost)
	if err != nil {
		return Outcome{Accepted: false, ErrorTag: "connection error", FinalState: StateConnect, Elapsed: time.Since(start)}
	}
	defer conn.Close()

	strict := isStrictEnterprise(mxHost)
	tp := textproto.NewConn(conn)
	defer tp.Close()

	state := StateWaitBanner
	withOpDeadline(conn, ctx)
	if _, _, err := tp.ReadResponse(220); err != nil {
		return p.inconclusive(state, start, classifyReadErr(err))
	}

	state = StateHeloSent
	if p.pace(ctx, strict) != nil {
		return p.inconclusive(state, start, "timeout")
	}
	withOpDeadline(conn, ctx)
	if _, err := tp.Cmd("HELO %s", p.cfg.HeloHost); err != nil {
		return p.inconclusive(state, start, "connection error")
	}
	if _, msg, err := tp.ReadResponse(250); err != nil {
		return p.inconclusive(state, start, classifyReadErr(err))
	} else if len(msg) > maxResponseBytes {
		return p.inconclusive(state, start, "response too large")
	}

	state = StateMailSent
	if p.pace(ctx, strict) != nil {
		return p.inconclusive(state, start, "timeout")
	}
	withOpDeadline(conn, ctx)
	if _, err := tp.Cmd("MAIL FROM:<%s>", p.cfg.Sender); err != nil {
		return p.inconclusive(state, start, "connection error")
	}
	if _, msg, err := tp.ReadResponse(250); err != nil {
		return p.inconclusive(state, start, classifyReadErr(err))
	} else if len(msg) > maxResponseBytes {
		return p.inconclusive(state, start, "response too large")
	}

	state = StateRcptSent
	if p.pace(ctx, strict) != nil {
		return p.inconclusive(state, start, "timeout")
	}
	withOpDeadline(conn, ctx)
	if _, err := tp.Cmd("RCPT TO:<%s>", targetEmail); err != nil {
		return p.inconclusive(state, start, "connection error")
	}
	code, msg, err := tp.ReadResponse(250)
	elapsed := time.Since(start)

	if len(msg) > maxResponseBytes {
		return Outcome{Accepted: false, ErrorTag: "response too large", FinalState: StateRcptSent, Elapsed: elapsed}
	}

	switch {
	case err == nil && code == 250:
		_, _ = tp.Cmd("QUIT")
		return Outcome{Accepted: true, FinalState: StateTerminal, Elapsed: elapsed}
	case code == 550 || code == 553:
		_, _ = tp.Cmd("QUIT")
		return Outcome{Accepted: false, ErrorTag: "address rejected", FinalState: StateTerminal, Elapsed: elapsed}
	default:
		return Outcome{Accepted: false, ErrorTag: classifyReadErr(err), FinalState: StateRcptSent, Elapsed: elapsed}
	}
}

func (p *Probe) inconclusive(state State, start time.Time, tag string) Outcome {
	return Outcome{Accepted: false, ErrorTag: tag, FinalState: state, Elapsed: time.Since(start)}
}

func (p *Probe) dial(ctx context.Context, mxHost string) (net.Conn, error) {
	addr := mxHost + ":25"
	if p.cfg.Dial != nil {
		return p.cfg.Dial(ctx, "tcp", addr)
	}
	d := net.Dialer{Timeout: perOpTimeout}
	if p.cfg.LocalAddr != "" {
		if ip := net.ParseIP(p.cfg.LocalAddr); ip != nil && !ip.IsUnspecified() {
			d.LocalAddr = &net.TCPAddr{IP: ip}
		}
	}
	return d.DialContext(ctx, "tcp", addr)
}

// pace mimics human typing speed for strict gateways, context-aware so
// cancellation aborts it immediately instead of blocking the whole 1s.
func (p *Probe) pace(ctx context.Context, strict bool) error {
	if !strict {
		return nil
	}
	select {
	case <-time.After(time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func withOpDeadline(conn net.Conn, ctx context.Context) {
	deadline := time.Now().Add(perOpTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)
}

// classifyReadErr turns a textproto/net error into one of the
// inconclusive error tags named in spec §4.5. The RCPT stage classifies
// 550/553 as a terminal reject itself (see Run); this helper only
// covers the remaining inconclusive outcomes: timeout, unexpected
// close, or any other protocol error before RCPT is even sent.
func classifyReadErr(err error) string {
	if err == nil {
		return ""
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return "timeout"
	}
	return "connection error"
}
