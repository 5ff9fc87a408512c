package relay

import (
	"context"
	"encoding/json"
	"time"

	"relaygate.dev/internal/chk"
	"relaygate.dev/internal/logger"
	"relaygate.dev/internal/metrics"
)

// TerminalState names the reason a driver invocation stopped draining.
type TerminalState string

const (
	Completed TerminalState = "completed"
	Partial   TerminalState = "partial"
	Saturated TerminalState = "saturated"
	Timeout   TerminalState = "timeout"
	Empty     TerminalState = "empty"
	Idle      TerminalState = "idle"
)

// Fixed timers and thresholds, part of the driver's contract.
const (
	maxTotal  = 5000 * time.Millisecond
	emptyWait = 1000 * time.Millisecond
	idleGap   = 300 * time.Millisecond
	hardCap   = 500
)

// Result is the outcome of one driver invocation: the events collected, in
// relay arrival order, and the terminal state that ended the drain.
type Result struct {
	Events []json.RawMessage
	State  TerminalState
}

// EOSE reports whether the terminal state reflects the relay signaling
// end-of-stored-events (as opposed to a bound expiring first).
func (r *Result) EOSE() bool { return r.State == Completed }

// Run opens a transient WebSocket to url, issues a single subscription
// against canonicalFilter (spliced verbatim into the REQ frame), and
// drains it to a terminal state per the fixed timers above. A connect
// failure is returned as an error; every other outcome, including a
// mid-stream close, is a normal (non-error) Result.
func Run(ctx context.Context, url string, canonicalFilter []byte) (*Result, error) {
	conn, err := Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	subID := newSubID()
	reqFrame := buildREQ(subID, canonicalFilter)
	if err := conn.WriteRaw(ctx, reqFrame); err != nil {
		return nil, err
	}

	result := drain(ctx, conn)
	metrics.DriverTerminalStates.WithLabelValues(string(result.State)).Inc()

	chk.T(conn.WriteRaw(ctx, buildCLOSE(subID)))

	return result, nil
}

// buildREQ textually splices subID and the canonical filter bytes into a
// ["REQ", <sub_id>, <filter>] frame. This is the only way to guarantee
// field preservation: decoding the filter into a struct and re-encoding it
// would drop unknown tag families.
func buildREQ(subID string, canonicalFilter []byte) []byte {
	out := make([]byte, 0, len(canonicalFilter)+len(subID)+16)
	out = append(out, `["REQ","`...)
	out = append(out, subID...)
	out = append(out, `",`...)
	out = append(out, canonicalFilter...)
	out = append(out, ']')
	return out
}

func buildCLOSE(subID string) []byte {
	out := make([]byte, 0, len(subID)+14)
	out = append(out, `["CLOSE","`...)
	out = append(out, subID...)
	out = append(out, `"]`...)
	return out
}

// drain runs the single-threaded DRAINING state until a terminal condition
// fires. Frame reception happens on a background goroutine racing the
// driver's own timers; only one of them ever decides the terminal state.
func drain(ctx context.Context, conn *Connection) *Result {
	frames := make(chan []byte)
	readErr := make(chan error, 1)

	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()

	go func() {
		for {
			data, err := conn.ReadFrame(readCtx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- data:
			case <-readCtx.Done():
				return
			}
		}
	}()

	var collected []json.RawMessage

	maxTotalTimer := time.NewTimer(maxTotal)
	defer maxTotalTimer.Stop()
	emptyWaitTimer := time.NewTimer(emptyWait)
	defer emptyWaitTimer.Stop()
	var idleTimer *time.Timer
	defer func() {
		if idleTimer != nil {
			idleTimer.Stop()
		}
	}()

Loop:
	for {
		var idleCh <-chan time.Time
		if idleTimer != nil {
			idleCh = idleTimer.C
		}

		select {
		case data := <-frames:
			switch handleFrame(data, &collected) {
			case frameEvent:
				if idleTimer == nil {
					idleTimer = time.NewTimer(idleGap)
				} else {
					if !idleTimer.Stop() {
						<-idleTimer.C
					}
					idleTimer.Reset(idleGap)
				}
				if len(collected) >= hardCap {
					return &Result{Events: collected, State: Saturated}
				}
			case frameEOSE:
				break Loop
			case frameNotice, frameOther:
				// logged in handleFrame; remain DRAINING
			}

		case err := <-readErr:
			chk.T(err)
			return &Result{Events: collected, State: Partial}

		case <-maxTotalTimer.C:
			return &Result{Events: collected, State: Timeout}

		case <-emptyWaitTimer.C:
			if len(collected) == 0 {
				return &Result{Events: collected, State: Empty}
			}
			// Events have already arrived; this firing is stale and is
			// simply ignored, the idle timer now governs termination.

		case <-idleCh:
			return &Result{Events: collected, State: Idle}
		}
	}

	return &Result{Events: collected, State: Completed}
}

type frameKind int

const (
	frameOther frameKind = iota
	frameEvent
	frameEOSE
	frameNotice
)

// handleFrame parses one incoming relay frame, appending to collected on
// EVENT, and classifies it for the caller's state transition. Malformed
// frames are logged and classified as frameOther, never causing a panic.
func handleFrame(data []byte, collected *[]json.RawMessage) frameKind {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil || len(arr) == 0 {
		logger.W.F("relay: malformed frame: %s", string(data))
		return frameOther
	}

	var label string
	if err := json.Unmarshal(arr[0], &label); err != nil {
		return frameOther
	}

	switch label {
	case "EVENT":
		if len(arr) >= 3 {
			*collected = append(*collected, arr[2])
		}
		return frameEvent
	case "EOSE":
		return frameEOSE
	case "NOTICE":
		logger.I.F("relay NOTICE: %s", string(data))
		return frameNotice
	default:
		return frameOther
	}
}
