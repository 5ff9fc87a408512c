package publish

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"relaygate.dev/internal/cacheutil"
	"relaygate.dev/internal/chk"
	"relaygate.dev/internal/logger"
	"relaygate.dev/internal/metrics"
	"relaygate.dev/internal/nostrevent"
	"relaygate.dev/internal/relay"
)

// publishOKTimeout bounds how long the worker waits for a relay "OK"
// response to a freshly sent EVENT frame.
const publishOKTimeout = 3000 * time.Millisecond

// Worker drains Queue, publishing each message to relayURL and verifying
// it landed before reporting ack or retry.
type Worker struct {
	Queue    Queue
	Cache    cacheutil.Cache
	RelayURL string
}

// Run processes messages until ctx is done. Each message runs the full
// per-message algorithm synchronously; callers wanting concurrency across
// messages run multiple Workers, per spec: contention on the same
// event_id is resolved by last writer.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := w.Queue.Dequeue(ctx)
		if err != nil {
			chk.E(err)
			continue
		}
		if msg == nil {
			continue
		}
		w.processOne(ctx, msg)
	}
}

// processOne implements the §4.3 per-message algorithm.
func (w *Worker) processOne(ctx context.Context, msg *Message) {
	eventID := nostrevent.ExtractID(msg.Raw)

	prior, _, err := w.Cache.GetStatus(eventID)
	chk.E(err)
	attempts := 1
	if prior != nil {
		attempts = prior.Attempts + 1
	}

	attemptStatus := statusName("attempt", attempts)
	chk.E(
		w.Cache.SetStatus(
			eventID, &cacheutil.PublishStatus{Status: attemptStatus, Attempts: attempts},
		),
	)
	metrics.PublishAttempts.Inc()

	accepted, err := w.publishAndWaitForOK(ctx, msg.Raw)
	if err != nil || !accepted {
		chk.T(err)
		chk.E(
			w.Cache.SetStatus(
				eventID, &cacheutil.PublishStatus{
					Status: statusName("retry", attempts), Attempts: attempts,
					Error: "relay rejected",
				},
			),
		)
		metrics.PublishOutcomes.WithLabelValues("retry").Inc()
		chk.E(w.Queue.Retry(ctx, msg))
		return
	}

	found, err := w.verifyPublished(ctx, eventID)
	chk.E(err)
	if found {
		chk.E(
			w.Cache.SetStatus(
				eventID, &cacheutil.PublishStatus{
					Status: "published", Attempts: attempts,
					VerifiedAt: time.Now().UTC().Format(time.RFC3339),
				},
			),
		)
		metrics.PublishOutcomes.WithLabelValues("published").Inc()
		chk.E(w.Queue.Ack(ctx, msg))
		return
	}

	chk.E(
		w.Cache.SetStatus(
			eventID, &cacheutil.PublishStatus{
				Status: statusName("retry", attempts), Attempts: attempts,
				Error: "event not found on relay",
			},
		),
	)
	metrics.PublishOutcomes.WithLabelValues("retry").Inc()
	chk.E(w.Queue.Retry(ctx, msg))
}

func statusName(prefix string, attempts int) string {
	return prefix + "_" + strconv.Itoa(attempts)
}

// publishAndWaitForOK opens a transient WS, sends ["EVENT", raw], and
// waits up to publishOKTimeout for a frame whose first element is "OK".
// Any close, error, or timeout before OK counts as not accepted.
func (w *Worker) publishAndWaitForOK(ctx context.Context, raw []byte) (accepted bool, err error) {
	conn, err := relay.Dial(ctx, w.RelayURL)
	if chk.E(err) {
		return false, err
	}
	defer conn.Close()

	frame := append([]byte(`["EVENT",`), raw...)
	frame = append(frame, ']')
	if err := conn.WriteRaw(ctx, frame); chk.E(err) {
		return false, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, publishOKTimeout)
	defer cancel()

	for {
		data, err := conn.ReadFrame(waitCtx)
		if err != nil {
			return false, nil
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(data, &arr); err != nil || len(arr) < 3 {
			continue
		}
		var label string
		if err := json.Unmarshal(arr[0], &label); err != nil || label != "OK" {
			continue
		}
		var ok bool
		if err := json.Unmarshal(arr[2], &ok); err != nil {
			return false, nil
		}
		return ok, nil
	}
}

// verifyPublished opens a second WS session and runs the relay driver
// with filter {"ids":[eventID],"limit":1}, reporting whether the result
// set was non-empty.
func (w *Worker) verifyPublished(ctx context.Context, eventID string) (bool, error) {
	filterBytes := []byte(`{"ids":["` + eventID + `"],"limit":1}`)
	result, err := relay.Run(ctx, w.RelayURL, filterBytes)
	if chk.E(err) {
		return false, err
	}
	logger.D.F("publish verify %s: %d events, state=%s", eventID, len(result.Events), result.State)
	return len(result.Events) > 0, nil
}
