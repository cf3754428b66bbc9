package link

import (
	"context"
	"errors"
	"time"
)

// errSendFailed marks a round whose request never went out.
var errSendFailed = errors.New("request not sent")

// Detect probes for the instrument: it sends probe and waits for a frame
// matching expect, up to attempts rounds (the configured default when
// attempts <= 0). Every round uses up one attempt, whether the send failed,
// nothing came back or the reply did not match. Success sets Connected.
//
// Detect returns false at once if ctx is already done or another exchange
// holds the response slot.
func (l *Link) Detect(ctx context.Context, probe, expect Frame, attempts int) bool {
	if attempts <= 0 {
		attempts = l.cfg.Attempts
	}
	log := l.log.With().Str("op", "detect").Logger()

	if ctx.Err() != nil {
		detectTotal.WithLabelValues("cancelled").Inc()
		return false
	}
	claim, err := l.waiters.claim()
	if err != nil {
		detectTotal.WithLabelValues("busy").Inc()
		log.Warn().Msg("another exchange is waiting for a response")
		return false
	}
	defer claim.release()

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && !l.sleep(ctx, l.cfg.RetryDelay) {
			detectTotal.WithLabelValues("cancelled").Inc()
			log.Info().Int("attempt", attempt).Msg("detect cancelled")
			return false
		}

		resp, err := l.exchange(ctx, claim, probe)
		switch {
		case err == nil && resp.Matches(expect):
			l.st.set(Connected)
			detectTotal.WithLabelValues("matched").Inc()
			log.Info().Int("attempt", attempt).Stringer("response", resp).Msg("instrument detected")
			return true
		case err == nil:
			log.Warn().Int("attempt", attempt).Stringer("response", resp).Msg("unexpected response")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrClosed):
			detectTotal.WithLabelValues("cancelled").Inc()
			log.Info().Int("attempt", attempt).Err(err).Msg("detect cancelled")
			return false
		default:
			log.Warn().Int("attempt", attempt).Err(err).Msg("no response")
		}
	}

	detectTotal.WithLabelValues("exhausted").Inc()
	log.Warn().Int("attempts", attempts).Msg("instrument not detected")
	return false
}

// SendAndVerify sends request once and reports whether the next frame
// matches expected.
func (l *Link) SendAndVerify(ctx context.Context, request, expected Frame) bool {
	log := l.log.With().Str("op", "verify").Logger()

	claim, err := l.waiters.claim()
	if err != nil {
		detectTotal.WithLabelValues("busy").Inc()
		log.Warn().Msg("another exchange is waiting for a response")
		return false
	}
	defer claim.release()

	resp, err := l.exchange(ctx, claim, request)
	switch {
	case err == nil && resp.Matches(expected):
		detectTotal.WithLabelValues("matched").Inc()
		log.Debug().Stringer("response", resp).Msg("response verified")
		return true
	case err == nil:
		detectTotal.WithLabelValues("mismatch").Inc()
		log.Warn().Stringer("response", resp).Stringer("expected", expected).Msg("unexpected response")
	default:
		detectTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Msg("no response")
	}
	return false
}

// exchange runs one round: arm the slot, send, wait for the next frame.
func (l *Link) exchange(ctx context.Context, claim *waiterClaim, request Frame) (Frame, error) {
	round := claim.arm()
	defer claim.disarm()

	if !l.TryWrite(ctx, request) {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		return Frame{}, errSendFailed
	}
	return await(ctx, round, l.responseWindow(), l.done)
}

// responseWindow is the wait for one reply. Input is not read while the
// write cooldown holds the line, so the window opens when the cooldown ends.
func (l *Link) responseWindow() time.Duration {
	if l.cfg.ResponseTimeout <= 0 || l.cfg.WriteCooldown <= 0 {
		return l.cfg.ResponseTimeout
	}
	return l.cfg.WriteCooldown + l.cfg.ResponseTimeout
}
