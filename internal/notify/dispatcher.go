package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"gumdrop/internal/observability/metrics"
)

const defaultCallTimeout = 10 * time.Second

// Failure records one claimant the notifier could not reach.
type Failure struct {
	Index  int    `json:"index"`
	Handle string `json:"handle"`
	Reason string `json:"reason"`
}

// Result is the outcome for one attempted claimant.
type Result struct {
	Index     int    `json:"index"`
	Handle    string `json:"handle"`
	Delivered bool   `json:"delivered"`
	Reason    string `json:"reason,omitempty"`
}

// Report summarises a batch. Failures and Results are in claimant order.
type Report struct {
	Attempted int       `json:"attempted"`
	Delivered int       `json:"delivered"`
	Failures  []Failure `json:"failures,omitempty"`
	Results   []Result  `json:"-"`
}

// Dispatcher runs a notifier over a claimant list. A failed delivery never stops the batch.
type Dispatcher struct {
	CallTimeout time.Duration
	Workers     int
	Logger      *log.Logger
}

func NewDispatcher(callTimeout time.Duration, workers int, logger *log.Logger) *Dispatcher {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{CallTimeout: callTimeout, Workers: workers, Logger: logger}
}

// Run notifies every claimant. An invalid drop type is rejected before anything is sent.
// Cancelling ctx stops the batch and returns the partial report with ctx's error.
func (d *Dispatcher) Run(ctx context.Context, n Notifier, claimants []ClaimantInfo, drop DropInfo) (Report, error) {
	if !drop.Type.Valid() {
		return Report{}, fmt.Errorf("%w %q", ErrUnknownDropType, drop.Type)
	}
	if n == nil {
		return Report{}, fmt.Errorf("%w: nil notifier", ErrUnknownChannel)
	}

	errs := make([]error, len(claimants))
	done := make([]bool, len(claimants))

	if d.Workers <= 1 {
		for i, c := range claimants {
			if ctx.Err() != nil {
				break
			}
			errs[i], done[i] = d.notifyOne(ctx, n, c, drop), true
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.Workers)
		for i, c := range claimants {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				errs[i], done[i] = d.notifyOne(gctx, n, c, drop), true
				return nil
			})
		}
		_ = g.Wait()
	}

	var report Report
	for i, c := range claimants {
		if !done[i] {
			continue
		}
		report.Attempted++
		if errs[i] != nil {
			reason := errs[i].Error()
			report.Failures = append(report.Failures, Failure{Index: i, Handle: c.Handle, Reason: reason})
			report.Results = append(report.Results, Result{Index: i, Handle: c.Handle, Reason: reason})
			continue
		}
		report.Delivered++
		report.Results = append(report.Results, Result{Index: i, Handle: c.Handle, Delivered: true})
	}
	d.Logger.Printf("notify dispatcher: channel=%s type=%s attempted=%d delivered=%d failed=%d",
		n.Kind(), drop.Type, report.Attempted, report.Delivered, len(report.Failures))
	return report, ctx.Err()
}

func (d *Dispatcher) notifyOne(ctx context.Context, n Notifier, c ClaimantInfo, drop DropInfo) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.CallTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = &DeliveryError{Channel: n.Kind(), Handle: c.Handle, Err: fmt.Errorf("panic: %v", r)}
		}
		metrics.CountNotification(string(n.Kind()), err == nil)
		if err != nil {
			d.Logger.Printf("notify dispatcher: claimant=%s err=%v", c.Handle, err)
		}
	}()
	return n.Notify(ctx, c, drop)
}
