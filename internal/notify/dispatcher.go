package notify

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

type Sender interface {
	Send(ctx context.Context, req Request) error
}

// Outcome is the delivery result for one request.
type Outcome struct {
	To         string `json:"to"`
	MemberName string `json:"memberName"`
	Err        error  `json:"-"`
}

// Dispatcher fans requests out to a Sender with bounded concurrency. One
// failed delivery never cancels the others.
type Dispatcher struct {
	sender Sender
	limit  int
}

func NewDispatcher(sender Sender, limit int) *Dispatcher {
	if limit < 1 {
		limit = 1
	}
	return &Dispatcher{sender: sender, limit: limit}
}

// SendAll delivers every request and returns outcomes in request order.
func (d *Dispatcher) SendAll(ctx context.Context, reqs []Request) []Outcome {
	outcomes := make([]Outcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(d.limit)
	for i, req := range reqs {
		g.Go(func() error {
			err := d.sender.Send(ctx, req)
			if err != nil {
				slog.WarnContext(ctx, "Bill email failed",
					"member", req.MemberName,
					"recipient", req.To,
					"error", err)
			}
			outcomes[i] = Outcome{To: req.To, MemberName: req.MemberName, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
