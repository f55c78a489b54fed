// Package events publishes ledger notifications for downstream consumers
// such as funded-amount aggregation.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/glimpsegive/glimpse-ledger/internal/model"
)

// SubjectDonationRecorded carries one message per committed ledger row.
const SubjectDonationRecorded = "donation.recorded"

// Publisher emits ledger events. Delivery is best effort.
type Publisher interface {
	DonationRecorded(ctx context.Context, ev model.DonationRecorded) error
}

// Nop drops every event.
type Nop struct{}

// DonationRecorded implements Publisher.
func (Nop) DonationRecorded(context.Context, model.DonationRecorded) error { return nil }

type natsConn interface {
	Publish(subj string, data []byte) error
}

// NATS publishes JSON events on a NATS connection.
type NATS struct {
	conn    natsConn
	subject string
	close   func()
}

var _ Publisher = (*NATS)(nil)

// Connect dials url and returns a publisher on SubjectDonationRecorded.
func Connect(url string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("glimpse-ledger"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATS{conn: nc, subject: SubjectDonationRecorded, close: func() { _ = nc.Drain() }}, nil
}

// DonationRecorded publishes ev.
func (p *NATS) DonationRecorded(ctx context.Context, ev model.DonationRecorded) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

// Close drains the connection.
func (p *NATS) Close() {
	if p.close != nil {
		p.close()
	}
}
