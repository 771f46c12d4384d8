package telemetry

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"envelope-service/pkg/config"
	"envelope-service/pkg/envelope"
	"envelope-service/pkg/metrics"
)

const measurement = "api_responses"

// PointWriter is satisfied by api.WriteAPIBlocking.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

type Client struct {
	client   influxdb2.Client
	writeAPI PointWriter
	service  string
}

// NewClient returns a client that does nothing when Influx is not configured.
func NewClient(cfg config.InfluxConfig, service string) *Client {
	if cfg.Host == "" || cfg.Token == "" {
		return &Client{service: service}
	}

	client := influxdb2.NewClient(cfg.Host, cfg.Token)

	return &Client{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Database),
		service:  service,
	}
}

// NewClientWithWriter is used by tests and by callers that manage their own Influx client.
func NewClientWithWriter(w PointWriter, service string) *Client {
	return &Client{writeAPI: w, service: service}
}

func (c *Client) Enabled() bool {
	return c.writeAPI != nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// WriteOutcomeCounts writes one point per outcome seen in snap.
func (c *Client) WriteOutcomeCounts(ctx context.Context, snap metrics.Snapshot) error {
	if c.writeAPI == nil || snap.Empty() {
		return nil
	}

	points := c.points(snap, time.Now())
	if err := c.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write outcome counts: %w", err)
	}
	return nil
}

func (c *Client) points(snap metrics.Snapshot, now time.Time) []*write.Point {
	var points []*write.Point

	for _, o := range envelope.Outcomes() {
		count, ok := snap.Counts[o]
		if !ok || count == 0 {
			continue
		}
		points = append(points, influxdb2.NewPoint(
			measurement,
			map[string]string{
				"service": c.service,
				"outcome": o.String(),
				"family":  string(o.Family()),
				"status":  fmt.Sprintf("%d", o.Status()),
			},
			map[string]interface{}{"count": count},
			now,
		))
	}

	if snap.Other > 0 {
		points = append(points, influxdb2.NewPoint(
			measurement,
			map[string]string{
				"service": c.service,
				"outcome": "other",
				"family":  "other",
			},
			map[string]interface{}{"count": snap.Other},
			now,
		))
	}

	return points
}
