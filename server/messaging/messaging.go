package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/THPTUHA/iclocksim/pkg/adms"
	"github.com/nats-io/nats.go"
	"github.com/panjf2000/ants"
	"github.com/sirupsen/logrus"
)

const ATTENDANCE = "iclock.attendance"

type NatsConfig struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	Name          string        `mapstructure:"name" yaml:"name"`
	Subject       string        `mapstructure:"subject" yaml:"subject"`
	ReconnectWait time.Duration `mapstructure:"reconnect-wait" yaml:"reconnect-wait"`
	MaxReconnects int           `mapstructure:"max-reconnects" yaml:"max-reconnects"`
	Workers       int           `mapstructure:"workers" yaml:"workers"`
}

func DefaultNatsConfig() NatsConfig {
	return NatsConfig{
		Name:          "iclocksim",
		Subject:       ATTENDANCE,
		ReconnectWait: 2 * time.Second,
		MaxReconnects: 60,
		Workers:       8,
	}
}

// Publisher fans received records out to other systems.
type Publisher interface {
	Publish(rec adms.AttendanceRecord)
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(adms.AttendanceRecord) {}

func (NopPublisher) Close() error { return nil }

// NewPublisher connects to NATS when a URL is configured and returns a
// NopPublisher otherwise.
func NewPublisher(config NatsConfig, logger *logrus.Entry) (Publisher, error) {
	if config.URL == "" {
		return NopPublisher{}, nil
	}
	return NewNatsPublisher(config, logger)
}

// NatsPublisher publishes each record as JSON on <subject>.<SN>. Publishing
// runs on a worker pool so a slow broker never delays the device reply.
type NatsPublisher struct {
	config NatsConfig
	conn   *nats.Conn
	pool   *ants.PoolWithFunc
	logger *logrus.Entry
	wg     sync.WaitGroup
}

func optNats(o *NatsConfig) []nats.Option {
	opts := make([]nats.Option, 0)
	opts = append(opts, nats.Name(o.Name))
	opts = append(opts, nats.MaxReconnects(o.MaxReconnects))
	opts = append(opts, nats.ReconnectWait(o.ReconnectWait))
	return opts
}

func NewNatsPublisher(config NatsConfig, logger *logrus.Entry) (*NatsPublisher, error) {
	if config.Subject == "" {
		config.Subject = ATTENDANCE
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	nc, err := nats.Connect(config.URL, optNats(&config)...)
	if err != nil {
		return nil, fmt.Errorf("messaging: connect %s: %w", config.URL, err)
	}

	p := &NatsPublisher{
		config: config,
		conn:   nc,
		logger: logger,
	}
	p.pool, err = ants.NewPoolWithFunc(config.Workers, func(msg interface{}) {
		defer p.wg.Done()
		rec := msg.(adms.AttendanceRecord)
		if err := p.publish(rec); err != nil {
			p.logger.WithError(err).WithField("id", rec.ID).Error("publish failed")
		}
	})
	if err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func Subject(prefix string, sn string) string {
	return fmt.Sprintf("%s.%s", prefix, sn)
}

func (p *NatsPublisher) publish(rec adms.AttendanceRecord) error {
	data, err := json.Marshal(&rec)
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(p.config.Subject, rec.DeviceSN), data)
}

func (p *NatsPublisher) Publish(rec adms.AttendanceRecord) {
	p.wg.Add(1)
	if err := p.pool.Invoke(rec); err != nil {
		p.wg.Done()
		p.logger.WithError(err).Warn("publish pool rejected record")
	}
}

// Close waits for queued records to be handed to the connection, then drains it.
func (p *NatsPublisher) Close() error {
	p.wg.Wait()
	p.pool.Release()
	return p.conn.Drain()
}
