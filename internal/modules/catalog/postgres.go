package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Notifier is the part of *pq.Listener a postgres source uses.
type Notifier interface {
	Listen(channel string) error
	Unlisten(channel string) error
	NotificationChannel() <-chan *pq.Notification
}

// postgresSource reads one collection table (id, name, attributes jsonb) and
// re-reads it whenever a NOTIFY arrives on its channel.
type postgresSource struct {
	db       *sql.DB
	listener Notifier
	table    string
	channel  string
	log      *zap.Logger
}

// NewPostgresSource creates a Source over table, woken by NOTIFY on channel.
func NewPostgresSource(db *sql.DB, listener Notifier, table, channel string, log *zap.Logger) Source {
	if log == nil {
		log = zap.NewNop()
	}
	return &postgresSource{db: db, listener: listener, table: table, channel: channel, log: log}
}

func (s *postgresSource) Name() string { return s.table }

func (s *postgresSource) Fetch(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, name, attributes FROM %s ORDER BY name`, pq.QuoteIdentifier(s.table)))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			id    string
			name  sql.NullString
			attrs []byte
		)
		if err := rows.Scan(&id, &name, &attrs); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		fields := map[string]interface{}{}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &fields); err != nil {
				return nil, fmt.Errorf("decode %s/%s attributes: %w", s.table, id, err)
			}
		}
		if _, ok := fields["name"]; !ok && name.Valid {
			fields["name"] = name.String
		}
		records = append(records, Record{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.table, err)
	}
	return records, nil
}

// Subscribe delivers an initial snapshot, then one per notification. A nil
// notification (sent by pq after a reconnect) also triggers a re-read.
func (s *postgresSource) Subscribe(ctx context.Context, onSnapshot func([]Record), onError func(error)) (Unsubscribe, error) {
	if err := s.listener.Listen(s.channel); err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	deliver := func() {
		records, err := s.Fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				onError(err)
			}
			return
		}
		onSnapshot(records)
	}

	go func() {
		defer close(done)
		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-s.listener.NotificationChannel():
				if !ok {
					return
				}
				deliver()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			if err := s.listener.Unlisten(s.channel); err != nil {
				s.log.Warn("unlisten failed", zap.String("channel", s.channel), zap.Error(err))
			}
		})
	}, nil
}
