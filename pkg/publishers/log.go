package publishers

import "context"

// logPublisher writes the notification to the application log.
type logPublisher struct {
	id  string
	log Logger
}

func newLogPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	return &logPublisher{id: cfg.ID, log: ensureLogger(log)}, nil
}

func (l *logPublisher) ID() string   { return l.id }
func (l *logPublisher) Type() string { return TypeLog }

func (l *logPublisher) Publish(_ context.Context, evt Event) error {
	l.log.InfoObj(evt.Message, "notification", map[string]any{
		"publisher_id": l.id,
		"username":     evt.Username,
		"post_url":     evt.PostURL,
		"strategy":     evt.Strategy,
		"detected_at":  evt.DetectedAt,
	})
	return nil
}
