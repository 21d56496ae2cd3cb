package publishers

import (
	"context"
	"testing"
)

type recordingLogger struct {
	noopLogger
	msgs []string
	objs []any
}

func (r *recordingLogger) InfoObj(msg, _ string, obj interface{}) {
	r.msgs = append(r.msgs, msg)
	r.objs = append(r.objs, obj)
}

func TestLogPublisherWritesMessage(t *testing.T) {
	rec := &recordingLogger{}
	pub, err := newLogPublisher(context.Background(), PublisherConfig{ID: "stdout", Type: TypeLog}, rec)
	if err != nil {
		t.Fatalf("newLogPublisher: %v", err)
	}
	if err := pub.Publish(context.Background(), NewEvent("jewel", "direct", "https://x/p/A/", "")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(rec.msgs) != 1 || rec.msgs[0] != "New post detected! Check it out: https://x/p/A/" {
		t.Fatalf("unexpected log lines %v", rec.msgs)
	}
	fields, ok := rec.objs[0].(map[string]any)
	if !ok || fields["post_url"] != "https://x/p/A/" {
		t.Fatalf("unexpected fields %#v", rec.objs[0])
	}
}
