package push

import "testing"

func TestDecode(t *testing.T) {
	evt, err := Decode([]byte(`{"data":{"name":"conversation","id":"c1","kind":"UPDATE"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if evt.Name != DomainConversation || evt.ID != "c1" || evt.Kind != KindUpdate {
		t.Errorf("evt = %+v", evt)
	}
}

func TestDecodeRelationship(t *testing.T) {
	evt, err := Decode([]byte(`{"data":{"name":"relationship"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if evt.Name != DomainRelationship {
		t.Errorf("name = %q", evt.Name)
	}
}

func TestDecodeRejectsMissingName(t *testing.T) {
	if _, err := Decode([]byte(`{"data":{}}`)); err == nil {
		t.Error("expected error for frame without event name")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("expected error for non-JSON frame")
	}
}

func TestBackoffCapped(t *testing.T) {
	l := NewListener(Config{URL: "ws://x"}, func(Event) {}, nil, nil, nil)
	for attempt := 1; attempt <= 20; attempt++ {
		d := l.backoff(attempt)
		if d > l.cfg.ReconnectMaxDelay {
			t.Fatalf("backoff(%d) = %v exceeds cap %v", attempt, d, l.cfg.ReconnectMaxDelay)
		}
		if d <= 0 {
			t.Fatalf("backoff(%d) = %v, want positive", attempt, d)
		}
	}
}
