package core

import "testing"

func TestSession_AddEventAndClone(t *testing.T) {
	s := NewSession("s1")
	s.AddEvent(NewUserMessageEvent("hi"))
	s.AddEvent(NewTitleEvent("Greeting"))
	s.AddEvent(NewMessageEvent("hello"))

	if s.Title != "Greeting" {
		t.Fatalf("expected title from TitleEvent, got %q", s.Title)
	}

	all := s.GetEvents()
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	all[0] = NewDoneEvent()
	if _, ok := s.GetEvents()[0].(MessageEvent); !ok {
		t.Error("events slice should be copied on read")
	}

	conv := s.Conversation()
	if len(conv) != 2 || conv[0].Role != "user" || conv[1].Role != "assistant" {
		t.Fatalf("unexpected conversation: %+v", conv)
	}

	clone := s.Clone()
	if clone == s {
		t.Error("Clone should be a different pointer")
	}

	clone.SetStatus(SessionCompleted)
	clone.AddEvent(NewDoneEvent())

	if s.Status != SessionPending || len(s.GetEvents()) != 3 {
		t.Error("original should not see clone mutations")
	}
}
