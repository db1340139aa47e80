package messaging_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tailored-agentic-units/recommender/orchestrate/messaging"
)

func TestMessage_Builders(t *testing.T) {
	tests := []struct {
		name        string
		builder     func() *messaging.Message
		wantKind    messaging.Kind
		wantFrom    string
		wantTo      string
		wantReplyTo string
	}{
		{
			name: "NewMessage",
			builder: func() *messaging.Message {
				return messaging.NewMessage("api", "suggestion", messaging.KindGetRecommendations, "q").Build()
			},
			wantKind: messaging.KindGetRecommendations,
			wantFrom: "api",
			wantTo:   "suggestion",
		},
		{
			name: "NewResponse",
			builder: func() *messaging.Message {
				return messaging.NewResponse("suggestion", "api", "msg-123", messaging.KindRecommendationResult, "r").Build()
			},
			wantKind:    messaging.KindRecommendationResult,
			wantFrom:    "suggestion",
			wantTo:      "api",
			wantReplyTo: "msg-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.builder()

			if msg.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", msg.Kind, tt.wantKind)
			}
			if msg.From != tt.wantFrom {
				t.Errorf("From = %v, want %v", msg.From, tt.wantFrom)
			}
			if msg.To != tt.wantTo {
				t.Errorf("To = %v, want %v", msg.To, tt.wantTo)
			}
			if msg.ReplyTo != tt.wantReplyTo {
				t.Errorf("ReplyTo = %v, want %v", msg.ReplyTo, tt.wantReplyTo)
			}
			if msg.ID == "" {
				t.Error("ID should not be empty")
			}
			if msg.Timestamp.IsZero() {
				t.Error("Timestamp should not be zero")
			}
			if msg.Priority != messaging.PriorityLow {
				t.Errorf("Priority = %v, want %v", msg.Priority, messaging.PriorityLow)
			}
		})
	}
}

func TestMessage_FluentAPI(t *testing.T) {
	msg := messaging.NewMessage("a", "b", messaging.KindDetectTrends, nil).
		Priority(messaging.PriorityHigh).
		Headers(map[string]string{"request-id": "r-1"}).
		Build()

	if msg.Priority != messaging.PriorityHigh {
		t.Errorf("Priority = %v, want %v", msg.Priority, messaging.PriorityHigh)
	}
	if msg.Headers["request-id"] != "r-1" {
		t.Errorf("Headers[request-id] = %v, want %v", msg.Headers["request-id"], "r-1")
	}
}

func TestMessage_IsResponse(t *testing.T) {
	request := messaging.NewMessage("a", "b", messaging.KindGetStatus, nil).Build()
	response := messaging.NewResponse("b", "a", request.ID, messaging.KindStatusResult, nil).Build()
	failure := messaging.NewResponse("b", "a", request.ID, messaging.KindErrorResponse, nil).Build()

	if request.IsResponse() {
		t.Error("request.IsResponse() = true, want false")
	}
	if !response.IsResponse() {
		t.Error("response.IsResponse() = false, want true")
	}
	if response.IsError() {
		t.Error("response.IsError() = true, want false")
	}
	if !failure.IsError() {
		t.Error("failure.IsError() = false, want true")
	}
}

func TestMessage_Clone(t *testing.T) {
	original := messaging.NewMessage("a", "b", messaging.KindGetStatus, nil).
		Headers(map[string]string{"key1": "value1"}).
		Build()

	clone := original.Clone()

	if clone.ID != original.ID {
		t.Errorf("Clone ID = %v, want %v", clone.ID, original.ID)
	}
	if clone.Kind != original.Kind {
		t.Errorf("Clone Kind = %v, want %v", clone.Kind, original.Kind)
	}

	clone.Headers["key1"] = "modified"
	if original.Headers["key1"] == "modified" {
		t.Error("Modifying clone headers modified original headers (not deep copied)")
	}
}

func TestMessage_String(t *testing.T) {
	msg := messaging.NewMessage("agent-a", "agent-b", messaging.KindDetectTrends, nil).Build()
	str := msg.String()

	for _, want := range []string{msg.ID, "agent-a", "agent-b", "detect_trends", "low"} {
		if !strings.Contains(str, want) {
			t.Errorf("String() = %v, should contain %v", str, want)
		}
	}
}

func TestMessage_IDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		msg := messaging.NewMessage("a", "b", messaging.KindGetStatus, nil).Build()
		if ids[msg.ID] {
			t.Errorf("Duplicate ID generated: %s", msg.ID)
		}
		ids[msg.ID] = true
	}
}

func TestMessage_TimestampSet(t *testing.T) {
	before := time.Now()
	msg := messaging.NewMessage("a", "b", messaging.KindGetStatus, nil).Build()
	after := time.Now()

	if msg.Timestamp.Before(before) || msg.Timestamp.After(after) {
		t.Errorf("Timestamp = %v, should be between %v and %v", msg.Timestamp, before, after)
	}
}

func TestPriority_Values(t *testing.T) {
	tests := []struct {
		priority messaging.Priority
		value    int
		text     string
	}{
		{messaging.PriorityLow, 1, "low"},
		{messaging.PriorityMedium, 2, "medium"},
		{messaging.PriorityHigh, 3, "high"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if int(tt.priority) != tt.value {
				t.Errorf("Priority value = %d, want %d", int(tt.priority), tt.value)
			}
			if tt.priority.String() != tt.text {
				t.Errorf("String() = %s, want %s", tt.priority.String(), tt.text)
			}
			if !tt.priority.Valid() {
				t.Errorf("Valid() = false for %s", tt.text)
			}
		})
	}

	if messaging.Priority(0).Valid() || messaging.Priority(4).Valid() {
		t.Error("out-of-range priorities should not be valid")
	}
}

func TestKind_ResultKind(t *testing.T) {
	tests := []struct {
		kind   messaging.Kind
		want   messaging.Kind
		wantOK bool
	}{
		{messaging.KindGetRecommendations, messaging.KindRecommendationResult, true},
		{messaging.KindGetPersonalizedRecommendations, messaging.KindPersonalizedRecommendationResult, true},
		{messaging.KindDetectEmotion, messaging.KindEmotionResult, true},
		{messaging.KindAnnouncement, "", false},
		{messaging.KindRecommendationResult, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, ok := tt.kind.ResultKind()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ResultKind() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestKind_Valid(t *testing.T) {
	if !messaging.KindErrorResponse.Valid() {
		t.Error("error_response should be valid")
	}
	if !messaging.KindCategorizeBook.IsRequest() {
		t.Error("categorize_book should be a request kind")
	}
	if !messaging.KindStatusResult.IsResult() {
		t.Error("status_result should be a result kind")
	}
	if messaging.Kind("launch_rockets").Valid() {
		t.Error("unknown kind should not be valid")
	}
}

type samplePayload struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    samplePayload
		wantErr bool
	}{
		{
			name:    "typed value",
			payload: samplePayload{Query: "dragons", TopK: 3},
			want:    samplePayload{Query: "dragons", TopK: 3},
		},
		{
			name:    "typed pointer",
			payload: &samplePayload{Query: "space", TopK: 5},
			want:    samplePayload{Query: "space", TopK: 5},
		},
		{
			name:    "generic mapping",
			payload: map[string]any{"query": "mystery", "top_k": 7},
			want:    samplePayload{Query: "mystery", TopK: 7},
		},
		{
			name:    "nil payload",
			payload: nil,
			wantErr: true,
		},
		{
			name:    "mismatched mapping",
			payload: map[string]any{"top_k": "many"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := messaging.NewMessage("a", "b", messaging.KindSemanticSearch, tt.payload).Build()
			got, err := messaging.Decode[samplePayload](msg)

			if tt.wantErr {
				if !errors.Is(err, messaging.ErrInvalidPayload) {
					t.Errorf("Decode() error = %v, want ErrInvalidPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
