package session

import (
	"strings"
	"testing"

	"github.com/kaiwadev/kaiwa/pkg/chat"
)

func TestEstimateDeterministic(t *testing.T) {
	est := NewEstimator()
	turns := []chat.Turn{
		chat.NewTextTurn(chat.RoleUser, "what is the capital of france"),
		chat.NewTextTurn(chat.RoleModel, "Paris."),
	}

	first := est.Estimate(turns, "summary so far")
	for i := 0; i < 10; i++ {
		if got := est.Estimate(turns, "summary so far"); got != first {
			t.Fatalf("Estimate not stable: %d vs %d", got, first)
		}
	}
}

func TestEstimateMonotonicInTurns(t *testing.T) {
	est := NewEstimator()
	var turns []chat.Turn

	prev := est.Estimate(turns, "")
	for i := 0; i < 20; i++ {
		turns = append(turns, chat.NewTextTurn(chat.RoleUser, strings.Repeat("word ", i)))
		got := est.Estimate(turns, "")
		if got < prev {
			t.Fatalf("Estimate decreased after appending a turn: %d -> %d", prev, got)
		}
		prev = got
	}
}

func TestEstimateMonotonicInSummary(t *testing.T) {
	est := NewEstimator()
	turns := []chat.Turn{chat.NewTextTurn(chat.RoleUser, "hello")}

	without := est.Estimate(turns, "")
	with := est.Estimate(turns, "a long summary of earlier conversation")
	if with <= without {
		t.Fatalf("Adding a summary must increase the estimate: %d vs %d", without, with)
	}
}

func TestEstimateCountsAttachmentBytes(t *testing.T) {
	est := NewEstimator()
	plain := []chat.Turn{chat.NewUserTurn("see file", nil)}
	withFile := []chat.Turn{chat.NewUserTurn("see file", []chat.Attachment{
		{Path: "big.txt", MediaType: "text/plain", Data: make([]byte, 4096)},
	})}

	if est.Estimate(withFile, "") <= est.Estimate(plain, "") {
		t.Fatal("Attachment bytes must contribute to the estimate")
	}
}

func TestEstimateEmpty(t *testing.T) {
	est := NewEstimator()
	if got := est.Estimate(nil, ""); got != 0 {
		t.Fatalf("Empty context should estimate 0 tokens, got %d", got)
	}
}
