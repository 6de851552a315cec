package exercise

import (
	"strings"
	"testing"
)

func TestDecode_QCM(t *testing.T) {
	raw := []byte(`{"question":"2+2?","options":["3","4","5","6"],"correct":1}`)
	c, err := Decode(TypeQCM, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q, ok := c.(QCM)
	if !ok {
		t.Fatalf("got %T, want QCM", c)
	}
	if q.Correct != 1 {
		t.Errorf("Correct = %d, want 1", q.Correct)
	}
}

func TestDecode_QCMMissingCorrect(t *testing.T) {
	raw := []byte(`{"question":"2+2?","options":["3","4","5","6"]}`)
	if _, err := Decode(TypeQCM, raw); err == nil {
		t.Fatal("expected error for missing correct index")
	}
}

func TestDecode_QCMCorrectZeroIsValid(t *testing.T) {
	raw := []byte(`{"question":"1+0?","options":["1","2","3","4"],"correct":0}`)
	if _, err := Decode(TypeQCM, raw); err != nil {
		t.Fatalf("correct=0 should be valid: %v", err)
	}
}

func TestValidate_Variants(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		wantErr string
	}{
		{"qcm three options", QCM{Question: "q", Options: []string{"a", "b", "c"}}, "exactly 4"},
		{"qcm out of range", QCM{Question: "q", Options: []string{"a", "b", "c", "d"}, Correct: 4}, "out of range"},
		{"qcm duplicate", QCM{Question: "q", Options: []string{"a", "A", "c", "d"}}, "duplicate"},
		{"fill blank ok", FillBlank{Text: "The cat ___ on the ___.", Answers: []string{"sat", "mat"}}, ""},
		{"fill blank mismatch", FillBlank{Text: "The cat ___.", Answers: []string{"sat", "mat"}}, "blanks"},
		{"fill blank no marker", FillBlank{Text: "No gap", Answers: []string{"x"}}, "marker"},
		{"drag drop ok", DragDrop{Prompt: "Order", Items: []string{"b", "a"}, CorrectOrder: []int{1, 0}}, ""},
		{"drag drop repeat", DragDrop{Prompt: "Order", Items: []string{"b", "a"}, CorrectOrder: []int{1, 1}}, "permutation"},
		{"free input ok", FreeInput{Question: "Capital of France?", Answer: "Paris"}, ""},
		{"free input no answer", FreeInput{Question: "Capital of France?"}, "answer is empty"},
		{"matching ok", Matching{Pairs: []Pair{{"cat", "chat"}, {"dog", "chien"}}}, ""},
		{"matching single", Matching{Pairs: []Pair{{"cat", "chat"}}}, "at least 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.content.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_UnknownTypeIsTemplate(t *testing.T) {
	c, err := Decode("timeline", []byte(`{"events":[1,2]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Type() != "timeline" {
		t.Errorf("Type() = %q, want timeline", c.Type())
	}
	if Type("timeline").IsGeneratable() {
		t.Error("template types must not be generatable")
	}
}

func TestClampDifficulty(t *testing.T) {
	for in, want := range map[int]int{-3: 1, 0: 1, 1: 1, 3: 3, 5: 5, 9: 5} {
		if got := ClampDifficulty(in); got != want {
			t.Errorf("ClampDifficulty(%d) = %d, want %d", in, got, want)
		}
	}
}
