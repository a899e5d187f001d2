package prompt_test

import (
	"bytes"
	"strings"
	"testing"

	"contentpub/internal/prompt"
)

func TestScriptedAnswers(t *testing.T) {
	var out bytes.Buffer
	s := &prompt.Scripted{Directory: "/data/may", Environment: "uat", Answers: []bool{false}, Yes: true, Out: &out}

	dir, err := s.SelectDirectory("Select folder")
	if err != nil || dir != "/data/may" {
		t.Fatalf("SelectDirectory = %q, %v", dir, err)
	}
	first, _ := s.Confirm("first?", true)
	second, _ := s.Confirm("second?", false)
	if first || !second {
		t.Fatalf("Confirm answers = %v, %v", first, second)
	}
	env, err := s.ChooseEnvironment([]string{"UAT", "Production"}, "")
	if err != nil || env != "UAT" {
		t.Fatalf("ChooseEnvironment = %q, %v", env, err)
	}

	p := s.Progress("Extracting")
	p.Update("database zip")
	p.Done(true, "extracted")
	s.Notify(prompt.LevelWarning, "Filter Job Interrupted", "run it again")

	notices := s.Notices()
	if len(notices) != 1 || notices[0].Level != prompt.LevelWarning {
		t.Fatalf("unexpected notices %+v", notices)
	}
	if !strings.Contains(out.String(), "[warning] Filter Job Interrupted: run it again") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if got := s.Asked(); len(got) != 4 {
		t.Fatalf("expected 4 prompts recorded, got %v", got)
	}
}

func TestScriptedCancellation(t *testing.T) {
	s := &prompt.Scripted{}
	if dir, _ := s.SelectDirectory("x"); dir != "" {
		t.Fatalf("expected cancelled selection, got %q", dir)
	}
	if env, err := s.ChooseEnvironment([]string{"UAT"}, "UAT"); env != "" || err != nil {
		t.Fatalf("expected cancelled environment, got %q, %v", env, err)
	}
	if ok, _ := s.Confirm("go?", true); ok {
		t.Fatal("expected default answer no")
	}
}

func TestScriptedUnknownEnvironment(t *testing.T) {
	s := &prompt.Scripted{Environment: "staging"}
	if _, err := s.ChooseEnvironment([]string{"UAT", "Production"}, ""); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestLevelString(t *testing.T) {
	if prompt.LevelError.String() != "error" || prompt.Level(99).String() != "info" {
		t.Fatal("unexpected level names")
	}
}
