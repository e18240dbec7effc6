package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestBuildOptionsInput(t *testing.T) {
	pid := uuid.New()
	sid := uuid.New()
	in, err := buildOptions{segment: "persona", segmentID: sid.String(), minEvidence: 2, minGroupSize: 3}.input(pid)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if in.ProjectID != pid || in.SegmentID != sid || in.SegmentKindSlug != "persona" || in.MinEvidencePerPain != 2 || in.MinGroupSize != 3 {
		t.Fatalf("unexpected input: %+v", in)
	}

	if _, err := (buildOptions{segmentID: "nope"}).input(pid); err == nil {
		t.Fatalf("bad segment id should fail")
	}
}

func TestCommandsRejectBadProjectBeforeWiring(t *testing.T) {
	for _, name := range []string{"build", "cached"} {
		t.Run(name, func(t *testing.T) {
			root := newRootCmd()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs([]string{name, "--project", "not-a-uuid"})
			err := root.Execute()
			if err == nil || !strings.Contains(err.Error(), "invalid --project") {
				t.Fatalf("want invalid --project error, got %v", err)
			}
		})
	}
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "build", "cached"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("command %q not registered: %v", name, err)
		}
	}
}
