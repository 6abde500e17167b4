package project_test

import (
	"testing"

	"parcel/internal/project"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    project.Context
		wantErr bool
	}{
		{name: "full", in: "alpha/shotA/surfacing/texturing",
			want: project.Context{Project: "alpha", Entity: "shotA", Step: "surfacing", Task: "texturing"}},
		{name: "partial", in: "alpha/shotA",
			want: project.Context{Project: "alpha", Entity: "shotA"}},
		{name: "surrounding slashes", in: "/alpha/shotA/",
			want: project.Context{Project: "alpha", Entity: "shotA"}},
		{name: "empty", in: "", wantErr: true},
		{name: "too deep", in: "a/b/c/d/e", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := project.Parse(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) should fail", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeyAndString(t *testing.T) {
	a := project.Context{Project: "alpha", Entity: "shotA"}
	b := project.Context{Project: "alpha", Entity: "shotB"}
	if a.Key() == b.Key() {
		t.Fatal("distinct contexts must have distinct keys")
	}
	if a.String() != "alpha/shotA" {
		t.Fatalf("String = %q", a.String())
	}
	if (project.Context{}).String() != "<empty context>" {
		t.Fatalf("zero String = %q", project.Context{}.String())
	}
}

func TestHasTaskAndFields(t *testing.T) {
	linked := project.Context{Project: "alpha", Entity: "shotA", Step: "surfacing", Task: "texturing"}
	if !linked.HasTask() {
		t.Fatal("task-linked context should report HasTask")
	}
	if (project.Context{Project: "alpha"}).HasTask() {
		t.Fatal("context without a task should not report HasTask")
	}

	fields := linked.Fields()
	for _, key := range []string{"project", "entity", "step", "task"} {
		if fields[key] == "" {
			t.Fatalf("fields missing %q: %v", key, fields)
		}
	}
	if len((project.Context{Project: "alpha"}).Fields()) != 1 {
		t.Fatal("empty components should be omitted from fields")
	}
}
