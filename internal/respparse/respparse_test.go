package respparse

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string // expected "decision" field, "" means expect error
		wantErr bool
	}{
		{
			name: "fenced json block with surrounding prose",
			raw:  "Here is my answer:\n```json\n{\"decision\":\"include\",\"confidence\":90}\n```\nLet me know.",
			want: "include",
		},
		{
			name: "bare fence without language tag",
			raw:  "```\n{\"decision\":\"exclude\"}\n```",
			want: "exclude",
		},
		{
			name: "object embedded in prose",
			raw:  "Based on the criteria {\"decision\":\"include\",\"confidence\":75} is my vote.",
			want: "include",
		},
		{
			name: "whole response is json",
			raw:  "{\"decision\":\"exclude\",\"confidence\":60,\"reasoning\":\"wrong population\"}",
			want: "exclude",
		},
		{
			name: "braces inside string values",
			raw:  "{\"decision\":\"include\",\"reasoning\":\"text with } brace and {nested} braces\"}",
			want: "include",
		},
		{
			name: "nested objects",
			raw:  "{\"decision\":\"include\",\"pico_alignment\":{\"population\":\"yes\"}}",
			want: "include",
		},
		{
			name: "escaped quote inside string",
			raw:  "{\"decision\":\"include\",\"reasoning\":\"quoted \\\"RCT\\\" design\"}",
			want: "include",
		},
		{
			name:    "no json at all",
			raw:     "not json at all",
			wantErr: true,
		},
		{
			name:    "empty response",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "unbalanced object",
			raw:     "{\"decision\":\"include\"",
			wantErr: true,
		},
		{
			name:    "fenced block with broken json and no fallback",
			raw:     "```json\n{broken\n```",
			wantErr: true,
		},
		{
			// The fence contains garbage but a valid object follows it.
			name: "broken fence with valid object after",
			raw:  "```json\nnot json\n```\n{\"decision\":\"exclude\"}",
			want: "exclude",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := Extract(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOutput) {
					t.Fatalf("err = %v, want ErrInvalidOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var decoded struct {
				Decision string `json:"decision"`
			}
			if err := json.Unmarshal(obj, &decoded); err != nil {
				t.Fatalf("extracted span does not parse: %v", err)
			}
			if decoded.Decision != tt.want {
				t.Errorf("decision = %q, want %q", decoded.Decision, tt.want)
			}
		})
	}
}

func TestUnmarshal(t *testing.T) {
	var v struct {
		Decision   string `json:"decision"`
		Confidence int    `json:"confidence"`
	}
	raw := "prefix ```json\n{\"decision\":\"include\",\"confidence\":90}\n``` suffix"
	if err := Unmarshal(raw, &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.Decision != "include" || v.Confidence != 90 {
		t.Errorf("decoded %+v", v)
	}

	if err := Unmarshal("no json here", &v); !errors.Is(err, ErrInvalidOutput) {
		t.Errorf("err = %v, want ErrInvalidOutput", err)
	}
}
