package bot

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseIDArg(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    int64
		wantErr bool
	}{
		{name: "valid", args: "42", want: 42},
		{name: "with whitespace", args: "  7  ", want: 7},
		{name: "empty", args: "", wantErr: true},
		{name: "not a number", args: "abc", wantErr: true},
		{name: "zero", args: "0", wantErr: true},
		{name: "negative", args: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIDArg(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseUpdateArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		wantID  int64
		wantURL string
		wantErr bool
	}{
		{
			name:    "valid",
			args:    "3 https://example.org/topic",
			wantID:  3,
			wantURL: "https://example.org/topic",
		},
		{name: "missing url", args: "3", wantErr: true},
		{name: "too many fields", args: "3 a b", wantErr: true},
		{name: "bad id", args: "x https://example.org", wantErr: true},
		{name: "empty", args: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, url, err := parseUpdateArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID || url != tt.wantURL {
				t.Errorf("got (%d, %q), want (%d, %q)", id, url, tt.wantID, tt.wantURL)
			}
		})
	}
}

func TestParseAddUserArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		wantID  int64
		wantAdm bool
		wantSub bool
		wantErr bool
	}{
		{name: "id only defaults to subscribed", args: "500", wantID: 500, wantSub: true},
		{name: "admin flag", args: "500 1", wantID: 500, wantAdm: true, wantSub: true},
		{name: "explicit no sub", args: "500 0 0", wantID: 500},
		{name: "admin no sub", args: "500 1 0", wantID: 500, wantAdm: true},
		{name: "empty", args: "", wantErr: true},
		{name: "bad flag", args: "500 yes", wantErr: true},
		{name: "too many fields", args: "500 1 1 1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, adm, sub, err := parseAddUserArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID || adm != tt.wantAdm || sub != tt.wantSub {
				t.Errorf("got (%d, %v, %v), want (%d, %v, %v)",
					id, adm, sub, tt.wantID, tt.wantAdm, tt.wantSub)
			}
		})
	}
}

func TestURLPrompts(t *testing.T) {
	p := newURLPrompts()

	if p.consume(1) {
		t.Error("consume on idle chat should report false")
	}

	p.arm(1)
	if !p.consume(1) {
		t.Error("consume after arm should report true")
	}
	if p.consume(1) {
		t.Error("second consume should report false")
	}

	p.arm(2)
	if !p.cancel(2) {
		t.Error("cancel on armed chat should report true")
	}
	if p.consume(2) {
		t.Error("consume after cancel should report false")
	}
}
