package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "catalog error",
			code:    CodeNotFound,
			wantMsg: "Plugin not found",
			wantCat: CategoryCatalog,
		},
		{
			name:    "install error",
			code:    CodeAlreadyInstalled,
			wantMsg: "Plugin already installed",
			wantCat: CategoryInstall,
		},
		{
			name:    "cli error",
			code:    CodeInvalidRef,
			wantMsg: "Invalid plugin reference",
			wantCat: CategoryCLI,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestMarketError_Error(t *testing.T) {
	err := New(CodeNotFound)
	if got, want := err.Error(), "E100: Plugin not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New(CodeFilesystem).Wrap(fs.ErrPermission)
	if got := wrapped.Error(); !strings.Contains(got, "permission denied") {
		t.Errorf("Error() = %q, want wrapped cause", got)
	}

	plain := &MarketError{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestMarketError_IsAndUnwrap(t *testing.T) {
	err := fmt.Errorf("loading: %w", New(CodeManifestCorrupt).Wrap(fs.ErrNotExist))

	if !HasCode(err, CodeManifestCorrupt) {
		t.Error("HasCode should find E144 through fmt wrapping")
	}
	if HasCode(err, CodeNotFound) {
		t.Error("HasCode matched the wrong code")
	}
	if !stderrors.Is(err, fs.ErrNotExist) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if got := CodeOf(err); got != CodeManifestCorrupt {
		t.Errorf("CodeOf = %q, want %q", got, CodeManifestCorrupt)
	}
	if got := CodeOf(fs.ErrClosed); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeFilesystem) != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New(CodeInvalidVersion)
	if FromError(orig, CodeFilesystem) != orig {
		t.Error("FromError should return an existing MarketError unchanged")
	}

	me := FromError(fs.ErrPermission, CodeFilesystem)
	if me.Code != CodeFilesystem || me.Wrapped != fs.ErrPermission {
		t.Errorf("FromError = %+v", me)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New(CodeNotFound).
		WithDetail("Plugin acme/widget is not in the registry").
		WithSuggestion("Run 'marketplace search widget'")

	out := err.Format()
	for _, want := range []string{
		"ERROR E100: Plugin not found",
		"acme/widget",
		"Hint: Run 'marketplace search widget'",
		"Learn more: https://vango.dev/docs/marketplace/errors/E100",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() emitted ANSI codes with colors disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New(CodeInvalidRef).WithDetail("got \"widget\"")
	want := `E143: Invalid plugin reference (got "widget")`
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFprint_PlainError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, fs.ErrPermission)
	if !strings.Contains(buf.String(), "ERROR: permission denied") {
		t.Errorf("Fprint() = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	if len(lines) < 2 {
		t.Fatalf("expected multiple lines, got %d", len(lines))
	}
	for _, line := range lines {
		if len(line) > 20 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}

func TestAllCodesHaveTemplates(t *testing.T) {
	for _, code := range GetAllCodes() {
		tmpl, ok := GetTemplate(code)
		if !ok {
			t.Fatalf("GetTemplate(%q) missing", code)
		}
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("template %s incomplete: %+v", code, tmpl)
		}
	}
}
