package parse

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const overrideSource = `import numpy as np
from ansys.mapdl.core import (
    Mapdl,
)


def k(self, npt="", x="", **kwargs) -> np.ndarray:
    """Defines a keypoint.

    Returns
    -------
    numpy.ndarray
        Keypoint numbers.

    Examples
    --------
    >>> mapdl.k(1, 0)
    """
    command = f"K,{npt},{x}"
    if x:
        return np.array([npt])
    return self.run(command, **kwargs)


def helper():
    import os
    return os.getcwd()


class Other:
    def k(self):
        pass
`

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  string
		wantErr bool
		line    string
	}{
		{"empty", "", false, ""},
		{"class", "class Keypoints:\n    def k(self, **kwargs):\n        return 1\n", false, ""},
		{"unclosed paren", "def k(self:\n    pass\n", true, "line "},
		{"stray docstring quote", "def k(self):\n    r\"\"\"doc\n    return 1\n", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate([]byte(tt.source))
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("Validate error = %v, want ErrSyntax", err)
			}
			if tt.line != "" && !strings.Contains(err.Error(), tt.line) {
				t.Errorf("error %q does not mention %q", err, tt.line)
			}
		})
	}
}

func TestExtractFunction(t *testing.T) {
	t.Parallel()

	ov, err := ExtractFunction([]byte(overrideSource), "k")
	if err != nil {
		t.Fatalf("ExtractFunction: %v", err)
	}

	wantImports := []string{"import numpy as np", "from ansys.mapdl.core import ( Mapdl, )"}
	if !reflect.DeepEqual(ov.Imports, wantImports) {
		t.Errorf("imports = %q, want %q", ov.Imports, wantImports)
	}
	if want := `(self, npt="", x="", **kwargs) -> np.ndarray`; ov.Params != want {
		t.Errorf("params = %q, want %q", ov.Params, want)
	}
	wantBody := "command = f\"K,{npt},{x}\"\nif x:\n    return np.array([npt])\nreturn self.run(command, **kwargs)"
	if ov.Body != wantBody {
		t.Errorf("body = %q, want %q", ov.Body, wantBody)
	}
	if want := "numpy.ndarray\n    Keypoint numbers."; ov.Returns != want {
		t.Errorf("returns = %q, want %q", ov.Returns, want)
	}
	if want := ">>> mapdl.k(1, 0)"; ov.Examples != want {
		t.Errorf("examples = %q, want %q", ov.Examples, want)
	}
}

func TestExtractFunctionWithoutDocstring(t *testing.T) {
	t.Parallel()

	ov, err := ExtractFunction([]byte("def clear(self, **kwargs):\n    return self.run(\"/CLEAR\")\n"), "clear")
	if err != nil {
		t.Fatalf("ExtractFunction: %v", err)
	}
	if ov.Body != `return self.run("/CLEAR")` {
		t.Errorf("body = %q", ov.Body)
	}
	if ov.Returns != "" || ov.Examples != "" || len(ov.Imports) != 0 {
		t.Errorf("unexpected extras: %+v", ov)
	}
}

func TestExtractFunctionDocstringOnly(t *testing.T) {
	t.Parallel()

	ov, err := ExtractFunction([]byte("def k(self):\n    '''Only docs.'''\n"), "k")
	if err != nil {
		t.Fatalf("ExtractFunction: %v", err)
	}
	if ov.Body != "" {
		t.Errorf("body = %q, want empty", ov.Body)
	}
	if ov.Params != "(self)" {
		t.Errorf("params = %q", ov.Params)
	}
}

func TestExtractFunctionNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"missing", "def other(self):\n    pass\n", ErrFunctionNotFound},
		{"method only", "class A:\n    def k(self):\n        pass\n", ErrFunctionNotFound},
		{"syntax", "def k(self:\n", ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ExtractFunction([]byte(tt.source), "k")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExtractFunctionNamesOwner(t *testing.T) {
	t.Parallel()

	_, err := ExtractFunction([]byte("class Keypoints:\n    def k(self):\n        pass\n"), "k")
	if err == nil || !strings.Contains(err.Error(), "method of Keypoints") {
		t.Errorf("error = %v, want mention of the class", err)
	}
}

func TestDedent(t *testing.T) {
	t.Parallel()

	got := dedent("\n    a\n\n      b  \n    c\n")
	if want := "a\n\n  b\nc"; got != want {
		t.Errorf("dedent = %q, want %q", got, want)
	}
}
