package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/marketledger/internal/ir"
)

//go:embed listing.cue
var listingCUE []byte

// Definition names a schema must provide.
const (
	ListingDef = "#Listing"
	UpdateDef  = "#ListingUpdate"
)

// Validator checks payloads against compiled CUE definitions.
//
// Thread-safety: a cue.Context is not safe for concurrent use, so every
// validation holds mu.
type Validator struct {
	mu      sync.Mutex
	ctx     *cue.Context
	listing cue.Value
	update  cue.Value
}

// New compiles the built-in listing schema.
func New() (*Validator, error) {
	return Compile("listing.cue", listingCUE)
}

// Load compiles a schema file from disk.
func Load(path string) (*Validator, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Compile(path, src)
}

// Compile builds a Validator from CUE source defining ListingDef and
// UpdateDef.
func Compile(filename string, src []byte) (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	listing := v.LookupPath(cue.ParsePath(ListingDef))
	if !listing.Exists() {
		return nil, &CompileError{Field: ListingDef, Message: "definition not found"}
	}
	update := v.LookupPath(cue.ParsePath(UpdateDef))
	if !update.Exists() {
		return nil, &CompileError{Field: UpdateDef, Message: "definition not found"}
	}

	return &Validator{ctx: ctx, listing: listing, update: update}, nil
}

// ValidateListing checks the complete fields of a new listing.
func (v *Validator) ValidateListing(fields ir.Payload) error {
	return v.validate(v.listing, fields)
}

// ValidateUpdate checks the fields present in an update.
func (v *Validator) ValidateUpdate(fields ir.Payload) error {
	return v.validate(v.update, fields)
}

func (v *Validator) validate(def cue.Value, fields ir.Payload) error {
	// JSON is valid CUE, so the canonical bytes compile directly and keep
	// number literals exactly as stored.
	data, err := ir.MarshalCanonical(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	value := v.ctx.CompileBytes(data, cue.Filename("payload.json"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("compile fields: %w", err)
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return newValidationError(err)
	}
	return nil
}

// Problem is one constraint a payload violated.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every violated constraint.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.Path == "" {
			parts = append(parts, p.Message)
			continue
		}
		parts = append(parts, p.Path+": "+p.Message)
	}
	return strings.Join(parts, "; ")
}

// Fields returns the distinct paths that failed, in report order.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range e.Problems {
		if p.Path != "" && !seen[p.Path] {
			seen[p.Path] = true
			out = append(out, p.Path)
		}
	}
	return out
}

func newValidationError(err error) *ValidationError {
	verr := &ValidationError{}
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		verr.Problems = append(verr.Problems, Problem{
			Path:    fieldPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(verr.Problems) == 0 {
		verr.Problems = []Problem{{Message: err.Error()}}
	}
	return verr
}

// fieldPath drops the definition name from an error path.
func fieldPath(path []string) string {
	if len(path) > 0 && (path[0] == ListingDef || path[0] == UpdateDef) {
		path = path[1:]
	}
	return strings.Join(path, ".")
}

// CompileError is a schema that failed to compile.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
