package compiler

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/prequel/internal/ir"
)

// CompileFiles compiles and validates the models declared across the given
// CUE files. Each file is compiled on its own; model names must be unique
// across all of them.
func CompileFiles(paths ...string) ([]ir.ModelSpec, error) {
	ctx := cuecontext.New()

	var specs []ir.ModelSpec
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model file: %w", err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, formatCUEError(err))
		}
		fileSpecs, err := CompileModels(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		specs = append(specs, fileSpecs...)
	}

	if err := JoinValidationErrors(Validate(specs)); err != nil {
		return nil, err
	}
	return specs, nil
}

// JoinValidationErrors folds validation errors into a single error, or nil
// when there are none.
func JoinValidationErrors(verrs []ValidationError) error {
	if len(verrs) == 0 {
		return nil
	}
	errs := make([]error, len(verrs))
	for i, e := range verrs {
		errs[i] = e
	}
	return errors.Join(errs...)
}
