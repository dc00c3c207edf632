package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prequel/internal/compiler"
)

func executeValidate(t *testing.T, opts *RootOptions, dir string) (string, string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{dir})
	err := cmd.Execute()
	return buf.String(), errBuf.String(), err
}

func TestValidateValidModels(t *testing.T) {
	output, _, err := executeValidate(t, &RootOptions{Format: "text"}, modelsDir)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ All models valid (2)")
}

func TestValidateValidModelsJSON(t *testing.T) {
	output, _, err := executeValidate(t, &RootOptions{Format: "json"}, modelsDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.ElementsMatch(t, []string{"Person", "Film"}, resp.Data.Models)
}

func TestValidateVerboseGoesToStderr(t *testing.T) {
	output, stderr, err := executeValidate(t, &RootOptions{Format: "json", Verbose: true}, modelsDir)
	require.NoError(t, err)

	assert.Contains(t, stderr, "Validating model: Person")
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp), "stdout must stay valid JSON")
}

func TestValidateReportsEveryModel(t *testing.T) {
	dir := writeModels(t, map[string]string{
		"broken.cue": `
model: Broken: {
	attributes: {name: string}
}
`,
		"person.cue": `
model: Person: {
	purpose: "people"
	attributes: {name: string}
	scope: {
		aged: where: {field: "age", op: "gt", value: 30}
		loop: {within: ["loop"]}
	}
}
`,
	})

	output, _, err := executeValidate(t, &RootOptions{Format: "json"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)

	codes := make(map[string]bool)
	for _, e := range resp.Data.Errors {
		codes[e.Code] = true
	}
	assert.True(t, codes[compiler.ErrModelPurposeEmpty], "missing purpose: %v", resp.Data.Errors)
	assert.True(t, codes[compiler.ErrUnknownAttribute], "undeclared attribute: %v", resp.Data.Errors)
	assert.True(t, codes[compiler.ErrScopeCycle], "self within: %v", resp.Data.Errors)
}

func TestValidateTextErrors(t *testing.T) {
	dir := writeModels(t, map[string]string{"bad.cue": `
model: Bad: {
	purpose: "bad"
	attributes: {name: string}
	scope: typo: where: {feild: "name", op: "eq", value: "x"}
}
`})

	output, _, err := executeValidate(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, ErrCodeInvalidScope+": model.Bad.scope.typo.where: unknown field \"feild\"")
	assert.Contains(t, output, "line ")
}

func TestValidateNoModels(t *testing.T) {
	dir := writeModels(t, map[string]string{"empty.cue": `other: 1
`})

	output, _, err := executeValidate(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, output, "no models found")
}

func TestValidateNonExistentDir(t *testing.T) {
	output, _, err := executeValidate(t, &RootOptions{Format: "text"}, "/nonexistent/models")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "Error ["+ErrCodeNotFound+"]")
}

func TestValidateModelsDir(t *testing.T) {
	errs, err := ValidateModelsDir(modelsDir)
	require.NoError(t, err)
	assert.Empty(t, errs)

	_, err = ValidateModelsDir("/nonexistent/models")
	require.Error(t, err)
}

func TestLoadModels(t *testing.T) {
	specs, err := LoadModels(modelsDir)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	dir := writeModels(t, map[string]string{"person.cue": `
model: Person: {
	purpose: "people"
	key: "handle"
	attributes: {name: string}
}
`})
	_, err = LoadModels(dir)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, compiler.ErrUndeclaredKeyAttr, loadErr.Code)
}

func TestLoadSpecsFailFast(t *testing.T) {
	dir := writeModels(t, map[string]string{"two.cue": `
model: A: {attributes: {name: string}}
model: B: {attributes: {name: string}}
`})

	result, errs := LoadSpecs(dir, LoadModeFailFast)
	require.NotNil(t, result)
	assert.Len(t, errs, 1)

	result, errs = LoadSpecs(dir, LoadModeCollectAll)
	require.NotNil(t, result)
	assert.Len(t, errs, 2)
	assert.Equal(t, 1, result.FileCount)
}

func TestLoadErrorFormat(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in x"}
	assert.Equal(t, "E003: no CUE files found in x", err.Error())
}
