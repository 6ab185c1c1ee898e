package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cypherc/internal/canonical"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/schema"
	"github.com/roach88/cypherc/internal/translate"
)

// Error code constants - unified across all CLI commands. Translation
// errors keep their own E2xx codes.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory or glob scan error
	ErrCodeNoFiles      = "E003" // No CUE or request files found
	ErrCodeLoadFailed   = "E004" // Model load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeInvalidModel = "E006" // Model failed validation
	ErrCodeWriteFailed  = "E007" // Journal write error
	ErrCodeParse        = "E008" // Request document does not parse
	ErrCodeInputFile    = "E009" // Claims or variables file unreadable
	ErrCodeExecFailed   = "E010" // Statement execution failed
	ErrCodeForbidden    = "E011" // Authorization guard rejected the statement
	ErrCodeIntegrity    = "E012" // Relationship cardinality guard failed
	ErrCodeConfig       = "E013" // Configuration incomplete for the command
)

// LoadError represents an error that occurred while loading command inputs.
type LoadError struct {
	Code    string
	Message string
	Details any
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// readModel loads the model in dir without validating it.
func readModel(dir string) (*schema.Model, *LoadError) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing model directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := schema.FindFiles(dir, "")
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	model, err := schema.LoadDir(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	return model, nil
}

// loadModel loads and validates the model in dir and returns it with its
// fingerprint.
func loadModel(dir string) (*schema.Model, string, *LoadError) {
	model, lerr := readModel(dir)
	if lerr != nil {
		return nil, "", lerr
	}
	if verrs := schema.Validate(model); len(verrs) > 0 {
		return nil, "", &LoadError{
			Code:    ErrCodeInvalidModel,
			Message: fmt.Sprintf("model has %d validation error(s), first: %v", len(verrs), verrs[0]),
			Details: verrs,
		}
	}
	hash, err := canonical.ModelFingerprint(model.Sources)
	if err != nil {
		return nil, "", &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	return model, hash, nil
}

// loadClaims reads a claims file. An empty path means an unauthenticated
// request.
func loadClaims(path string) (request.Claims, *LoadError) {
	if path == "" {
		return nil, nil
	}
	m, err := readValues(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInputFile, Message: fmt.Sprintf("claims: %v", err)}
	}
	if m == nil {
		m = map[string]any{}
	}
	return request.Claims(m), nil
}

// loadVariables reads a request variables file. An empty path means no
// variables.
func loadVariables(path string) (map[string]any, *LoadError) {
	if path == "" {
		return nil, nil
	}
	m, err := readValues(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInputFile, Message: fmt.Sprintf("variables: %v", err)}
	}
	return m, nil
}

// readValues decodes a YAML or JSON object file into normalized values.
func readValues(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if raw == nil {
		return nil, nil
	}
	m, _ := request.Normalize(raw).(map[string]any)
	return m, nil
}

// requestInput is one request document to compile.
type requestInput struct {
	Name   string
	Source string
}

// inlineRequestName names a request given with --query.
const inlineRequestName = "<query>"

// collectRequests resolves request file arguments, which may be doublestar
// patterns, into documents. Files are read once each, in sorted order per
// pattern.
func collectRequests(patterns []string, query string) ([]requestInput, *LoadError) {
	var inputs []requestInput
	if query != "" {
		inputs = append(inputs, requestInput{Name: inlineRequestName, Source: query})
	}

	seen := make(map[string]bool)
	for _, pattern := range patterns {
		paths := []string{pattern}
		if strings.ContainsAny(pattern, "*?[{") {
			matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
			if err != nil {
				return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("invalid pattern %q: %v", pattern, err)}
			}
			if len(matches) == 0 {
				return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no request files match %s", pattern)}
			}
			slices.Sort(matches)
			paths = matches
		}

		for _, path := range paths {
			if seen[path] {
				continue
			}
			seen[path] = true
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("request file not found: %s", path)}
			}
			if err != nil {
				return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
			}
			inputs = append(inputs, requestInput{Name: path, Source: string(data)})
		}
	}
	return inputs, nil
}

// singleRequest resolves the one request explain and exec operate on.
func singleRequest(args []string, query string) (requestInput, *LoadError) {
	if query == "" && len(args) == 0 {
		return requestInput{}, &LoadError{Code: ErrCodeNoFiles, Message: "no request: pass a request file or --query"}
	}
	inputs, lerr := collectRequests(args, query)
	if lerr != nil {
		return requestInput{}, lerr
	}
	if len(inputs) != 1 {
		return requestInput{}, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("expected one request, got %d", len(inputs))}
	}
	return inputs[0], nil
}

// describeError maps a compile-path error to a CLI error.
func describeError(err error) *CLIError {
	var ce *translate.CompileError
	if errors.As(err, &ce) {
		details := map[string]string{}
		if ce.Type != "" {
			details["type"] = ce.Type
		}
		if ce.Field != "" {
			details["field"] = ce.Field
		}
		out := &CLIError{Code: ce.Code, Message: ce.Message}
		if len(details) > 0 {
			out.Details = details
		}
		return out
	}
	var pe *request.ParseError
	if errors.As(err, &pe) {
		return &CLIError{Code: ErrCodeParse, Message: pe.Error()}
	}
	return &CLIError{Code: ErrCodeGeneric, Message: err.Error()}
}
