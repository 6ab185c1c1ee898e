package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/cypherc/internal/cypher"
)

// Domain prefixes for fingerprints. The version suffix allows the encoding
// to change without old journal entries comparing equal to new ones.
const (
	DomainStatement = "cypherc/statement/v1"
	DomainParams    = "cypherc/params/v1"
	DomainRequest   = "cypherc/request/v1"
	DomainModel     = "cypherc/model/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Params returns the canonical JSON object of a parameter table, keyed by
// parameter name.
func Params(params []cypher.NamedParam) ([]byte, error) {
	obj := make(map[string]any, len(params))
	for _, p := range params {
		obj[p.Name] = p.Value
	}
	b, err := Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	return b, nil
}

// ParamsFingerprint hashes a parameter table.
func ParamsFingerprint(params []cypher.NamedParam) (string, error) {
	b, err := Params(params)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainParams, b), nil
}

// StatementFingerprint hashes statement text together with its parameters.
// Equal fingerprints mean byte-identical text and equal parameter values.
func StatementFingerprint(text string, params []cypher.NamedParam) (string, error) {
	p, err := Params(params)
	if err != nil {
		return "", fmt.Errorf("StatementFingerprint: %w", err)
	}
	t, err := Marshal(text)
	if err != nil {
		return "", fmt.Errorf("StatementFingerprint: %w", err)
	}
	data := make([]byte, 0, len(t)+len(p)+1)
	data = append(data, t...)
	data = append(data, 0x00)
	data = append(data, p...)
	return hashWithDomain(DomainStatement, data), nil
}

// RequestFingerprint identifies a compile input: the request document, the
// selected operation name, its variables and the claims. Nil claims
// (unauthenticated) and empty claims hash differently.
func RequestFingerprint(source, operation string, variables, claims map[string]any) (string, error) {
	obj := map[string]any{
		"source":    source,
		"operation": operation,
		"variables": mapOrEmpty(variables),
		"claims":    nil,
	}
	if claims != nil {
		obj["claims"] = claims
	}
	b, err := Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("RequestFingerprint: %w", err)
	}
	return hashWithDomain(DomainRequest, b), nil
}

// ModelFingerprint hashes a model description given as file contents keyed
// by relative path.
func ModelFingerprint(sources map[string]string) (string, error) {
	obj := make(map[string]any, len(sources))
	for k, v := range sources {
		obj[k] = v
	}
	b, err := Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("ModelFingerprint: %w", err)
	}
	return hashWithDomain(DomainModel, b), nil
}

func mapOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// MustStatementFingerprint is like StatementFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStatementFingerprint(text string, params []cypher.NamedParam) string {
	fp, err := StatementFingerprint(text, params)
	if err != nil {
		panic(err)
	}
	return fp
}
