package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRecord = "prequel/record/v1"
	DomainSpec   = "prequel/spec/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordKey computes a content-addressed key for a record of the named model.
// Fixtures without an explicit key get a key that is stable across loads.
func RecordKey(model string, rec Record) (Key, error) {
	canonical, err := MarshalCanonical(Object{
		"model":      String(model),
		"attributes": Object(rec),
	})
	if err != nil {
		return "", fmt.Errorf("RecordKey: failed to marshal: %w", err)
	}
	return Key(hashWithDomain(DomainRecord, canonical)), nil
}

// SpecHash computes a content hash over a set of model specs.
// Stored alongside loaded fixtures so a store can be checked against the
// definitions it was loaded with.
func SpecHash(specs []ModelSpec) (string, error) {
	arr := make(Array, len(specs))
	for i, s := range specs {
		arr[i] = s.toValue()
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("SpecHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSpec, canonical), nil
}
