package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the hash algorithm to change later.
const (
	DomainSchema   = "stef/schema/v1"
	DomainArtifact = "stef/artifact/v1"
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

// SchemaHash computes the content hash of a schema. Spans are excluded, so
// reformatting the source does not change the hash.
func SchemaHash(s *Schema) (string, error) {
	canonical, err := MarshalCanonical(ToTree(s, TreeOptions{}))
	if err != nil {
		return "", fmt.Errorf("SchemaHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSchema, canonical), nil
}

// ArtifactKey derives the cache key of a generated artifact from the schema
// hash, the target name and the target options.
func ArtifactKey(schemaHash, target string, options map[string]any) (string, error) {
	obj := map[string]any{
		"schema":   schemaHash,
		"target":   target,
		"compiler": CompilerVersion,
	}
	if options != nil {
		obj["options"] = options
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ArtifactKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainArtifact, canonical), nil
}

// MustSchemaHash is like SchemaHash but panics on error.
// Use only in tests or when the schema is known to be valid.
func MustSchemaHash(s *Schema) string {
	h, err := SchemaHash(s)
	if err != nil {
		panic(err)
	}
	return h
}
