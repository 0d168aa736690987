// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package keychain

import (
	"os"
	"strings"
)

// Environment variables that take precedence over stored secrets.
const (
	EnvLLMAPIKey = "CHATDB_LLM_API_KEY"
	EnvSQLDSN    = "CHATDB_SQL_DSN"
	EnvMongoURI  = "CHATDB_MONGO_URI"
)

// envFor maps keychain keys to their overriding environment variables.
var envFor = map[string][]string{
	KeyLLMAPIKey: {EnvLLMAPIKey, "OPENAI_API_KEY"},
	KeySQLDSN:    {EnvSQLDSN, "DATABASE_URL"},
	KeyMongoURI:  {EnvMongoURI, "MONGODB_URI"},
}

// Source says where a resolved secret came from.
type Source string

const (
	SourceEnv      Source = "environment"
	SourceKeychain Source = "keychain"
)

// Getter is the read side of Manager.
type Getter interface {
	Get(key string) (string, error)
}

// Resolve returns the secret for key, preferring the environment over the
// keychain. store may be nil when no keychain is available.
func Resolve(store Getter, key string) (string, Source, error) {
	return resolveWith(os.LookupEnv, store, key)
}

func resolveWith(lookup func(string) (string, bool), store Getter, key string) (string, Source, error) {
	for _, env := range envFor[key] {
		if v, ok := lookup(env); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), SourceEnv, nil
		}
	}
	if store == nil {
		return "", "", ErrNotFound
	}
	v, err := store.Get(key)
	if err != nil {
		return "", "", err
	}
	return v, SourceKeychain, nil
}
